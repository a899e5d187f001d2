package packaging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	// ErrArchivesMissing indicates the selected directory lacks the database
	// or images zip.
	ErrArchivesMissing = errors.New("required zip files not found")
	// ErrMonthMismatch indicates the two zips name different months.
	ErrMonthMismatch = errors.New("zip month names do not match")
)

// Patterns matches the two source archive names. Each pattern captures day,
// month and year in that order.
type Patterns struct {
	Database *regexp.Regexp
	Images   *regexp.Regexp
}

// CompilePatterns compiles case-insensitive archive name patterns.
func CompilePatterns(database, images string) (Patterns, error) {
	db, err := regexp.Compile("(?i)" + database)
	if err != nil {
		return Patterns{}, fmt.Errorf("database pattern: %w", err)
	}
	img, err := regexp.Compile("(?i)" + images)
	if err != nil {
		return Patterns{}, fmt.Errorf("images pattern: %w", err)
	}
	return Patterns{Database: db, Images: img}, nil
}

// Sources are the two archives found in a topic directory.
type Sources struct {
	Database string
	Images   string
}

// FindArchives locates the database and images zips directly inside dir.
// Names must match their pattern from the first character.
func FindArchives(dir string, patterns Patterns) (Sources, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Sources{}, fmt.Errorf("read %s: %w", dir, err)
	}
	var found Sources
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(name), ".zip") {
			continue
		}
		switch {
		case matchesAtStart(patterns.Database, name):
			found.Database = filepath.Join(dir, name)
		case matchesAtStart(patterns.Images, name):
			found.Images = filepath.Join(dir, name)
		}
	}
	var missing []string
	if found.Database == "" {
		missing = append(missing, "database-DD-Month-YYYY.zip")
	}
	if found.Images == "" {
		missing = append(missing, "DD-Month-YYYY-images.zip")
	}
	if len(missing) > 0 {
		return found, fmt.Errorf("%w in %s: expected %s", ErrArchivesMissing, dir, strings.Join(missing, " and "))
	}
	return found, nil
}

func matchesAtStart(re *regexp.Regexp, name string) bool {
	if re == nil {
		return false
	}
	loc := re.FindStringIndex(name)
	return loc != nil && loc[0] == 0
}

// TopicMonth is the release date parsed from the archive names.
type TopicMonth struct {
	Day   string
	Month string
	Year  string
}

// String formats the month as DD-Month-YYYY.
func (t TopicMonth) String() string {
	return t.Day + "-" + t.Month + "-" + t.Year
}

// ParseTopicMonth extracts the release date from both archive names. The
// month names must agree ignoring case; the result uses the database zip's
// day and year.
func ParseTopicMonth(patterns Patterns, databaseZip, imagesZip string) (TopicMonth, error) {
	db := patterns.Database.FindStringSubmatch(filepath.Base(databaseZip))
	img := patterns.Images.FindStringSubmatch(filepath.Base(imagesZip))
	if len(db) < 4 || len(img) < 4 {
		return TopicMonth{}, fmt.Errorf("could not read a date from %q and %q", filepath.Base(databaseZip), filepath.Base(imagesZip))
	}
	if !strings.EqualFold(db[2], img[2]) {
		return TopicMonth{}, fmt.Errorf("%w: database %q, images %q", ErrMonthMismatch, strings.ToLower(db[2]), strings.ToLower(img[2]))
	}
	return TopicMonth{
		Day:   db[1],
		Month: cases.Title(language.English).String(db[2]),
		Year:  db[3],
	}, nil
}
