package report

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"contentpub/internal/history"
)

// DisplayLayout is the timestamp format shown to operators.
const DisplayLayout = "2006-01-02 03:04 PM"

// PendingLabel replaces the timestamp of an unresolved record.
const PendingLabel = "Pending"

// ErrNoData is returned when there is nothing to export.
var ErrNoData = errors.New("no history to export")

// Table is the display form of a task's history.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	// Numeric marks columns that hold integer counts.
	Numeric []bool

	// canonical holds the storage-format timestamp for each row, or "" when
	// the display value should be exported unchanged.
	canonical []string
}

// Empty reports whether the table has no data rows.
func (t Table) Empty() bool { return len(t.Rows) == 0 }

// Build turns records into display rows in the order given.
func Build(task history.Task, records []history.Record) Table {
	layout := task.Layout
	table := Table{
		Title:   task.Title,
		Headers: layout.Headers(),
		Numeric: make([]bool, 0, len(layout.Columns)+2),
	}
	table.Numeric = append(table.Numeric, false)
	for _, col := range layout.Columns {
		table.Numeric = append(table.Numeric, col.Kind == history.KindInteger)
	}
	table.Numeric = append(table.Numeric, false)

	titler := cases.Title(language.English)
	for _, rec := range records {
		row := make([]string, 0, len(table.Headers))
		row = append(row, DisplayTimestamp(rec))
		for _, col := range layout.Columns {
			row = append(row, rec.Field(col.Name))
		}
		row = append(row, titler.String(string(rec.Status)))
		table.Rows = append(table.Rows, row)

		canonical := ""
		if rec.Timestamp != nil {
			canonical = rec.Timestamp.Format(history.TimestampLayout)
		}
		table.canonical = append(table.canonical, canonical)
	}
	return table
}

// DisplayTimestamp renders a record's timestamp for operators. Values that do
// not parse are shown as stored.
func DisplayTimestamp(rec history.Record) string {
	if rec.Timestamp != nil {
		return rec.Timestamp.Format(DisplayLayout)
	}
	raw := strings.TrimSpace(rec.RawTimestamp)
	if raw == "" || strings.EqualFold(raw, "none") {
		return PendingLabel
	}
	return raw
}

// CanonicalTimestamp converts a display timestamp back to storage format.
// Labels and unparsable values are returned unchanged.
func CanonicalTimestamp(display string) string {
	if display == PendingLabel {
		return display
	}
	t, err := time.ParseInLocation(DisplayLayout, display, time.Local)
	if err != nil {
		return display
	}
	return t.Format(history.TimestampLayout)
}
