package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ExportCSV writes the table to <dir>/<name>_YYYYMMDD_HHMMSS.csv as UTF-8
// with a byte-order mark and returns the file path. Timestamps are written in
// storage format. An empty table writes nothing and returns ErrNoData.
func ExportCSV(dir, name string, table Table, now time.Time) (string, error) {
	if table.Empty() {
		return "", ErrNoData
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.csv", name, now.Format("20060102_150405")))

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create csv: %w", err)
	}
	bom := transform.NewWriter(file, unicode.UTF8BOM.NewEncoder())
	writer := csv.NewWriter(bom)

	if err := writeRows(writer, table); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := bom.Close(); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("flush csv: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close csv: %w", err)
	}
	return path, nil
}

func writeRows(writer *csv.Writer, table Table) error {
	if err := writer.Write(table.Headers); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, row := range table.Rows {
		out := append([]string(nil), row...)
		if len(out) > 0 {
			if i < len(table.canonical) && table.canonical[i] != "" {
				out[0] = table.canonical[i]
			} else {
				out[0] = CanonicalTimestamp(out[0])
			}
		}
		if err := writer.Write(out); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
