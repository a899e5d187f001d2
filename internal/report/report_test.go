package report_test

import (
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"contentpub/internal/history"
	"contentpub/internal/report"
)

func stamp(t *testing.T, value string) *time.Time {
	t.Helper()
	ts, err := time.ParseInLocation(history.TimestampLayout, value, time.Local)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return &ts
}

func topicRecords(t *testing.T) []history.Record {
	return []history.Record{
		{
			ID:     3,
			Status: history.StatusPending,
			Fields: history.Fields{
				history.FieldTopicMonth:  "01-May-2024",
				history.FieldXMLFiles:    "12",
				history.FieldImages:      "3",
				history.FieldDatabaseZip: "database-01-May-2024.zip",
				history.FieldImagesZip:   "01-May-2024-images.zip",
			},
		},
		{
			ID:           2,
			Timestamp:    stamp(t, "2024-04-01 14:05:09"),
			RawTimestamp: "2024-04-01 14:05:09",
			Status:       history.StatusCompleted,
			Fields: history.Fields{
				history.FieldTopicMonth:  "01-April-2024",
				history.FieldXMLFiles:    "10",
				history.FieldImages:      "4",
				history.FieldDatabaseZip: "database-01-April-2024.zip",
				history.FieldImagesZip:   "01-April-2024-images.zip",
			},
		},
		{
			ID:           1,
			RawTimestamp: "last tuesday",
			Status:       history.StatusInterrupted,
			Fields:       history.Fields{history.FieldTopicMonth: "01-March-2024"},
		},
	}
}

func TestBuildDisplayValues(t *testing.T) {
	table := report.Build(history.TopicUpload, topicRecords(t))

	wantHeaders := []string{"Uploaded Date & Time", "Topic Month", "No of XML Files", "No of Images", "Database ZIP", "Images ZIP", "Status"}
	if !reflect.DeepEqual(table.Headers, wantHeaders) {
		t.Fatalf("headers = %v", table.Headers)
	}
	if len(table.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(table.Rows))
	}
	if got := table.Rows[0][0]; got != report.PendingLabel {
		t.Fatalf("pending timestamp = %q", got)
	}
	if got := table.Rows[1][0]; got != "2024-04-01 02:05 PM" {
		t.Fatalf("display timestamp = %q", got)
	}
	if got := table.Rows[2][0]; got != "last tuesday" {
		t.Fatalf("unparsable timestamp should pass through, got %q", got)
	}
	if got := table.Rows[1][6]; got != "Completed" {
		t.Fatalf("status = %q", got)
	}
	if !table.Numeric[2] || !table.Numeric[3] || table.Numeric[1] {
		t.Fatalf("unexpected numeric flags %v", table.Numeric)
	}
}

func TestCanonicalTimestamp(t *testing.T) {
	cases := map[string]string{
		"2024-04-01 02:05 PM": "2024-04-01 14:05:00",
		"Pending":             "Pending",
		"garbage":             "garbage",
	}
	for in, want := range cases {
		if got := report.CanonicalTimestamp(in); got != want {
			t.Fatalf("CanonicalTimestamp(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExportCSV(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 10, 19, 9, 8, 7, 0, time.Local)
	path, err := report.ExportCSV(dir, "topic_upload_history", report.Build(history.TopicUpload, topicRecords(t)), now)
	if err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	if want := filepath.Join(dir, "topic_upload_history_20261019_090807.csv"); path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	bom := []byte{0xEF, 0xBB, 0xBF}
	if !bytes.HasPrefix(data, bom) {
		t.Fatalf("expected UTF-8 BOM, got % x", data[:3])
	}
	rows, err := csv.NewReader(bytes.NewReader(data[len(bom):])).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "Uploaded Date & Time" {
		t.Fatalf("header = %v", rows[0])
	}
	if rows[1][0] != "Pending" || rows[2][0] != "2024-04-01 14:05:09" || rows[3][0] != "last tuesday" {
		t.Fatalf("unexpected timestamps %q %q %q", rows[1][0], rows[2][0], rows[3][0])
	}
	if rows[2][2] != "10" {
		t.Fatalf("xml count = %q", rows[2][2])
	}
}

func TestExportCSVEmptyHistory(t *testing.T) {
	dir := t.TempDir()
	_, err := report.ExportCSV(dir, "teton_export_history", report.Build(history.ContentExport, nil), time.Now())
	if !errors.Is(err, report.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no file written, found %d", len(entries))
	}
}
