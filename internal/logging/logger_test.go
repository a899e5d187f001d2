package logging_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"contentpub/internal/config"
	"contentpub/internal/logging"
	"contentpub/internal/services"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestNewFromConfigWritesRotatingFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")

	logger, err := logging.NewFromConfig(&cfg, false)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("history opened", logging.String("task", "topic_upload"))

	content := readLog(t, filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if !strings.Contains(content, "history opened") || !strings.Contains(content, "task=topic_upload") {
		t.Fatalf("unexpected log content %q", content)
	}
}

func TestConsoleFormatPutsComponentBeforeMessage(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "monitor").Info("process exited", logging.Int("exit_code", 3), logging.String("path", "C:/Program Files/job.bat"))

	content := readLog(t, logPath)
	if !strings.Contains(content, "INFO monitor: process exited") {
		t.Fatalf("expected component prefix, got %q", content)
	}
	if !strings.Contains(content, "exit_code=3") {
		t.Fatalf("expected exit code field, got %q", content)
	}
	if !strings.Contains(content, `path="C:/Program Files/job.bat"`) {
		t.Fatalf("expected quoted path, got %q", content)
	}
	if strings.Contains(content, ".go:") {
		t.Fatalf("expected no source location at info level, got %q", content)
	}
}

func TestConsoleFormatFlattensGroups(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "groups.log")
	logger, err := logging.New(logging.Options{Format: "console", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.WithGroup("record").Info("resolved", logging.String("status", "completed"))

	if content := readLog(t, logPath); !strings.Contains(content, "record.status=completed") {
		t.Fatalf("expected grouped key, got %q", content)
	}
}

func TestJSONFormat(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "warn", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("dropped")
	logger.Warn("tracking unavailable", logging.Error(errors.New("disk full")))

	lines := strings.Split(strings.TrimSpace(readLog(t, logPath)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected a single warn line, got %d: %v", len(lines), lines)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if entry["level"] != "warn" {
		t.Fatalf("expected lowercase level, got %v", entry["level"])
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", entry)
	}
	if entry["error"] != "disk full" {
		t.Fatalf("expected error field, got %v", entry["error"])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsOperationFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "ctx.log")
	logger, err := logging.New(logging.Options{Format: "console", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithTask(context.Background(), "content_export")
	ctx = services.WithOperationID(ctx, 42)
	ctx = services.WithRunID(ctx, "run-1")
	logging.WithContext(ctx, logger).Info("launching")

	content := readLog(t, logPath)
	for _, want := range []string{"task=content_export", "operation_id=42", "run_id=run-1"} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected %q in %q", want, content)
		}
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), 12) {
		t.Fatal("expected nop logger to be disabled")
	}
	logging.WarnWithImpact(nil, "ignored", "test", "none")
}
