package fileutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCopyVerified(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "database.zip")
	dst := filepath.Join(dir, "drop", "database.zip")
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		t.Fatal(err)
	}

	content := make([]byte, 64*1024)
	for i := range content {
		content[i] = byte(i % 251)
	}
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}
	old := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := os.Chtimes(src, old, old); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dst, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CopyVerified(src, dst); err != nil {
		t.Fatalf("CopyVerified: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(content) {
		t.Fatalf("size mismatch: got %d, want %d", len(got), len(content))
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(old) {
		t.Fatalf("mod time = %v, want %v", info.ModTime(), old)
	}

	entries, err := os.ReadDir(filepath.Dir(dst))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected temp file cleaned up, found %d entries", len(entries))
	}
}

func TestCopyVerifiedMissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := CopyVerified(filepath.Join(dir, "nope"), filepath.Join(dir, "dst")); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestCopyPreserving(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "CONTENT.xml")
	if err := os.WriteFile(src, []byte("<x/>"), 0o644); err != nil {
		t.Fatal(err)
	}
	old := time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := os.Chtimes(src, old, old); err != nil {
		t.Fatal(err)
	}

	dst := filepath.Join(dir, "archive", "2026-10-19", "CONTENT.xml")
	if err := CopyPreserving(src, dst); err != nil {
		t.Fatalf("CopyPreserving: %v", err)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(old) {
		t.Fatalf("mod time = %v, want %v", info.ModTime(), old)
	}
}

func TestRemoveDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "work")
	if err := os.MkdirAll(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}

	removed, err := RemoveDir(dir)
	if err != nil || !removed {
		t.Fatalf("RemoveDir = %v, %v", removed, err)
	}
	if Exists(dir) {
		t.Fatal("directory still exists")
	}

	removed, err = RemoveDir(dir)
	if err != nil || removed {
		t.Fatalf("second RemoveDir = %v, %v", removed, err)
	}
}

func TestIsDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if !IsDir(dir) || IsDir(file) || IsDir(filepath.Join(dir, "missing")) {
		t.Fatal("IsDir returned unexpected result")
	}
}
