package tracking_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"contentpub/internal/history"
	"contentpub/internal/tracking"
)

func openTracker(t *testing.T, dataDir string) *tracking.Tracker {
	t.Helper()
	tr := tracking.Open(context.Background(), history.IndexUpdate, dataDir, 5*time.Second, nil)
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func envFields(env string) history.Fields {
	return history.Fields{history.FieldEnvironment: env, history.FieldExecutable: "/opt/jobs/index"}
}

func TestBeginResolveRelease(t *testing.T) {
	ctx := context.Background()
	tr := openTracker(t, t.TempDir())
	if !tr.Available() {
		t.Fatalf("expected tracker to be available: %v", tr.Warning())
	}

	h, err := tr.Begin(ctx, envFields("UAT"))
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if h.ID() <= 0 {
		t.Fatalf("expected positive id, got %d", h.ID())
	}
	if tr.Current() != h.ID() {
		t.Fatalf("current = %d, want %d", tr.Current(), h.ID())
	}

	if err := h.Resolve(ctx, history.StatusCompleted); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	h.Release()
	h.Release()
	if tr.Current() != 0 {
		t.Fatalf("expected current cleared, got %d", tr.Current())
	}

	rec, err := tr.Store().Get(ctx, h.ID())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Status != history.StatusCompleted || rec.Timestamp == nil {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestInterruptedLeavesTimestampEmpty(t *testing.T) {
	ctx := context.Background()
	tr := openTracker(t, t.TempDir())
	h, err := tr.Begin(ctx, envFields("Production"))
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer h.Release()
	if err := h.Resolve(ctx, history.StatusInterrupted); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	rec, err := tr.Store().Get(ctx, h.ID())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Status != history.StatusInterrupted || rec.Timestamp != nil {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestSecondBeginWhilePendingFails(t *testing.T) {
	ctx := context.Background()
	tr := openTracker(t, t.TempDir())
	first, err := tr.Begin(ctx, envFields("UAT"))
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	if _, err := tr.Begin(ctx, envFields("UAT")); !errors.Is(err, tracking.ErrOperationInFlight) {
		t.Fatalf("expected ErrOperationInFlight, got %v", err)
	}
	count, err := tr.Store().Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one record, got %d", count)
	}

	first.Release()
	second, err := tr.Begin(ctx, envFields("UAT"))
	if err != nil {
		t.Fatalf("Begin after release: %v", err)
	}
	second.Release()
}

func TestLockSpansTrackers(t *testing.T) {
	ctx := context.Background()
	dataDir := t.TempDir()
	a := openTracker(t, dataDir)
	b := openTracker(t, dataDir)

	h, err := a.Begin(ctx, envFields("UAT"))
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := b.Begin(ctx, envFields("UAT")); !errors.Is(err, tracking.ErrOperationInFlight) {
		t.Fatalf("expected lock contention, got %v", err)
	}
	h.Release()
	h2, err := b.Begin(ctx, envFields("UAT"))
	if err != nil {
		t.Fatalf("Begin after release: %v", err)
	}
	h2.Release()
}

func TestResolveMissingRecordIsSwallowed(t *testing.T) {
	ctx := context.Background()
	tr := openTracker(t, t.TempDir())
	h, err := tr.Begin(ctx, envFields("UAT"))
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer h.Release()

	db, err := sql.Open("sqlite", tr.Store().Path())
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	defer db.Close()
	if _, err := db.ExecContext(ctx, "DELETE FROM index_updates WHERE id = ?", h.ID()); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if err := h.Resolve(ctx, history.StatusCompleted); err != nil {
		t.Fatalf("expected missing record to be ignored, got %v", err)
	}
	count, err := tr.Store().Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected store unchanged, got %d records", count)
	}
}

func TestUnavailableStoreRunsUntracked(t *testing.T) {
	ctx := context.Background()
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	// A regular file where the data directory should be makes MkdirAll fail.
	tr := tracking.Open(ctx, history.ContentExport, blocker, 0, nil)
	if tr.Available() {
		t.Fatal("expected tracker to be unavailable")
	}
	if err := tr.Warning(); !errors.Is(err, tracking.ErrTrackingUnavailable) {
		t.Fatalf("expected ErrTrackingUnavailable, got %v", err)
	}
	if err := tr.Warning(); err != nil {
		t.Fatalf("expected warning only once, got %v", err)
	}

	h, err := tr.Begin(ctx, history.Fields{history.FieldExportFolder: "x"})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if h.Tracked() || h.ID() != 0 {
		t.Fatalf("expected untracked handle, got id %d", h.ID())
	}
	if err := h.Resolve(ctx, history.StatusCompleted); err != nil {
		t.Fatalf("Resolve untracked: %v", err)
	}
	h.Release()
}

func TestAdoptRejectsResolvedRecord(t *testing.T) {
	ctx := context.Background()
	tr := openTracker(t, t.TempDir())
	h, err := tr.Begin(ctx, envFields("UAT"))
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := h.Resolve(ctx, history.StatusFailed); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	h.Release()

	if _, err := tr.Adopt(ctx, h.ID()); !errors.Is(err, history.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if _, err := tr.Adopt(ctx, 9999); !errors.Is(err, history.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestAcquireThenRecord(t *testing.T) {
	ctx := context.Background()
	tr := openTracker(t, t.TempDir())

	h, err := tr.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if h.Tracked() {
		t.Fatal("acquired handle should not have a record yet")
	}
	if _, err := tr.Begin(ctx, envFields("UAT")); !errors.Is(err, tracking.ErrOperationInFlight) {
		t.Fatalf("expected slot to be held, got %v", err)
	}
	count, err := tr.Store().Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no records before Record, got %d", count)
	}

	if err := h.Record(ctx, envFields("UAT")); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if !h.Tracked() || tr.Current() != h.ID() {
		t.Fatalf("expected current id %d, got %d", h.ID(), tr.Current())
	}
	if err := h.Record(ctx, envFields("UAT")); err == nil {
		t.Fatal("expected second Record to fail")
	}
	h.Release()
}
