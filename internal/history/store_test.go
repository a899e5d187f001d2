package history_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"contentpub/internal/history"
)

var folderLayout = history.Layout{
	Table:           "operations",
	TimestampColumn: "recorded_at",
	TimestampHeader: "Recorded",
	Columns: []history.Column{
		{Name: "folder", Header: "Folder"},
	},
}

func openStore(t *testing.T, path string, layout history.Layout, opts ...history.Option) *history.Store {
	t.Helper()
	store, err := history.Open(context.Background(), path, layout, opts...)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// steppingClock returns a clock that advances one minute per call.
func steppingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Minute)
		return current
	}
}

func TestScenarioInterruptedKeepsNullTimestamp(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, filepath.Join(t.TempDir(), "ops.db"), folderLayout)

	id, err := store.CreatePending(ctx, history.Fields{"folder": "2024-05-01"})
	if err != nil {
		t.Fatalf("CreatePending: %v", err)
	}
	if id != 1 {
		t.Fatalf("expected first id to be 1, got %d", id)
	}
	if err := store.UpdateStatus(ctx, id, history.StatusInterrupted, false); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	records, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
	if records[0].Status != history.StatusInterrupted {
		t.Fatalf("expected interrupted, got %s", records[0].Status)
	}
	if records[0].Timestamp != nil || records[0].RawTimestamp != "" {
		t.Fatalf("expected null timestamp, got %v %q", records[0].Timestamp, records[0].RawTimestamp)
	}
	if records[0].Field("folder") != "2024-05-01" {
		t.Fatalf("unexpected folder %q", records[0].Field("folder"))
	}
}

func TestScenarioCompletedStampsCanonicalTime(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, filepath.Join(t.TempDir(), "ops.db"), folderLayout)

	if _, err := store.CreatePending(ctx, history.Fields{"folder": "2024-05-01"}); err != nil {
		t.Fatalf("CreatePending: %v", err)
	}
	id, err := store.CreatePending(ctx, history.Fields{"folder": "2024-05-02"})
	if err != nil {
		t.Fatalf("CreatePending: %v", err)
	}
	if id != 2 {
		t.Fatalf("expected id 2, got %d", id)
	}
	if err := store.UpdateStatus(ctx, 1, history.StatusInterrupted, false); err != nil {
		t.Fatalf("UpdateStatus(1): %v", err)
	}
	if err := store.UpdateStatus(ctx, id, history.StatusCompleted, true); err != nil {
		t.Fatalf("UpdateStatus(2): %v", err)
	}

	record, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if record.Status != history.StatusCompleted {
		t.Fatalf("expected completed, got %s", record.Status)
	}
	pattern := regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`)
	if !pattern.MatchString(record.RawTimestamp) {
		t.Fatalf("timestamp %q does not match YYYY-MM-DD HH:MM:SS", record.RawTimestamp)
	}
	if record.Timestamp == nil {
		t.Fatal("expected parsed timestamp")
	}
}

func TestCompletedAlwaysHasTimestamp(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, filepath.Join(t.TempDir(), "ops.db"), folderLayout)

	for i := 0; i < 10; i++ {
		id, err := store.CreatePending(ctx, history.Fields{"folder": fmt.Sprintf("f%d", i)})
		if err != nil {
			t.Fatalf("CreatePending: %v", err)
		}
		if err := store.UpdateStatus(ctx, id, history.StatusCompleted, true); err != nil {
			t.Fatalf("UpdateStatus: %v", err)
		}
		record, err := store.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if record.Status != history.StatusCompleted || record.Timestamp == nil {
			t.Fatalf("record %d: status=%s timestamp=%v", id, record.Status, record.Timestamp)
		}
	}
}

func TestUpdateStatusUnknownIDLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, filepath.Join(t.TempDir(), "ops.db"), folderLayout)

	id, err := store.CreatePending(ctx, history.Fields{"folder": "a"})
	if err != nil {
		t.Fatalf("CreatePending: %v", err)
	}
	before, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	err = store.UpdateStatus(ctx, id+100, history.StatusCompleted, true)
	if !errors.Is(err, history.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}

	after, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(after) != len(before) {
		t.Fatalf("row count changed: %d -> %d", len(before), len(after))
	}
	if after[0].Status != history.StatusPending || after[0].RawTimestamp != "" {
		t.Fatalf("existing row changed: %+v", after[0])
	}
}

func TestStatusOnlyMovesForward(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, filepath.Join(t.TempDir(), "ops.db"), folderLayout)

	id, err := store.CreatePending(ctx, history.Fields{"folder": "a"})
	if err != nil {
		t.Fatalf("CreatePending: %v", err)
	}
	if err := store.UpdateStatus(ctx, id, history.StatusFailed, false); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if err := store.UpdateStatus(ctx, id, history.StatusCompleted, true); !errors.Is(err, history.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on second resolution, got %v", err)
	}
	if err := store.UpdateStatus(ctx, id, history.StatusPending, false); !errors.Is(err, history.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for pending target, got %v", err)
	}

	record, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if record.Status != history.StatusFailed || record.Timestamp != nil {
		t.Fatalf("expected failed without timestamp, got %+v", record)
	}
}

func TestTimestampRuleEnforced(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, filepath.Join(t.TempDir(), "ops.db"), folderLayout)

	id, err := store.CreatePending(ctx, history.Fields{"folder": "a"})
	if err != nil {
		t.Fatalf("CreatePending: %v", err)
	}
	if err := store.UpdateStatus(ctx, id, history.StatusCompleted, false); !errors.Is(err, history.ErrTimestampRule) {
		t.Fatalf("expected ErrTimestampRule for completed without timestamp, got %v", err)
	}
	if err := store.UpdateStatus(ctx, id, history.StatusInterrupted, true); !errors.Is(err, history.ErrTimestampRule) {
		t.Fatalf("expected ErrTimestampRule for interrupted with timestamp, got %v", err)
	}
	record, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !record.Pending() {
		t.Fatalf("expected record to remain pending, got %s", record.Status)
	}
}

func TestListOrdersPendingFirstThenNewest(t *testing.T) {
	ctx := context.Background()
	clock := steppingClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local))
	store := openStore(t, filepath.Join(t.TempDir(), "ops.db"), folderLayout, history.WithClock(clock))

	var ids []int64
	for i := 0; i < 5; i++ {
		id, err := store.CreatePending(ctx, history.Fields{"folder": fmt.Sprintf("f%d", i)})
		if err != nil {
			t.Fatalf("CreatePending: %v", err)
		}
		ids = append(ids, id)
	}
	// Complete 1, 3, 2 in that order so completion time differs from id order.
	for _, idx := range []int{1, 3, 2} {
		if err := store.UpdateStatus(ctx, ids[idx], history.StatusCompleted, true); err != nil {
			t.Fatalf("UpdateStatus: %v", err)
		}
	}

	records, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	got := make([]int64, len(records))
	for i, r := range records {
		got[i] = r.ID
	}
	want := []int64{ids[4], ids[0], ids[2], ids[3], ids[1]}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("unexpected order: got %v want %v", got, want)
	}

	seenTimestamp := false
	var previous time.Time
	for _, r := range records {
		if r.Timestamp == nil {
			if seenTimestamp {
				t.Fatalf("pending record %d listed after timestamped records", r.ID)
			}
			continue
		}
		if seenTimestamp && r.Timestamp.After(previous) {
			t.Fatalf("timestamps not descending at record %d", r.ID)
		}
		seenTimestamp = true
		previous = *r.Timestamp
	}
}

func TestLatestPending(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, filepath.Join(t.TempDir(), "ops.db"), folderLayout)

	if _, err := store.LatestPending(ctx); !errors.Is(err, history.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound on empty store, got %v", err)
	}
	first, _ := store.CreatePending(ctx, history.Fields{"folder": "a"})
	second, _ := store.CreatePending(ctx, history.Fields{"folder": "b"})
	if err := store.UpdateStatus(ctx, second, history.StatusInterrupted, false); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	record, err := store.LatestPending(ctx)
	if err != nil {
		t.Fatalf("LatestPending: %v", err)
	}
	if record.ID != first {
		t.Fatalf("expected record %d, got %d", first, record.ID)
	}
}

func TestCreatePendingValidatesFields(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, filepath.Join(t.TempDir(), "uploads.db"), history.TopicUpload.Layout)

	if _, err := store.CreatePending(ctx, history.Fields{"bogus": "x"}); !errors.Is(err, history.ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
	if _, err := store.CreatePending(ctx, history.Fields{history.FieldXMLFiles: "many"}); err == nil {
		t.Fatal("expected integer validation error")
	}

	id, err := store.CreatePending(ctx, history.Fields{
		history.FieldTopicMonth:  "01-May-2024",
		history.FieldXMLFiles:    "12",
		history.FieldImages:      "3",
		history.FieldDatabaseZip: "database-01-May-2024.zip",
		history.FieldImagesZip:   "01-May-2024-images.zip",
	})
	if err != nil {
		t.Fatalf("CreatePending: %v", err)
	}
	record, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if record.Field(history.FieldXMLFiles) != "12" || record.Field(history.FieldImages) != "3" {
		t.Fatalf("unexpected counts: %+v", record.Fields)
	}
	if n, err := store.Count(ctx); err != nil || n != 1 {
		t.Fatalf("Count = %d, %v", n, err)
	}
}

func TestConcurrentResolutionFromGoroutines(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, filepath.Join(t.TempDir(), "ops.db"), folderLayout)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := store.CreatePending(ctx, history.Fields{"folder": fmt.Sprintf("w%d", i)})
			if err != nil {
				errs <- err
				return
			}
			if err := store.UpdateStatus(ctx, id, history.StatusCompleted, true); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("worker error: %v", err)
	}

	counts, err := store.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if counts[history.StatusCompleted] != workers {
		t.Fatalf("expected %d completed records, got %v", workers, counts)
	}
}

func TestStoreRejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ops.db")
	store := openStore(t, path, folderLayout)
	_ = store.Close()

	db := rawDB(t, path)
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = db.Close()

	if _, err := history.Open(context.Background(), path, folderLayout); !errors.Is(err, history.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestLayoutValidation(t *testing.T) {
	bad := history.Layout{Table: "drop table", TimestampColumn: "ts", Columns: []history.Column{{Name: "a"}}}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected invalid table name error")
	}
	dup := history.Layout{Table: "t", TimestampColumn: "ts", Columns: []history.Column{{Name: "status"}}}
	if err := dup.Validate(); err == nil {
		t.Fatal("expected reserved column error")
	}
	for _, task := range history.Tasks() {
		if err := task.Layout.Validate(); err != nil {
			t.Fatalf("task %s layout invalid: %v", task.Key, err)
		}
	}
}

func TestLookupTask(t *testing.T) {
	for input, want := range map[string]string{
		"topic":          history.TopicUpload.Key,
		"topic-upload":   history.TopicUpload.Key,
		"index":          history.IndexUpdate.Key,
		"export":         history.ContentExport.Key,
		"content_export": history.ContentExport.Key,
	} {
		task, err := history.LookupTask(input)
		if err != nil {
			t.Fatalf("LookupTask(%q): %v", input, err)
		}
		if task.Key != want {
			t.Fatalf("LookupTask(%q) = %s, want %s", input, task.Key, want)
		}
	}
	if _, err := history.LookupTask("nope"); err == nil {
		t.Fatal("expected error for unknown task")
	}
}

func rawDB(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	return db
}
