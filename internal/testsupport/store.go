package testsupport

import (
	"context"
	"testing"

	"contentpub/internal/config"
	"contentpub/internal/history"
)

// MustOpenStore opens the history store for task under cfg's data dir and
// registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config, task history.Task) *history.Store {
	t.Helper()

	store, err := history.Open(context.Background(), task.StorePath(cfg.Paths.DataDir), task.Layout)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustList returns every record of store.
func MustList(t testing.TB, store *history.Store) []history.Record {
	t.Helper()

	records, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	return records
}
