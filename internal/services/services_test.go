package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"contentpub/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "content_export", "launch", "batch failed", base)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"content_export", "launch", "batch failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "operation failure") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestHint(t *testing.T) {
	if got := services.Hint(nil); got != "" {
		t.Fatalf("expected empty hint for nil, got %q", got)
	}
	err := services.Wrap(services.ErrNotFound, "index_update", "resolve", "missing", nil)
	if got := services.Hint(err); !strings.Contains(got, "doctor") {
		t.Fatalf("unexpected hint %q", got)
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	if _, ok := services.TaskFromContext(ctx); ok {
		t.Fatal("expected no task on empty context")
	}

	ctx = services.WithTask(ctx, "topic_upload")
	ctx = services.WithOperationID(ctx, 7)
	ctx = services.WithRunID(ctx, "abc")

	if task, ok := services.TaskFromContext(ctx); !ok || task != "topic_upload" {
		t.Fatalf("unexpected task %q", task)
	}
	if id, ok := services.OperationIDFromContext(ctx); !ok || id != 7 {
		t.Fatalf("unexpected operation id %d", id)
	}
	if rid, ok := services.RunIDFromContext(ctx); !ok || rid != "abc" {
		t.Fatalf("unexpected run id %q", rid)
	}

	untracked := services.WithOperationID(context.Background(), 0)
	if _, ok := services.OperationIDFromContext(untracked); ok {
		t.Fatal("expected untracked operation to leave context unchanged")
	}
}
