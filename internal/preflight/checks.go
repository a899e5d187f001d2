package preflight

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	"contentpub/internal/history"
)

// CheckDirectoryExists verifies that path is an existing directory.
func CheckDirectoryExists(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckDirectoryAccess verifies that the directory exists and is readable
// and writable.
func CheckDirectoryAccess(name, path string) Result {
	if r := CheckDirectoryExists(name, path); !r.Passed {
		return r
	}
	if err := accessReadWrite(path); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckExecutable verifies that a vendor job exists and can be started.
func CheckExecutable(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: not found)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if err := accessExecute(path); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not executable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckStore opens a task's history store, upgrading its schema if needed,
// and reports how many records it holds.
func CheckStore(ctx context.Context, task history.Task, dataDir string, busy time.Duration) Result {
	name := task.Title + " history"
	var opts []history.Option
	if busy > 0 {
		opts = append(opts, history.WithBusyTimeout(busy))
	}
	store, err := history.Open(ctx, task.StorePath(dataDir), task.Layout, opts...)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("unavailable (%v)", err)}
	}
	defer store.Close()

	counts, err := store.CountByStatus(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("unreadable (%v)", err)}
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	detail := fmt.Sprintf("%d records", total)
	if pending := counts[history.StatusPending]; pending > 0 {
		detail = fmt.Sprintf("%s, %d pending", detail, pending)
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckNtfy verifies that the ntfy topic URL answers.
func CheckNtfy(ctx context.Context, topicURL string) Result {
	const name = "ntfy"

	base := strings.TrimRight(strings.TrimSpace(topicURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "not configured"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/json?poll=1&since=1s", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("check failed (%v)", err)}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("unreachable (%v)", err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return Result{Name: name, Passed: true, Detail: "Reachable"}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Result{Name: name, Detail: "topic requires authentication"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("check failed (%d)", resp.StatusCode)}
	}
}
