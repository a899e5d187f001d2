package history

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle of a tracked operation.
type Status string

const (
	StatusPending     Status = "pending"
	StatusCompleted   Status = "completed"
	StatusInterrupted Status = "interrupted"
	StatusFailed      Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusCompleted,
	StatusInterrupted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// ParseStatus converts a string into a Status, validating membership.
func ParseStatus(value string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(value)))
	_, ok := statusSet[s]
	return s, ok
}

// Terminal reports whether the status resolves an operation.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusInterrupted || s == StatusFailed
}

// TimestampLayout is the canonical storage format for completion times.
const TimestampLayout = "2006-01-02 15:04:05"

var (
	// ErrRecordNotFound indicates the targeted record id is absent from the store.
	ErrRecordNotFound = errors.New("history record not found")
	// ErrInvalidTransition indicates an attempt to move a record anywhere but
	// forward out of pending.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrTimestampRule indicates a completion time requested for a non-completed
	// status, or omitted for a completed one.
	ErrTimestampRule = errors.New("timestamp is set if and only if status is completed")
	// ErrSchemaMismatch indicates a database written by a newer release.
	ErrSchemaMismatch = errors.New("schema version mismatch")
	// ErrUnknownField indicates descriptive fields that the task layout does not declare.
	ErrUnknownField = errors.New("unknown history field")
)

// Fields holds operation-specific descriptive values keyed by column name.
type Fields map[string]string

// Record is one tracked operation.
type Record struct {
	ID int64
	// Timestamp is nil until the operation completes.
	Timestamp *time.Time
	// RawTimestamp keeps the stored value, including values that fail to parse.
	RawTimestamp string
	Status       Status
	Fields       Fields
}

// Pending reports whether the record has not been resolved yet.
func (r Record) Pending() bool {
	return r.Status == StatusPending
}

// Field returns the named descriptive value or an empty string.
func (r Record) Field(name string) string {
	if r.Fields == nil {
		return ""
	}
	return r.Fields[name]
}

func parseTimestamp(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if ts, err := time.ParseInLocation(TimestampLayout, raw, time.Local); err == nil {
		return &ts, nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		local := ts.Local()
		return &local, nil
	}
	return nil, fmt.Errorf("parse timestamp %q", raw)
}
