package services

import "context"

type contextKey string

const (
	taskKey        contextKey = "task"
	operationIDKey contextKey = "operation_id"
	runIDKey       contextKey = "run_id"
)

// WithTask annotates context with the task type.
func WithTask(ctx context.Context, task string) context.Context {
	if task == "" {
		return ctx
	}
	return context.WithValue(ctx, taskKey, task)
}

// TaskFromContext returns the task type if present.
func TaskFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(taskKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithOperationID annotates context with the history record identifier.
// Untracked operations (id <= 0) leave the context unchanged.
func WithOperationID(ctx context.Context, id int64) context.Context {
	if id <= 0 {
		return ctx
	}
	return context.WithValue(ctx, operationIDKey, id)
}

// OperationIDFromContext extracts the history record identifier if present.
func OperationIDFromContext(ctx context.Context) (int64, bool) {
	v, ok := ctx.Value(operationIDKey).(int64)
	return v, ok
}

// WithRunID annotates context with a correlation identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the correlation identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
