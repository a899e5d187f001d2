package logging

import (
	"context"
	"log/slog"

	"contentpub/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldTask is the standardized structured logging key for task types (topic_upload, ...).
	FieldTask = "task"
	// FieldOperationID is the standardized structured logging key for history record identifiers.
	FieldOperationID = "operation_id"
	// FieldRunID correlates every line written by one command invocation.
	FieldRunID = "run_id"
	// FieldEventType classifies warnings and errors.
	FieldEventType = "event_type"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldErrorHint suggests what the operator can do about an error.
	FieldErrorHint = "error_hint"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if task, ok := services.TaskFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldTask, task))
	}
	if id, ok := services.OperationIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldOperationID, id))
	}
	if rid, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	args := make([]any, 0, len(fields))
	for _, f := range fields {
		args = append(args, f)
	}
	return logger.With(args...)
}
