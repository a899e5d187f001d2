package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"contentpub/internal/history"
	"contentpub/internal/logging"
	"contentpub/internal/prompt"
	"contentpub/internal/services"
)

// ErrVerificationFailed indicates an export finished without producing every
// expected file.
var ErrVerificationFailed = errors.New("export verification failed")

// VerificationError lists the expected files that were not found.
type VerificationError struct {
	Dir     string
	Missing []string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("%s: missing in %s: %s", ErrVerificationFailed, e.Dir, strings.Join(e.Missing, ", "))
}

func (e *VerificationError) Unwrap() error { return ErrVerificationFailed }

// MissingFiles returns the expected files that were not found.
func (e *VerificationError) MissingFiles() []string {
	return append([]string(nil), e.Missing...)
}

// reportedError marks an error the operator has already been shown.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// Reported reports whether err was already presented through the prompter.
func Reported(err error) bool {
	var r *reportedError
	return errors.As(err, &r)
}

// fail logs err, shows it to the operator, and publishes it. The returned
// error wraps err and is marked as reported.
func (m *Manager) fail(ctx context.Context, task history.Task, err error) error {
	if err == nil || Reported(err) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	_, logger := m.taskContext(ctx, task)
	hint := services.Hint(err)
	logger.Error("operation failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, hint),
		logging.String(logging.FieldEventType, "operation_failed"),
	)
	msg := err.Error()
	if hint != "" {
		msg += "\nHint: " + hint
	}
	m.prompter.Notify(prompt.LevelError, task.Title+" Failed", msg)
	_ = m.publishError(ctx, task, err)
	return &reportedError{err: err}
}
