package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes task and step context while
// tagging it with the provided marker for later classification. The marker
// should be one of the exported sentinel errors above.
func Wrap(marker error, task, operation, message string, err error) error {
	detail := buildDetail(task, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Hint returns a short operator-facing suggestion for a wrapped error.
func Hint(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return "check the configuration file (contentpub config show)"
	case errors.Is(err, ErrNotFound):
		return "verify the path exists (contentpub doctor)"
	case errors.Is(err, ErrValidation):
		return "check the selected input files"
	case errors.Is(err, ErrExternalTool):
		return "inspect the job console output"
	default:
		return "check the log file for details"
	}
}

func buildDetail(task, operation, message string) string {
	parts := make([]string, 0, 3)
	if task = strings.TrimSpace(task); task != "" {
		parts = append(parts, task)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "operation failure"
	}
	return strings.Join(parts, ": ")
}
