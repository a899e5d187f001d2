// Package logging assembles structured slog loggers for contentpub.
//
// It owns the console and JSON handlers, writes to a size-rotated log file in
// the configured log directory, and exposes context-aware helpers that tag log
// lines with the task type, history record id, and run correlation id. A no-op
// logger is provided for tests and wiring code that cannot fail.
package logging
