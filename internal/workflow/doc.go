// Package workflow runs the operator tasks: topic upload and its filter job,
// the search index update, and the content export.
//
// Each task acquires its tracker, records a pending operation, launches the
// external job and hands it to the monitor. Loop is the only consumer of
// monitor events and the only place outcomes are shown to the operator or
// pushed to ntfy. Errors raised before a job starts are shown once through
// the prompter and returned marked as reported.
package workflow
