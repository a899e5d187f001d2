// Package history is the durable operation record store.
//
// Each task type (topic upload, index update, content export) keeps its
// records in its own SQLite database inside a task-specific history folder.
// A record is created pending with no timestamp before its external process
// starts and is resolved exactly once to completed, interrupted, or failed.
// The completion timestamp is written if and only if the status is completed.
//
// Databases created by earlier releases without a status column are upgraded
// on open: the column is added and existing rows are backfilled to completed.
// The upgrade is versioned through a schema_version table and is idempotent.
package history
