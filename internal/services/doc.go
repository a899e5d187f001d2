// Package services defines small shared utilities used by the workflows.
//
// Key responsibilities:
//   - Context helpers that stamp the task type, history record id, and run
//     correlation id for logging.
//   - Structured error markers plus the Wrap helper so failures carry the task
//     and step that produced them, and Hint for operator-facing advice.
package services
