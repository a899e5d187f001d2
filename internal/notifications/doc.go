// Package notifications pushes operation milestones to ntfy.
//
// Without a configured topic the service is a no-op. Per-category switches
// in [notifications] decide which events are sent: started, completed, and
// problems (interrupted, failed, errors). Test notifications are always sent.
package notifications
