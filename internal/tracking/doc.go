// Package tracking holds the per-task tracking context: the history store,
// the id of the operation currently in flight, and the guard that keeps a
// second operation of the same task from starting while one is pending.
//
// The guard is both in-process and cross-process (a lock file next to the
// task's database). A task whose store cannot be opened still runs its
// operations untracked; Tracker.Warning surfaces that once.
package tracking
