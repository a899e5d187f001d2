// Package monitor waits on launched jobs off the main goroutine and records
// their outcome.
//
// A zero exit runs the job's Verify hook: success marks the record completed
// with a timestamp, a verification error marks it failed. Any other exit code
// marks it interrupted. Wait errors and panics become failed. The result is
// delivered as a single Event on a channel; presentation is left to the
// receiver.
package monitor
