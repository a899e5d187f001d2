package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"contentpub/internal/history"
	"contentpub/internal/logging"
)

// Waiter is a started external process.
type Waiter interface {
	Wait() (int, error)
}

// Recorder resolves and releases the operation record of a job. The
// tracking handle satisfies it.
type Recorder interface {
	ID() int64
	Resolve(ctx context.Context, status history.Status) error
	Release()
}

// Job is one launched process and the record tracking it.
type Job struct {
	Task    history.Task
	Process Waiter
	Record  Recorder
	// Detail describes the job for operators, e.g. the environment.
	Detail string
	// Verify runs after a zero exit. A non-nil error marks the job failed.
	Verify func(ctx context.Context) error
}

// Event reports the resolution of a job. Exactly one is sent per Watch.
type Event struct {
	Task     history.Task
	RecordID int64
	Detail   string
	ExitCode int
	Status   history.Status
	Err      error
	// Missing lists expected outputs absent after a zero exit.
	Missing  []string
	Duration time.Duration
}

// Failed reports whether the job ended in failure or interruption.
func (e Event) Failed() bool {
	return e.Status != history.StatusCompleted
}

// missingReporter is implemented by verification errors that know which
// files were absent.
type missingReporter interface {
	MissingFiles() []string
}

// Classify maps an exit code and verification result to a terminal status.
func Classify(exitCode int, verifyErr error) history.Status {
	switch {
	case exitCode != 0:
		return history.StatusInterrupted
	case verifyErr != nil:
		return history.StatusFailed
	default:
		return history.StatusCompleted
	}
}

// Watch waits for the job's process on its own goroutine, resolves the record
// and sends one Event on the returned channel before closing it. It never
// prints or prompts; the receiver presents the outcome.
func Watch(ctx context.Context, job Job, logger *slog.Logger) <-chan Event {
	if logger == nil {
		logger = logging.NewNop()
	}
	events := make(chan Event, 1)
	go func() {
		defer close(events)
		events <- run(context.WithoutCancel(ctx), job, logger)
	}()
	return events
}

func run(ctx context.Context, job Job, logger *slog.Logger) (evt Event) {
	start := time.Now()
	evt = Event{Task: job.Task, Detail: job.Detail, ExitCode: -1}
	if job.Record != nil {
		evt.RecordID = job.Record.ID()
	}
	logger = logger.With(
		logging.String(logging.FieldTask, job.Task.Key),
		logging.Int64(logging.FieldOperationID, evt.RecordID),
	)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("monitor panic",
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())),
				logging.String(logging.FieldEventType, "monitor_panic"),
			)
			evt.Status = history.StatusFailed
			evt.Err = fmt.Errorf("monitor panic: %v", r)
			evt = finish(ctx, job, evt, logger)
		}
		evt.Duration = time.Since(start)
		if job.Record != nil {
			job.Record.Release()
		}
	}()

	if job.Process == nil {
		evt.Status = history.StatusFailed
		evt.Err = errors.New("no process to monitor")
		return finish(ctx, job, evt, logger)
	}

	code, err := job.Process.Wait()
	evt.ExitCode = code
	if err != nil {
		evt.Status = history.StatusFailed
		evt.Err = err
		return finish(ctx, job, evt, logger)
	}

	var verifyErr error
	if code == 0 && job.Verify != nil {
		verifyErr = job.Verify(ctx)
	}
	evt.Status = Classify(code, verifyErr)
	if verifyErr != nil {
		evt.Err = verifyErr
		var mr missingReporter
		if errors.As(verifyErr, &mr) {
			evt.Missing = mr.MissingFiles()
		}
	}
	return finish(ctx, job, evt, logger)
}

func finish(ctx context.Context, job Job, evt Event, logger *slog.Logger) Event {
	if job.Record != nil {
		if err := job.Record.Resolve(ctx, evt.Status); err != nil {
			logger.Error("failed to record operation outcome",
				logging.String("status", string(evt.Status)),
				logging.Error(err),
				logging.String(logging.FieldEventType, "resolve_failed"),
			)
			evt.Err = errors.Join(evt.Err, err)
		}
	}
	logger.Info("external job finished",
		logging.Int("exit_code", evt.ExitCode),
		logging.String("status", string(evt.Status)),
		logging.String(logging.FieldEventType, "job_finished"),
	)
	return evt
}
