package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"contentpub/internal/config"
	"contentpub/internal/history"
	"contentpub/internal/launcher"
	"contentpub/internal/logging"
	"contentpub/internal/monitor"
	"contentpub/internal/notifications"
	"contentpub/internal/prompt"
	"contentpub/internal/services"
	"contentpub/internal/tracking"
)

// LaunchFunc starts an external job.
type LaunchFunc func(ctx context.Context, spec launcher.Spec) (monitor.Waiter, error)

// Manager runs the operator tasks. It owns one tracker per task type and is
// the only place that presents job outcomes.
type Manager struct {
	cfg      *config.Config
	prompter prompt.Prompter
	notifier notifications.Service
	logger   *slog.Logger
	launch   LaunchFunc
	now      func() time.Time

	mu       sync.Mutex
	trackers map[string]*tracking.Tracker
}

// Option configures optional Manager behaviour.
type Option func(*Manager)

// WithNotifier replaces the notifier built from config.
func WithNotifier(n notifications.Service) Option {
	return func(m *Manager) {
		if n != nil {
			m.notifier = n
		}
	}
}

// WithLauncher replaces the process launcher.
func WithLauncher(fn LaunchFunc) Option {
	return func(m *Manager) {
		if fn != nil {
			m.launch = fn
		}
	}
}

// WithClock replaces the clock used for dated export folders.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, prompter prompt.Prompter, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		cfg:      cfg,
		prompter: prompter,
		notifier: notifications.NewService(cfg),
		logger:   logging.NewComponentLogger(logger, "workflow"),
		launch:   launchProcess,
		now:      time.Now,
		trackers: make(map[string]*tracking.Tracker),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func launchProcess(ctx context.Context, spec launcher.Spec) (monitor.Waiter, error) {
	proc, err := launcher.Launch(ctx, spec)
	if err != nil {
		return nil, err
	}
	return proc, nil
}

// Tracker returns the tracker for task, opening its store on first use. An
// unavailable store is reported to the operator once.
func (m *Manager) Tracker(ctx context.Context, task history.Task) *tracking.Tracker {
	m.mu.Lock()
	tr, ok := m.trackers[task.Key]
	if !ok {
		busy := time.Duration(m.cfg.Store.BusyTimeoutSeconds) * time.Second
		tr = tracking.Open(ctx, task, m.cfg.Paths.DataDir, busy, m.logger)
		m.trackers[task.Key] = tr
	}
	m.mu.Unlock()

	if err := tr.Warning(); err != nil {
		m.prompter.Notify(prompt.LevelWarning, "History Unavailable",
			"Could not open the "+task.Title+" history. The operation will run but its outcome will not be saved.")
	}
	return tr
}

// Close releases every tracker.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	for key, tr := range m.trackers {
		if err := tr.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(m.trackers, key)
	}
	return errors.Join(errs...)
}

func (m *Manager) taskContext(ctx context.Context, task history.Task) (context.Context, *slog.Logger) {
	ctx = services.WithTask(ctx, task.Key)
	return ctx, logging.WithContext(ctx, m.logger)
}

func (m *Manager) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Publish(ctx, event, payload); err != nil {
		if errors.Is(err, context.Canceled) {
			m.logger.Debug("shutting down, notification not sent")
			return
		}
		m.logger.Debug("notification failed", logging.String("event", string(event)), logging.Error(err))
	}
}

// publishError sends an error notification for a task that failed before
// any job was launched and returns err unchanged.
func (m *Manager) publishError(ctx context.Context, task history.Task, err error) error {
	if err == nil {
		return nil
	}
	m.publish(ctx, notifications.EventError, notifications.Payload{
		"context": task.Title,
		"error":   err,
	})
	return err
}

// start launches spec and hands the process to the monitor. On failure the
// handle is resolved with failStatus (when non-empty) and released.
func (m *Manager) start(ctx context.Context, task history.Task, h *tracking.Handle, spec launcher.Spec, detail string, verify func(context.Context) error, failStatus history.Status) (<-chan monitor.Event, error) {
	ctx, logger := m.taskContext(services.WithOperationID(ctx, h.ID()), task)

	proc, err := m.launch(ctx, spec)
	if err != nil {
		if failStatus != "" {
			if rerr := h.Resolve(ctx, failStatus); rerr != nil {
				logger.Error("failed to record launch failure", logging.Error(rerr))
			}
		}
		h.Release()
		marker := services.ErrExternalTool
		if errors.Is(err, launcher.ErrLaunchNotFound) {
			marker = services.ErrNotFound
		}
		return nil, services.Wrap(marker, task.Title, "launch", spec.Path, err)
	}

	logger.Info("external job started",
		logging.String("path", spec.Path),
		logging.String(logging.FieldEventType, "job_started"),
	)
	m.publish(ctx, notifications.EventOperationStarted, notifications.Payload{"task": task.Title, "detail": detail})

	return monitor.Watch(ctx, monitor.Job{
		Task:    task,
		Process: proc,
		Record:  h,
		Detail:  detail,
		Verify:  verify,
	}, m.logger), nil
}
