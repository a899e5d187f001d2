package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"contentpub/internal/history"
	"contentpub/internal/logging"
)

var (
	// ErrTrackingUnavailable marks a task whose history store could not be
	// opened. Operations still run; their outcome is not recorded.
	ErrTrackingUnavailable = errors.New("history tracking unavailable")
	// ErrOperationInFlight is returned by Begin while another tracked
	// operation of the same task is pending.
	ErrOperationInFlight = errors.New("operation already in flight")
)

// Tracker owns the history store of one task type and the current operation
// id. The zero id means nothing is in flight.
type Tracker struct {
	task   history.Task
	store  *history.Store
	logger *slog.Logger

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	current int64
	active  bool

	warnOnce sync.Once
	openErr  error
}

// Open opens the task's store under dataDir. A store that cannot be opened
// does not fail the call; the returned tracker runs untracked and Warning
// reports why.
func Open(ctx context.Context, task history.Task, dataDir string, busyTimeout time.Duration, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.With(logging.String(logging.FieldTask, task.Key))
	t := &Tracker{task: task, logger: logger}

	path := task.StorePath(dataDir)
	var opts []history.Option
	if busyTimeout > 0 {
		opts = append(opts, history.WithBusyTimeout(busyTimeout))
	}
	store, err := history.Open(ctx, path, task.Layout, opts...)
	if err != nil {
		t.openErr = fmt.Errorf("%w: %s: %w", ErrTrackingUnavailable, path, err)
		logging.WarnWithImpact(logger, "history store unavailable",
			"tracking_unavailable",
			"operations run but outcomes are not recorded",
			logging.String("path", path),
			logging.Error(err),
		)
		return t
	}
	t.attach(store)
	return t
}

// New wraps an already open store. A nil store yields an untracked tracker.
func New(task history.Task, store *history.Store, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = logging.NewNop()
	}
	t := &Tracker{task: task, logger: logger.With(logging.String(logging.FieldTask, task.Key))}
	if store == nil {
		t.openErr = fmt.Errorf("%w: no store for %s", ErrTrackingUnavailable, task.Key)
		return t
	}
	t.attach(store)
	return t
}

func (t *Tracker) attach(store *history.Store) {
	t.store = store
	t.lockPath = filepath.Join(store.Dir(), strings.TrimSuffix(t.task.File, filepath.Ext(t.task.File))+".lock")
	t.lock = flock.New(t.lockPath)
}

// Task returns the task this tracker records.
func (t *Tracker) Task() history.Task { return t.task }

// Store returns the underlying store, or nil when tracking is unavailable.
func (t *Tracker) Store() *history.Store { return t.store }

// Available reports whether outcomes are being recorded.
func (t *Tracker) Available() bool { return t.store != nil }

// Warning returns ErrTrackingUnavailable (wrapped) the first time it is
// called on an untracked tracker and nil afterwards.
func (t *Tracker) Warning() error {
	if t.store != nil {
		return nil
	}
	var err error
	t.warnOnce.Do(func() { err = t.openErr })
	return err
}

// Current returns the id of the in-flight record, or 0.
func (t *Tracker) Current() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Close releases the store.
func (t *Tracker) Close() error {
	if t.store == nil {
		return nil
	}
	return t.store.Close()
}

// Acquire claims the task's in-flight slot without creating a record. The
// caller records the operation later with Handle.Record, once there is
// something to record.
func (t *Tracker) Acquire() (*Handle, error) {
	if err := t.acquire(); err != nil {
		return nil, err
	}
	return &Handle{tracker: t}, nil
}

// Begin claims the in-flight slot and creates the pending record.
func (t *Tracker) Begin(ctx context.Context, fields history.Fields) (*Handle, error) {
	h, err := t.Acquire()
	if err != nil {
		return nil, err
	}
	if err := h.Record(ctx, fields); err != nil {
		h.Release()
		return nil, err
	}
	return h, nil
}

func (t *Tracker) create(ctx context.Context, fields history.Fields) (int64, error) {
	id, err := t.store.CreatePending(ctx, fields)
	if err != nil {
		return 0, fmt.Errorf("create pending %s record: %w", t.task.Key, err)
	}
	t.setCurrent(id)
	t.logger.Info("operation recorded",
		logging.Int64(logging.FieldOperationID, id),
		logging.String(logging.FieldEventType, "operation_pending"),
	)
	return id, nil
}

// Adopt marks an existing pending record in flight, used when a later step
// resolves a record created by an earlier command.
func (t *Tracker) Adopt(ctx context.Context, id int64) (*Handle, error) {
	if t.store == nil {
		return nil, t.openErr
	}
	rec, err := t.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rec.Pending() {
		return nil, fmt.Errorf("%w: record %d is already %s", history.ErrInvalidTransition, id, rec.Status)
	}
	if err := t.acquire(); err != nil {
		return nil, err
	}
	t.setCurrent(id)
	return &Handle{tracker: t, id: id}, nil
}

func (t *Tracker) acquire() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active {
		if t.current > 0 {
			return fmt.Errorf("%w: %s record %d is pending", ErrOperationInFlight, t.task.Title, t.current)
		}
		return fmt.Errorf("%w: %s", ErrOperationInFlight, t.task.Title)
	}
	if t.lock != nil {
		ok, err := t.lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire %s lock: %w", t.task.Key, err)
		}
		if !ok {
			return fmt.Errorf("%w: another contentpub process is running %s", ErrOperationInFlight, t.task.Title)
		}
	}
	t.active = true
	return nil
}

func (t *Tracker) setCurrent(id int64) {
	t.mu.Lock()
	t.current = id
	t.mu.Unlock()
}

func (t *Tracker) release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active {
		return
	}
	t.active = false
	t.current = 0
	if t.lock != nil {
		if err := t.lock.Unlock(); err != nil {
			t.logger.Warn("failed to release task lock", logging.String("lock", t.lockPath), logging.Error(err))
		}
	}
}
