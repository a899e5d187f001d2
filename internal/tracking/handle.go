package tracking

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"contentpub/internal/history"
	"contentpub/internal/logging"
)

// Handle is one in-flight operation. Resolve records the outcome; Release
// clears the tracker's current id. Both are safe to call from the monitor
// goroutine.
type Handle struct {
	tracker *Tracker
	id      int64

	releaseOnce sync.Once
}

// ID returns the record id, or 0 when the operation is untracked.
func (h *Handle) ID() int64 {
	if h == nil {
		return 0
	}
	return h.id
}

// Record creates the pending record for an acquired handle. It is a no-op
// when tracking is unavailable and an error when a record already exists.
func (h *Handle) Record(ctx context.Context, fields history.Fields) error {
	if h == nil || h.tracker == nil {
		return errors.New("record: handle not acquired")
	}
	if h.id > 0 {
		return fmt.Errorf("record: operation %d already recorded", h.id)
	}
	if h.tracker.store == nil {
		return nil
	}
	id, err := h.tracker.create(ctx, fields)
	if err != nil {
		return err
	}
	h.id = id
	return nil
}

// Tracked reports whether the operation has a record.
func (h *Handle) Tracked() bool { return h != nil && h.id > 0 }

// Resolve moves the record to a terminal status. The timestamp is set only
// for completed. A record that has vanished is logged and ignored.
func (h *Handle) Resolve(ctx context.Context, status history.Status) error {
	if !h.Tracked() {
		return nil
	}
	t := h.tracker
	logger := t.logger.With(logging.Int64(logging.FieldOperationID, h.id))
	err := t.store.UpdateStatus(ctx, h.id, status, status == history.StatusCompleted)
	switch {
	case err == nil:
		logger.Info("operation resolved",
			logging.String("status", string(status)),
			logging.String(logging.FieldEventType, "operation_resolved"),
		)
		return nil
	case errors.Is(err, history.ErrRecordNotFound):
		logging.WarnWithImpact(logger, "operation record missing at resolution",
			"record_not_found",
			"outcome not recorded in history",
			logging.String("status", string(status)),
			logging.Error(err),
		)
		return nil
	default:
		return fmt.Errorf("resolve %s record %d: %w", t.task.Key, h.id, err)
	}
}

// Release clears the in-flight marker. Calling it more than once is a no-op.
func (h *Handle) Release() {
	if h == nil || h.tracker == nil {
		return
	}
	h.releaseOnce.Do(h.tracker.release)
}
