package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"contentpub/internal/history"
	"contentpub/internal/logging"
	"contentpub/internal/monitor"
	"contentpub/internal/notifications"
	"contentpub/internal/prompt"
)

// ErrMonitorClosed is returned when the monitor channel closes without an
// event.
var ErrMonitorClosed = errors.New("monitor finished without a result")

// Loop waits for the outcome of a launched job and presents it to the
// operator and the notifier. A nil channel means nothing was launched. When
// ctx ends first, the job keeps running and its record stays pending.
func (m *Manager) Loop(ctx context.Context, events <-chan monitor.Event) (monitor.Event, error) {
	if events == nil {
		return monitor.Event{}, nil
	}
	select {
	case evt, ok := <-events:
		if !ok {
			return monitor.Event{}, ErrMonitorClosed
		}
		m.present(ctx, evt)
		return evt, nil
	case <-ctx.Done():
		m.prompter.Notify(prompt.LevelWarning, "Stopped Waiting",
			"contentpub stopped before the job finished. The job keeps running in its own window and its history entry stays pending.")
		return monitor.Event{}, ctx.Err()
	}
}

type outcomeText struct {
	name        string
	completed   string
	interrupted string
}

func outcomeFor(task history.Task) outcomeText {
	switch task.Key {
	case history.TopicUpload.Key:
		return outcomeText{
			name:      "Filter Job",
			completed: "The filter task has completed successfully.",
			interrupted: "The filter task was stopped before completion.\n" +
				"If you closed the window manually, run the filter job again (contentpub topic filter) and let it complete normally.",
		}
	case history.IndexUpdate.Key:
		return outcomeText{
			name:        "Index Update",
			completed:   "The search index update has completed successfully.",
			interrupted: "The search index update was stopped before completion.",
		}
	case history.ContentExport.Key:
		return outcomeText{
			name:        "Teton Export",
			completed:   "Teton content export completed successfully.",
			interrupted: "The export job was stopped before completion.",
		}
	default:
		return outcomeText{name: task.Title, completed: "Completed.", interrupted: "Stopped before completion."}
	}
}

func (m *Manager) present(ctx context.Context, evt monitor.Event) {
	text := outcomeFor(evt.Task)
	logger := m.logger.With(
		logging.String(logging.FieldTask, evt.Task.Key),
		logging.Int64(logging.FieldOperationID, evt.RecordID),
	)
	payload := notifications.Payload{"task": evt.Task.Title, "detail": evt.Detail}

	switch evt.Status {
	case history.StatusCompleted:
		msg := text.completed
		if evt.Task.Key == history.ContentExport.Key && evt.Detail != "" {
			msg += "\nFiles copied to: " + evt.Detail
		}
		if evt.Err != nil {
			// The job succeeded but the history write did not.
			msg += "\nThe history entry could not be updated: " + evt.Err.Error()
			m.prompter.Notify(prompt.LevelWarning, text.name+" Complete", msg)
		} else {
			m.prompter.Notify(prompt.LevelSuccess, text.name+" Complete", msg)
		}
		m.publish(ctx, notifications.EventOperationCompleted, payload)
	case history.StatusInterrupted:
		m.prompter.Notify(prompt.LevelWarning, text.name+" Interrupted", text.interrupted)
		m.publish(ctx, notifications.EventOperationInterrupted, payload)
	default:
		var b strings.Builder
		if len(evt.Missing) > 0 {
			fmt.Fprintf(&b, "Missing exported files: %s", strings.Join(evt.Missing, ", "))
		} else if evt.Err != nil {
			b.WriteString(evt.Err.Error())
		} else {
			b.WriteString("The job failed.")
		}
		m.prompter.Notify(prompt.LevelError, text.name+" Failed", b.String())
		payload["missing"] = evt.Missing
		if len(evt.Missing) == 0 && evt.Err != nil {
			payload["error"] = evt.Err
		}
		m.publish(ctx, notifications.EventOperationFailed, payload)
	}

	logger.Info("job outcome presented",
		logging.String("status", string(evt.Status)),
		logging.Int("exit_code", evt.ExitCode),
		logging.Duration("duration", evt.Duration),
	)
}
