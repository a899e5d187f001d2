package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"contentpub/internal/config"
)

const userAgent = "contentpub/0.1.0"

// Event identifies an operation milestone.
type Event string

const (
	EventOperationStarted     Event = "operation_started"
	EventOperationCompleted   Event = "operation_completed"
	EventOperationInterrupted Event = "operation_interrupted"
	EventOperationFailed      Event = "operation_failed"
	EventError                Event = "error"
	EventTestNotification     Event = "test"
)

// Payload carries event details. Recognised keys: task, detail, error,
// context, missing.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService returns an ntfy publisher when a topic is configured and a no-op
// otherwise.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		started:  cfg.Notifications.Started,
		complete: cfg.Notifications.Completed,
		problems: cfg.Notifications.Problems,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client

	started  bool
	complete bool
	problems bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled(event) {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) enabled(event Event) bool {
	switch event {
	case EventOperationStarted:
		return n.started
	case EventOperationCompleted:
		return n.complete
	case EventOperationInterrupted, EventOperationFailed, EventError:
		return n.problems
	case EventTestNotification:
		return true
	default:
		return false
	}
}

func format(event Event, payload Payload) (message, bool) {
	task := payload.text("task")
	if task == "" {
		task = "Operation"
	}
	detail := payload.text("detail")
	withDetail := func(s string) string {
		if detail == "" {
			return s
		}
		return s + ": " + detail
	}

	switch event {
	case EventOperationStarted:
		return message{
			title: "contentpub - " + task + " Started",
			body:  withDetail(task + " started"),
			tags:  []string{"contentpub", "started"},
		}, true
	case EventOperationCompleted:
		return message{
			title: "contentpub - " + task + " Complete",
			body:  withDetail("✅ " + task + " completed"),
			tags:  []string{"contentpub", "completed"},
		}, true
	case EventOperationInterrupted:
		return message{
			title:    "contentpub - " + task + " Interrupted",
			body:     withDetail("⚠️ " + task + " stopped before completion"),
			tags:     []string{"contentpub", "interrupted", "warning"},
			priority: "high",
		}, true
	case EventOperationFailed:
		body := withDetail("❌ " + task + " failed")
		if missing := payload.text("missing"); missing != "" {
			body += "\nMissing: " + missing
		}
		if errText := payload.text("error"); errText != "" {
			body += "\n" + errText
		}
		return message{
			title:    "contentpub - " + task + " Failed",
			body:     body,
			tags:     []string{"contentpub", "failed", "alert"},
			priority: "high",
		}, true
	case EventError:
		var b strings.Builder
		b.WriteString("❌ Error")
		if label := payload.text("context"); label != "" {
			b.WriteString(" with ")
			b.WriteString(label)
		}
		b.WriteString(": ")
		if errText := payload.text("error"); errText != "" {
			b.WriteString(errText)
		} else {
			b.WriteString("unknown")
		}
		return message{
			title:    "contentpub - Error",
			body:     b.String(),
			tags:     []string{"contentpub", "error", "alert"},
			priority: "high",
		}, true
	case EventTestNotification:
		return message{
			title:    "contentpub - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"contentpub", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (p Payload) text(key string) string {
	if p == nil {
		return ""
	}
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	case []string:
		return strings.Join(v, ", ")
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
