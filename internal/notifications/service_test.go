package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"contentpub/internal/config"
	"contentpub/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventOperationCompleted, notifications.Payload{"task": "Index Update"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:          "completed",
			event:         notifications.EventOperationCompleted,
			payload:       notifications.Payload{"task": "Topic Upload", "detail": "05-May-2024"},
			expectTitle:   "contentpub - Topic Upload Complete",
			expectMessage: "✅ Topic Upload completed: 05-May-2024",
			expectTags:    "contentpub,completed",
		},
		{
			name:           "interrupted",
			event:          notifications.EventOperationInterrupted,
			payload:        notifications.Payload{"task": "Index Update", "detail": "UAT"},
			expectTitle:    "contentpub - Index Update Interrupted",
			expectMessage:  "⚠️ Index Update stopped before completion: UAT",
			expectTags:     "contentpub,interrupted,warning",
			expectPriority: "high",
		},
		{
			name:  "failed with missing files",
			event: notifications.EventOperationFailed,
			payload: notifications.Payload{
				"task":    "Teton Content Export",
				"missing": []string{"TOPICS.xml", "INDEX.xml"},
			},
			expectTitle:    "contentpub - Teton Content Export Failed",
			expectMessage:  "❌ Teton Content Export failed\nMissing: TOPICS.xml, INDEX.xml",
			expectTags:     "contentpub,failed,alert",
			expectPriority: "high",
		},
		{
			name:           "error",
			event:          notifications.EventError,
			payload:        notifications.Payload{"context": "topic upload", "error": errors.New("server drop missing")},
			expectTitle:    "contentpub - Error",
			expectMessage:  "❌ Error with topic upload: server drop missing",
			expectTags:     "contentpub,error,alert",
			expectPriority: "high",
		},
		{
			name:           "test",
			event:          notifications.EventTestNotification,
			expectTitle:    "contentpub - Test",
			expectMessage:  "🧪 Notification system test",
			expectTags:     "contentpub,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Errorf("read body: %v", err)
				}
				captured.body = string(body)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceHonoursCategorySwitches(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Started = false
	cfg.Notifications.Completed = false
	cfg.Notifications.Problems = false

	svc := notifications.NewService(&cfg)
	for _, event := range []notifications.Event{
		notifications.EventOperationStarted,
		notifications.EventOperationCompleted,
		notifications.EventOperationFailed,
		notifications.EventError,
		notifications.Event("unknown"),
	} {
		if err := svc.Publish(context.Background(), event, nil); err != nil {
			t.Fatalf("expected no error for suppressed event %s, got %v", event, err)
		}
	}
	if calls != 0 {
		t.Fatalf("expected no requests, got %d", calls)
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic is reserved", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)
	err := svc.Publish(context.Background(), notifications.EventTestNotification, nil)
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
