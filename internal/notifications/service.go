package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clipsight/internal/config"
)

const userAgent = "Clipsight-Go/0.1.0"

// Event identifies a notification-worthy pipeline moment.
type Event string

const (
	EventJobCompleted Event = "job_completed"
	EventJobFailed    Event = "job_failed"
	EventTest         Event = "test"
)

// Payload carries per-event fields consumed by the message formatter.
type Payload map[string]string

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:    topic,
		client:      &http.Client{Timeout: timeout},
		jobComplete: cfg.Notifications.JobComplete,
		errors:      cfg.Notifications.Errors,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint    string
	client      *http.Client
	jobComplete bool
	errors      bool
}

// Publish formats and sends the event. Events disabled in configuration are
// silently skipped.
func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	switch event {
	case EventJobCompleted:
		if !n.jobComplete {
			return nil
		}
		return n.send(ctx, message{
			title:    "Clipsight - Analysis Complete",
			body:     fmt.Sprintf("Report ready for job %s", payload.get("jobID")),
			tags:     []string{"clipsight", "job", "completed"},
			priority: "high",
		})
	case EventJobFailed:
		if !n.errors {
			return nil
		}
		body := fmt.Sprintf("Job %s failed at %s", payload.get("jobID"), payload.get("stage"))
		if detail := payload.get("detail"); detail != "" {
			body = fmt.Sprintf("%s\n%s", body, detail)
		}
		return n.send(ctx, message{
			title:    "Clipsight - Job Failed",
			body:     body,
			tags:     []string{"clipsight", "job", "failed"},
			priority: "high",
		})
	case EventTest:
		return n.send(ctx, message{
			title:    "Clipsight - Test",
			body:     "Notification system test",
			tags:     []string{"clipsight", "test"},
			priority: "low",
		})
	default:
		return fmt.Errorf("unknown notification event %q", event)
	}
}

func (p Payload) get(key string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(p[key])
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
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
