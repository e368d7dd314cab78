package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"satcerts/internal/config"
)

const userAgent = "satcerts/0.1.0"

// Service defines the notification surface exposed to the runner.
type Service interface {
	NotifyRunStarted(ctx context.Context, runID string, total int) error
	NotifyRunCompleted(ctx context.Context, found, notFound, failed int, duration time.Duration) error
	NotifyRunAborted(ctx context.Context, completed, total int, reason string) error
	TestNotification(ctx context.Context) error
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

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint: topic,
		client:   client,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyRunStarted(ctx context.Context, runID string, total int) error {
	runID = strings.TrimSpace(runID)
	data := payload{
		title:   "Satcerts - Run Started",
		message: fmt.Sprintf("Started certificate recovery for %d identifiers (run %s)", total, runID),
		tags:    []string{"satcerts", "run", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, found, notFound, failed int, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}

	var message string
	var title string
	if failed == 0 {
		title = "Satcerts - Run Complete"
		message = fmt.Sprintf("✅ Run complete: %d found, %d not registered in %s", found, notFound, durationText)
	} else {
		title = "Satcerts - Run Complete (with errors)"
		message = fmt.Sprintf("Run complete: %d found, %d not registered, %d failed in %s", found, notFound, failed, durationText)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"satcerts", "run", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunAborted(ctx context.Context, completed, total int, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown"
	}
	data := payload{
		title:    "Satcerts - Run Aborted",
		message:  fmt.Sprintf("❌ Run aborted after %d of %d lookups: %s", completed, total, reason),
		tags:     []string{"satcerts", "run", "aborted"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Satcerts - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"satcerts", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
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

func (noopService) NotifyRunStarted(context.Context, string, int) error { return nil }
func (noopService) NotifyRunCompleted(context.Context, int, int, int, time.Duration) error {
	return nil
}
func (noopService) NotifyRunAborted(context.Context, int, int, string) error { return nil }
func (noopService) TestNotification(context.Context) error                   { return nil }
