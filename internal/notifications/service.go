package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"patchtrack/internal/config"
)

const userAgent = "Patchtrack-Go/0.1.0"

// Service defines the notification surface exposed to watch mode and the
// install coordinator.
type Service interface {
	NotifyPassChanges(ctx context.Context, host string, updatesAdded, updatesRemoved, filesAdded, filesRemoved int) error
	NotifyPassFailed(ctx context.Context, host string, passErr error) error
	NotifyInstallCompleted(ctx context.Context, host, update string, installed int) error
	NotifyInstallFailed(ctx context.Context, host, update string, failed int) error
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

func (n *ntfyService) NotifyPassChanges(ctx context.Context, host string, updatesAdded, updatesRemoved, filesAdded, filesRemoved int) error {
	host = strings.TrimSpace(host)
	data := payload{
		title:   "Patchtrack - Updates Changed",
		message: fmt.Sprintf("Reconciled %s: +%d/-%d updates, +%d/-%d files", host, updatesAdded, updatesRemoved, filesAdded, filesRemoved),
		tags:    []string{"patchtrack", "reconcile", "changed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyPassFailed(ctx context.Context, host string, passErr error) error {
	host = strings.TrimSpace(host)
	detail := "unknown"
	if passErr != nil {
		detail = strings.TrimSpace(passErr.Error())
	}
	data := payload{
		title:    "Patchtrack - Reconcile Failed",
		message:  fmt.Sprintf("❌ Reconcile failed on %s: %s", host, detail),
		tags:     []string{"patchtrack", "reconcile", "error"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyInstallCompleted(ctx context.Context, host, update string, installed int) error {
	host = strings.TrimSpace(host)
	update = strings.TrimSpace(update)
	data := payload{
		title:   "Patchtrack - Update Installed",
		message: fmt.Sprintf("✅ Installed %s on %s (%d files)", update, host, installed),
		tags:    []string{"patchtrack", "install", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyInstallFailed(ctx context.Context, host, update string, failed int) error {
	host = strings.TrimSpace(host)
	update = strings.TrimSpace(update)
	data := payload{
		title:    "Patchtrack - Install Failed",
		message:  fmt.Sprintf("❌ Install of %s failed on %s (%d files failed)", update, host, failed),
		tags:     []string{"patchtrack", "install", "error"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Patchtrack - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"patchtrack", "test"},
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

func (noopService) NotifyPassChanges(context.Context, string, int, int, int, int) error { return nil }
func (noopService) NotifyPassFailed(context.Context, string, error) error               { return nil }
func (noopService) NotifyInstallCompleted(context.Context, string, string, int) error   { return nil }
func (noopService) NotifyInstallFailed(context.Context, string, string, int) error      { return nil }
func (noopService) TestNotification(context.Context) error                              { return nil }
