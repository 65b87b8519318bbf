package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const userAgent = "tubetag/1.0.0"

// Service pushes optional notifications about retitled items. All methods
// are best effort: the sync loop logs failures and keeps going.
type Service interface {
	NotifyRetitled(ctx context.Context, videoID, title string) error
	NotifyCycleCompleted(ctx context.Context, updated, skipped int, duration time.Duration) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
}

// NewService builds a notification service backed by ntfy when a topic URL
// is configured. When the topic is empty, a noop implementation is returned.
func NewService(topic string) Service {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return noopService{}
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: 10 * time.Second},
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

func (n *ntfyService) NotifyRetitled(ctx context.Context, videoID, title string) error {
	data := payload{
		title:   "tubetag - Title Updated",
		message: fmt.Sprintf("%s is now %q", videoID, title),
		tags:    []string{"tubetag", "retitled"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyCycleCompleted(ctx context.Context, updated, skipped int, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	data := payload{
		title:   "tubetag - Cycle Complete",
		message: fmt.Sprintf("Cycle complete: %d updated, %d skipped in %s", updated, skipped, duration),
		tags:    []string{"tubetag", "cycle"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "tubetag - Error",
		message:  builder.String(),
		tags:     []string{"tubetag", "error"},
		priority: "high",
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

func (noopService) NotifyRetitled(context.Context, string, string) error { return nil }

func (noopService) NotifyCycleCompleted(context.Context, int, int, time.Duration) error {
	return nil
}

func (noopService) NotifyError(context.Context, error, string) error { return nil }
