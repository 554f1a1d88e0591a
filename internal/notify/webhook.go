package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/oshokin/panel-sentinel/internal/domain/panel"
	"github.com/oshokin/panel-sentinel/internal/version"
)

const (
	// webhookRetryWait is the initial delay between retries.
	webhookRetryWait = 500 * time.Millisecond
	// webhookRetryMaxWait caps the backoff between retries.
	webhookRetryMaxWait = 5 * time.Second
)

// WebhookSender POSTs alerts as JSON and retries on transport errors and 5xx answers.
type WebhookSender struct {
	client *resty.Client
	url    string
}

// NewWebhookSender creates a sender for url.
func NewWebhookSender(url string, timeout time.Duration, retryCount int) *WebhookSender {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(retryCount).
		SetRetryWaitTime(webhookRetryWait).
		SetRetryMaxWaitTime(webhookRetryMaxWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", version.UserAgent("panel-sentinel"))

	return &WebhookSender{
		client: client,
		url:    url,
	}
}

// SendDisarmedAlert implements Sender.
func (s *WebhookSender) SendDisarmedAlert(ctx context.Context, alert panel.Alert) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(alert).
		Post(s.url)
	if err != nil {
		return fmt.Errorf("post alert: %w", err)
	}

	if resp.IsError() {
		return fmt.Errorf("post alert: unexpected status %s", resp.Status())
	}

	return nil
}
