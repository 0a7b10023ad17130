package eventpublisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/iho/branchledger/internal/domain"
)

// WebhookPublisher POSTs each event as JSON to a notification endpoint.
type WebhookPublisher struct {
	client     *http.Client
	url        string
	maxRetries uint64
}

// NewWebhookPublisher creates a WebhookPublisher. A nil client uses a 5s timeout client.
func NewWebhookPublisher(url string, client *http.Client) *WebhookPublisher {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	return &WebhookPublisher{client: client, url: url, maxRetries: 3}
}

type webhookEvent struct {
	CreatedAt     time.Time      `json:"created_at"`
	Payload       map[string]any `json:"payload"`
	ID            string         `json:"id"`
	EventType     string         `json:"event_type"`
	AggregateType string         `json:"aggregate_type"`
	AggregateID   string         `json:"aggregate_id"`
}

// Publish delivers the event. 5xx responses and transport errors are retried
// with exponential backoff; 4xx responses are not.
func (p *WebhookPublisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	body, err := json.Marshal(webhookEvent{
		CreatedAt:     event.CreatedAt,
		Payload:       event.Payload,
		ID:            event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
	})
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", event.ID, err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = time.Second

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Event-ID", event.ID)
		req.Header.Set("X-Event-Type", event.EventType)

		resp, err := p.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		_, _ = io.Copy(io.Discard, resp.Body)

		switch {
		case resp.StatusCode >= 500:
			return fmt.Errorf("webhook returned %d", resp.StatusCode)
		case resp.StatusCode >= 300:
			return backoff.Permanent(fmt.Errorf("webhook rejected event %s: %d", event.ID, resp.StatusCode))
		}

		return nil
	}

	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, p.maxRetries), ctx))
}
