package eventpublisher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/iho/branchledger/internal/domain"
)

func TestWebhookPublisherPostsEvent(t *testing.T) {
	var got webhookEvent
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if r.Header.Get("X-Event-ID") != "evt-1" {
			t.Errorf("missing event id header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	p := NewWebhookPublisher(srv.URL, srv.Client())
	err := p.Publish(context.Background(), &domain.OutboxEvent{
		ID:            "evt-1",
		EventType:     domain.EventTypeLowBalance,
		AggregateType: domain.AggregateTypeFloatAccount,
		AggregateID:   "acc-1",
		Payload:       map[string]any{"branch_id": "br-1"},
	})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if got.EventType != domain.EventTypeLowBalance || got.AggregateID != "acc-1" {
		t.Fatalf("unexpected body %+v", got)
	}
	if got.Payload["branch_id"] != "br-1" {
		t.Fatalf("unexpected payload %+v", got.Payload)
	}
}

func TestWebhookPublisherRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewWebhookPublisher(srv.URL, srv.Client())
	if err := p.Publish(context.Background(), &domain.OutboxEvent{ID: "evt-2"}); err != nil {
		t.Fatalf("expected publish to succeed after retries, got %v", err)
	}

	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestWebhookPublisherDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	p := NewWebhookPublisher(srv.URL, srv.Client())
	if err := p.Publish(context.Background(), &domain.OutboxEvent{ID: "evt-3"}); err == nil {
		t.Fatal("expected error for rejected event")
	}

	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}
