package eventpublisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/branchledger/internal/domain"
	"github.com/iho/branchledger/internal/usecase"
)

const (
	defaultBatchSize = 100
	defaultInterval  = 5 * time.Second
)

// Publisher delivers one outbox event to an external system.
type Publisher interface {
	Publish(ctx context.Context, event *domain.OutboxEvent) error
}

// Metrics counts delivery attempts by outcome.
type Metrics interface {
	IncEventPublished(eventType, status string)
}

// Config for EventPublisher.
type Config struct {
	OutboxRepo usecase.OutboxRepository
	Publisher  Publisher
	Metrics    Metrics
	Logger     zerolog.Logger
	BatchSize  int
	Interval   time.Duration
	// Retention purges delivered events older than this; zero keeps them.
	Retention time.Duration
}

// EventPublisher relays settlement and balance alert events from the outbox.
// Events of one aggregate are delivered in outbox order: after a failure the
// rest of that aggregate's batch waits for the next pass.
type EventPublisher struct {
	outboxRepo usecase.OutboxRepository
	publisher  Publisher
	metrics    Metrics
	logger     zerolog.Logger
	batchSize  int
	interval   time.Duration
	retention  time.Duration
}

// NewEventPublisher creates a new EventPublisher.
func NewEventPublisher(cfg Config) *EventPublisher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}

	return &EventPublisher{
		outboxRepo: cfg.OutboxRepo,
		publisher:  cfg.Publisher,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger.With().Str("component", "outbox").Logger(),
		batchSize:  cfg.BatchSize,
		interval:   cfg.Interval,
		retention:  cfg.Retention,
	}
}

// Start drains the outbox every interval until ctx is done.
func (ep *EventPublisher) Start(ctx context.Context) error {
	ep.logger.Info().
		Int("batch_size", ep.batchSize).
		Dur("interval", ep.interval).
		Dur("retention", ep.retention).
		Msg("event publisher started")

	ticker := time.NewTicker(ep.interval)
	defer ticker.Stop()

	for {
		if _, err := ep.Drain(ctx); err != nil && ctx.Err() == nil {
			ep.logger.Error().Err(err).Msg("outbox pass failed")
		}

		select {
		case <-ctx.Done():
			ep.logger.Info().Msg("event publisher stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Drain makes one pass over a batch of undelivered events and returns how
// many were delivered. Delivery failures are logged and retried on the
// next pass; only a failure to read the outbox is returned.
func (ep *EventPublisher) Drain(ctx context.Context) (int, error) {
	events, err := ep.outboxRepo.GetUnpublished(ctx, ep.batchSize)
	if err != nil {
		return 0, err
	}

	delivered := 0
	blocked := make(map[string]bool)

	for _, event := range events {
		lg := ep.logger.With().
			Str("event_id", event.ID).
			Str("event_type", event.EventType).
			Str("aggregate_id", event.AggregateID).
			Logger()

		if blocked[event.AggregateID] {
			ep.count(event.EventType, "deferred")
			continue
		}

		if err := ep.publisher.Publish(ctx, event); err != nil {
			lg.Error().Err(err).Msg("failed to publish event")
			ep.count(event.EventType, "failed")
			blocked[event.AggregateID] = true
			continue
		}

		ep.count(event.EventType, "delivered")
		delivered++

		if err := ep.outboxRepo.MarkPublished(ctx, event.ID, time.Now().UTC()); err != nil {
			// Delivered again next pass; consumers dedupe on event id.
			lg.Error().Err(err).Msg("failed to mark event as published")
		}
	}

	if delivered > 0 {
		ep.logger.Debug().Int("delivered", delivered).Int("fetched", len(events)).Msg("outbox pass done")
	}

	if ep.retention > 0 {
		if err := ep.outboxRepo.DeletePublished(ctx, time.Now().UTC().Add(-ep.retention)); err != nil {
			ep.logger.Warn().Err(err).Msg("failed to purge published events")
		}
	}

	return delivered, nil
}

func (ep *EventPublisher) count(eventType, status string) {
	if ep.metrics != nil {
		ep.metrics.IncEventPublished(eventType, status)
	}
}

// LogPublisher writes events to the log. It is used when no webhook is
// configured.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a new LogPublisher.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the event with its payload.
func (p *LogPublisher) Publish(_ context.Context, event *domain.OutboxEvent) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}

	lvl := zerolog.InfoLevel
	switch event.EventType {
	case domain.EventTypeLowBalance, domain.EventTypeHighBalance, domain.EventTypeReconciliation:
		lvl = zerolog.WarnLevel
	}

	p.logger.WithLevel(lvl).
		Str("event_id", event.ID).
		Str("event_type", event.EventType).
		Str("aggregate_type", event.AggregateType).
		Str("aggregate_id", event.AggregateID).
		RawJSON("payload", payload).
		Msg("event published")

	return nil
}
