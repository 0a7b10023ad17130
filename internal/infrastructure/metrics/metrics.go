package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Settlement metrics
	Settlements        *prometheus.CounterVec
	SettlementDuration *prometheus.HistogramVec
	PostingFailures    *prometheus.CounterVec
	ThresholdCrossings *prometheus.CounterVec

	// Fee metrics
	FeeQuotes *prometheus.CounterVec

	// Storage metrics
	DBRetries *prometheus.CounterVec

	// Outbox metrics
	EventsPublished *prometheus.CounterVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Rate limiting metrics
	RateLimitHits prometheus.Counter
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates all metrics and registers them on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Settlements: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "branchledger_settlements_total",
				Help: "Settlement operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		SettlementDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "branchledger_settlement_duration_seconds",
				Help:    "Duration of settle, amend and void units of work",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		PostingFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "branchledger_posting_failures_total",
				Help: "GL postings that failed and left a transaction unposted",
			},
			[]string{"operation"},
		),
		ThresholdCrossings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "branchledger_threshold_crossings_total",
				Help: "Float account threshold crossings by event type",
			},
			[]string{"event_type"},
		),

		FeeQuotes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "branchledger_fee_quotes_total",
				Help: "Fee quotes by source",
			},
			[]string{"source"},
		),

		DBRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "branchledger_db_retries_total",
				Help: "Units of work re-run after a lock conflict",
			},
			[]string{"reason"},
		),

		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "branchledger_outbox_events_total",
				Help: "Outbox events handled by the publisher",
			},
			[]string{"event_type", "status"},
		),

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "branchledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "branchledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		RateLimitHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "branchledger_rate_limit_hits_total",
			Help: "Requests rejected by the rate limiter",
		}),
	}
}

// ObserveSettlement records one settle, amend or void outcome.
func (m *Metrics) ObserveSettlement(operation, outcome string, duration time.Duration) {
	m.Settlements.WithLabelValues(operation, outcome).Inc()
	m.SettlementDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// IncPostingFailure counts a GL posting failure.
func (m *Metrics) IncPostingFailure(operation string) {
	m.PostingFailures.WithLabelValues(operation).Inc()
}

// IncThresholdCrossing counts a low or high balance crossing.
func (m *Metrics) IncThresholdCrossing(eventType string) {
	m.ThresholdCrossings.WithLabelValues(eventType).Inc()
}

// IncFeeQuote counts a fee quote by where it came from.
func (m *Metrics) IncFeeQuote(source string) {
	m.FeeQuotes.WithLabelValues(source).Inc()
}

// IncDBRetry counts a re-run unit of work.
func (m *Metrics) IncDBRetry(reason string) {
	m.DBRetries.WithLabelValues(reason).Inc()
}

// IncEventPublished counts an outbox event publish attempt.
func (m *Metrics) IncEventPublished(eventType, status string) {
	m.EventsPublished.WithLabelValues(eventType, status).Inc()
}
