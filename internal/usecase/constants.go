package usecase

import "time"

const (
	// DefaultTransactionTimeout bounds a whole settle, amend or void call.
	DefaultTransactionTimeout = 10 * time.Second

	// auditWriteTimeout bounds audit writes made after the main unit failed.
	auditWriteTimeout = 5 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// IdempotencyInFlight is the value an IdempotencyStore holds for a
	// claimed key until the first request's response is stored.
	IdempotencyInFlight = "processing"

	// FeeQuoteTTL is how long looked up fees are cached
	FeeQuoteTTL = 10 * time.Minute
)

// Outcomes reported to SettlementMetrics.
const (
	OutcomeSuccess        = "success"
	OutcomeValidation     = "validation_error"
	OutcomeBalanceFailure = "balance_failure"
	OutcomePostingFailure = "posting_failure"
	OutcomeUnknown        = "unknown"
	OutcomeError          = "error"
)
