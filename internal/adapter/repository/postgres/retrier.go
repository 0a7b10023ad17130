package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// SQLSTATE codes a settlement unit may be re-run on. Each of them means the
// unit was rolled back by the server, so no balance moved.
var retryableCodes = map[string]string{
	"40P01": "deadlock_detected",
	"40001": "serialization_failure",
	"55P03": "lock_not_available",
}

// RetryPolicy bounds how often a unit of work is re-run.
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultRetryPolicy suits settlement units bounded by a 10s deadline.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:      3,
	InitialInterval: 50 * time.Millisecond,
	MaxInterval:     time.Second,
	MaxElapsedTime:  10 * time.Second,
}

// Retrier implements usecase.Retrier with exponential backoff. The whole
// unit of work is re-run on each attempt.
type Retrier struct {
	policy  RetryPolicy
	logger  zerolog.Logger
	onRetry func(reason string)
}

// NewRetrier creates a retrier with DefaultRetryPolicy.
func NewRetrier(logger zerolog.Logger) *Retrier {
	return NewRetrierWithPolicy(DefaultRetryPolicy, logger)
}

// NewRetrierWithPolicy creates a retrier with policy. Zero fields fall back
// to DefaultRetryPolicy.
func NewRetrierWithPolicy(policy RetryPolicy, logger zerolog.Logger) *Retrier {
	if policy.MaxRetries <= 0 {
		policy.MaxRetries = DefaultRetryPolicy.MaxRetries
	}
	if policy.InitialInterval <= 0 {
		policy.InitialInterval = DefaultRetryPolicy.InitialInterval
	}
	if policy.MaxInterval <= 0 {
		policy.MaxInterval = DefaultRetryPolicy.MaxInterval
	}
	if policy.MaxElapsedTime <= 0 {
		policy.MaxElapsedTime = DefaultRetryPolicy.MaxElapsedTime
	}

	return &Retrier{policy: policy, logger: logger}
}

// OnRetry registers fn to be called with the conflict reason before each re-run.
func (r *Retrier) OnRetry(fn func(reason string)) *Retrier {
	r.onRetry = fn
	return r
}

// Retry runs operation, re-running it on lock conflicts.
func (r *Retrier) Retry(ctx context.Context, operation func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.policy.InitialInterval
	b.MaxInterval = r.policy.MaxInterval
	b.MaxElapsedTime = r.policy.MaxElapsedTime

	attempt := 0

	return backoff.Retry(func() error {
		err := operation()
		if err == nil {
			return nil
		}

		reason, ok := retryReason(err)
		if !ok {
			return backoff.Permanent(err)
		}

		attempt++
		if attempt > r.policy.MaxRetries {
			r.logger.Error().Err(err).Str("reason", reason).Int("attempts", attempt).Msg("lock conflict persisted, giving up")
			return backoff.Permanent(err)
		}

		r.logger.Warn().Err(err).Str("reason", reason).Int("retry", attempt).Msg("lock conflict, re-running unit of work")

		if r.onRetry != nil {
			r.onRetry(reason)
		}

		return err
	}, backoff.WithContext(b, ctx))
}

func retryReason(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}

	reason, ok := retryableCodes[pgErr.Code]

	return reason, ok
}
