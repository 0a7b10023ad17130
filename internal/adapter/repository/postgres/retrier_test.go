package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastPolicy = RetryPolicy{
	MaxRetries:      2,
	InitialInterval: time.Millisecond,
	MaxInterval:     2 * time.Millisecond,
	MaxElapsedTime:  time.Second,
}

func TestRetrierReRunsOnDeadlock(t *testing.T) {
	var reasons []string
	r := NewRetrierWithPolicy(fastPolicy, zerolog.Nop()).OnRetry(func(reason string) {
		reasons = append(reasons, reason)
	})

	attempts := 0
	err := r.Retry(context.Background(), func() error {
		attempts++
		if attempts < 2 {
			return &pgconn.PgError{Code: "40P01"}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, []string{"deadlock_detected"}, reasons)
}

func TestRetrierDoesNotReRunOtherErrors(t *testing.T) {
	r := NewRetrierWithPolicy(fastPolicy, zerolog.Nop())
	insufficient := errors.New("account inactive")

	attempts := 0
	err := r.Retry(context.Background(), func() error {
		attempts++
		return insufficient
	})

	assert.ErrorIs(t, err, insufficient)
	assert.Equal(t, 1, attempts)
}

func TestRetrierGivesUpAfterMaxRetries(t *testing.T) {
	r := NewRetrierWithPolicy(fastPolicy, zerolog.Nop())

	attempts := 0
	err := r.Retry(context.Background(), func() error {
		attempts++
		return &pgconn.PgError{Code: "55P03"}
	})

	var pgErr *pgconn.PgError
	require.ErrorAs(t, err, &pgErr)
	assert.Equal(t, 3, attempts)
}

func TestRetryReason(t *testing.T) {
	reason, ok := retryReason(fmt.Errorf("settle: %w", &pgconn.PgError{Code: "40001"}))
	assert.True(t, ok)
	assert.Equal(t, "serialization_failure", reason)

	_, ok = retryReason(&pgconn.PgError{Code: "23505"})
	assert.False(t, ok, "unique violations are not conflicts")

	_, ok = retryReason(errors.New("other"))
	assert.False(t, ok)
}

func TestNewRetrierWithPolicyFillsDefaults(t *testing.T) {
	r := NewRetrierWithPolicy(RetryPolicy{MaxRetries: 7}, zerolog.Nop())

	assert.Equal(t, 7, r.policy.MaxRetries)
	assert.Equal(t, DefaultRetryPolicy.InitialInterval, r.policy.InitialInterval)
	assert.Equal(t, DefaultRetryPolicy.MaxElapsedTime, r.policy.MaxElapsedTime)
}
