package feelookup

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/branchledger/internal/domain"
)

func TestLookupReturnsQuotedFee(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/fees/quote", r.URL.Path)

		var req quoteRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "agency-banking", req.Domain)
		assert.Equal(t, "interbank", req.Type)
		assert.True(t, req.Amount.Equal(decimal.NewFromInt(300)))
		assert.Equal(t, "acc-eq", req.CounterpartyAccountID)

		_, _ = w.Write([]byte(`{"fee":"3.00"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, srv.Client(), zerolog.Nop())

	fee, err := c.Lookup(context.Background(), domain.DomainAgencyBanking, domain.TypeInterbank, decimal.NewFromInt(300), "acc-eq")
	require.NoError(t, err)
	assert.True(t, fee.Equal(decimal.NewFromInt(3)), "fee = %s", fee)
}

func TestLookupRejectsBadResponses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{}`},
		{name: "missing fee", status: http.StatusOK, body: `{}`},
		{name: "negative fee", status: http.StatusOK, body: `{"fee":"-1"}`},
		{name: "garbage", status: http.StatusOK, body: `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(Config{BaseURL: srv.URL}, srv.Client(), zerolog.Nop())

			_, err := c.Lookup(context.Background(), domain.DomainMobileMoney, domain.TypeDeposit, decimal.NewFromInt(10), "")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnavailable), "unexpected error %v", err)
		})
	}
}

func TestLookupOpensCircuitAfterFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(Config{
		BaseURL:             srv.URL,
		ConsecutiveFailures: 2,
		OpenTimeout:         time.Minute,
	}, srv.Client(), zerolog.Nop())

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := c.Lookup(ctx, domain.DomainMobileMoney, domain.TypeDeposit, decimal.NewFromInt(10), "")
		require.Error(t, err)
	}

	assert.Equal(t, "open", c.State())

	_, err := c.Lookup(ctx, domain.DomainMobileMoney, domain.TypeDeposit, decimal.NewFromInt(10), "")
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(2), calls.Load(), "open circuit must not reach the service")
}
