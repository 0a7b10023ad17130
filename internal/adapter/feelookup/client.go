package feelookup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"

	"github.com/iho/branchledger/internal/domain"
)

// ErrUnavailable is returned when the fee service cannot produce a quote,
// including while the circuit is open.
var ErrUnavailable = errors.New("fee lookup unavailable")

// Config configures the fee service client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// ConsecutiveFailures trips the breaker. Defaults to 5.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open. Defaults to 30s.
	OpenTimeout time.Duration
}

// Client asks the external fee service for a fee. Calls go through a
// circuit breaker so a failing service is not hammered on every settlement.
type Client struct {
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  zerolog.Logger
	baseURL string
}

// NewClient creates a fee service client. A nil httpClient uses one with cfg.Timeout.
func NewClient(cfg Config, httpClient *http.Client, logger zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	c := &Client{http: httpClient, logger: logger, baseURL: cfg.BaseURL}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "fee-lookup",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("fee lookup circuit breaker state changed")
		},
	})

	return c
}

type quoteRequest struct {
	Domain                string          `json:"domain"`
	Type                  string          `json:"type"`
	Amount                decimal.Decimal `json:"amount"`
	CounterpartyAccountID string          `json:"counterparty_account_id,omitempty"`
}

type quoteResponse struct {
	Fee *decimal.Decimal `json:"fee"`
}

// Lookup returns the fee the service quotes for the given transaction.
func (c *Client) Lookup(
	ctx context.Context,
	d domain.TransactionDomain,
	t domain.TransactionType,
	amount decimal.Decimal,
	counterpartyAccountID string,
) (decimal.Decimal, error) {
	body, err := json.Marshal(quoteRequest{
		Domain:                string(d),
		Type:                  string(t),
		Amount:                amount,
		CounterpartyAccountID: counterpartyAccountID,
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to encode fee request: %w", err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.do(ctx, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return decimal.Zero, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return decimal.Zero, err
	}

	return result.(decimal.Decimal), nil
}

// State reports the breaker state, e.g. "closed" or "open".
func (c *Client) State() string {
	return c.breaker.State().String()
}

func (c *Client) do(ctx context.Context, body []byte) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/fees/quote", bytes.NewReader(body))
	if err != nil {
		return decimal.Zero, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("%w: fee service returned %d", ErrUnavailable, resp.StatusCode)
	}

	var out quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return decimal.Zero, fmt.Errorf("%w: invalid response: %v", ErrUnavailable, err)
	}

	if out.Fee == nil || out.Fee.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: missing or negative fee", ErrUnavailable)
	}

	return *out.Fee, nil
}
