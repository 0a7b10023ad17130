package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/iho/branchledger/internal/domain"
)

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrTransactionNotFound, http.StatusNotFound},
		{fmt.Errorf("load: %w", domain.ErrAccountNotFound), http.StatusNotFound},
		{domain.NewValidationError("amount", "must be positive"), http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: cannot amend reversed transaction", domain.ErrInvalidStateTransition), http.StatusConflict},
		{&domain.LedgerPostingError{TransactionID: "t", Err: errors.New("x")}, http.StatusAccepted},
		{&domain.BalanceApplicationError{TransactionID: "t", AccountID: "a", Err: domain.ErrAccountInactive}, http.StatusInternalServerError},
		{&domain.LedgerImbalanceError{}, http.StatusInternalServerError},
		{domain.ErrOutcomeUnknown, http.StatusGatewayTimeout},
		{domain.ErrExpiredToken, http.StatusUnauthorized},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := mapDomainError(tt.err); got != tt.want {
			t.Errorf("mapDomainError(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestParseIntQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=10&offset=abc", nil)

	if got := parseIntQuery(req, "limit", 5); got != 10 {
		t.Fatalf("expected 10, got %d", got)
	}
	if got := parseIntQuery(req, "offset", 0); got != 0 {
		t.Fatalf("expected default on bad value, got %d", got)
	}
	if got := parseIntQuery(req, "missing", 7); got != 7 {
		t.Fatalf("expected default on missing value, got %d", got)
	}
}

func TestHealthHandler(t *testing.T) {
	ok := PingerFunc(func(context.Context) error { return nil })
	down := PingerFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name     string
		postgres Pinger
		redis    Pinger
		want     int
	}{
		{name: "all up", postgres: ok, redis: ok, want: http.StatusOK},
		{name: "no redis configured", postgres: ok, want: http.StatusOK},
		{name: "postgres down", postgres: down, redis: ok, want: http.StatusServiceUnavailable},
		{name: "redis down", postgres: ok, redis: down, want: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.postgres, tt.redis)

			rec := httptest.NewRecorder()
			h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}

			var body struct {
				Checks map[string]string `json:"checks"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if tt.redis == nil {
				if _, ok := body.Checks["redis"]; ok {
					t.Fatalf("unconfigured redis reported: %v", body.Checks)
				}
			}
		})
	}

	rec := httptest.NewRecorder()
	NewHealthHandler(down, nil).Liveness(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("liveness must not depend on dependencies, got %d", rec.Code)
	}
}
