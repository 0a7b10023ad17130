package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/iho/branchledger/internal/adapter/http/middleware"
	"github.com/iho/branchledger/internal/infrastructure/auth"
)

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return stdout.String(), stderr.String(), err
}

func TestConsistencyPassed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/reconciliation/consistency" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get(middleware.ActorIDHeader) != "ops" {
			t.Errorf("expected actor header, got %q", r.Header.Get(middleware.ActorIDHeader))
		}
		_, _ = w.Write([]byte(`{"total_debit":"150","total_credit":"150","unposted_count":2,"ledger_balanced":true,"unbalanced_gl_transactions":[]}`))
	}))
	defer srv.Close()

	out, _, err := runCLI(t, "--url", srv.URL, "--actor", "ops", "ledger", "consistency")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Total debit:  150.00") || !strings.Contains(out, "Unposted:     2") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "PASSED") {
		t.Errorf("expected PASSED, got:\n%s", out)
	}
}

func TestConsistencyFailedReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"total_debit":"150","total_credit":"140","ledger_balanced":false,"unbalanced_gl_transactions":["gl-1"]}`))
	}))
	defer srv.Close()

	out, _, err := runCLI(t, "--url", srv.URL, "ledger", "consistency")
	if !errors.Is(err, errLedgerUnbalanced) {
		t.Fatalf("expected errLedgerUnbalanced, got %v", err)
	}
	if !strings.Contains(out, "gl-1") || !strings.Contains(out, "FAILED") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestUnpostedPassesFilters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("branch_id"); got != "br-1" {
			t.Errorf("expected branch_id br-1, got %q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "5" {
			t.Errorf("expected limit 5, got %q", got)
		}
		_, _ = w.Write([]byte(`[{"id":"txn-1","domain":"mobile-money","type":"deposit","amount":"100","branch_id":"br-1"}]`))
	}))
	defer srv.Close()

	out, _, err := runCLI(t, "--url", srv.URL, "ledger", "unposted", "--branch-id", "br-1", "--limit", "5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "txn-1") || !strings.Contains(out, "100.00") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestTransactionGetNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not_found","message":"transaction not found"}`))
	}))
	defer srv.Close()

	_, _, err := runCLI(t, "--url", srv.URL, "transaction", "get", "missing")

	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected apiError, got %v", err)
	}
	if apiErr.Status != http.StatusNotFound || apiErr.Code != "not_found" {
		t.Errorf("unexpected api error %+v", apiErr)
	}
}

func TestTransactionReverseSendsReasonAndIdempotencyKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/transactions/txn-1/reverse" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get(middleware.IdempotencyKeyHeader) == "" {
			t.Error("expected idempotency key")
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("expected bearer token, got %q", r.Header.Get("Authorization"))
		}

		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["reason"] != "duplicate" {
			t.Errorf("expected reason duplicate, got %v", body)
		}

		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"transaction":{"id":"txn-1","status":"reversed"},"warning":"ledger posting failed"}`))
	}))
	defer srv.Close()

	out, errOut, err := runCLI(t, "--url", srv.URL, "--token", "tok", "txn", "reverse", "txn-1", "--reason", "duplicate")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(errOut, "ledger posting failed") {
		t.Errorf("expected warning on stderr, got %q", errOut)
	}
	if !strings.Contains(out, `"status": "reversed"`) {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestTokenCmd(t *testing.T) {
	out, _, err := runCLI(t, "token", "teller-9", "--secret", "s3cret", "--branch-id", "br-2", "--ttl", "1m")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	actor, err := auth.NewJWTManager("s3cret", time.Minute).Actor(strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("token did not verify: %v", err)
	}
	if actor.ID != "teller-9" || actor.BranchID != "br-2" {
		t.Errorf("unexpected actor %+v", actor)
	}
}

func TestTokenCmdRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	if _, _, err := runCLI(t, "token", "teller-9"); err == nil {
		t.Fatal("expected error without secret")
	}
}

func TestMigrateRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, _, err := runCLI(t, "migrate", "up"); err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected database url error, got %v", err)
	}
}
