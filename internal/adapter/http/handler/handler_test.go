package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/iho/branchledger/internal/domain"
	"github.com/iho/branchledger/internal/usecase"
)

type settlementStub struct {
	settleFn func(ctx context.Context, input usecase.SettleInput) (*domain.Transaction, error)
	amendFn  func(ctx context.Context, id string, input usecase.AmendInput) (*domain.Transaction, error)
	voidFn   func(ctx context.Context, id string, input usecase.VoidInput) (*domain.Transaction, error)
	getFn    func(ctx context.Context, id string) (*domain.Transaction, error)
	listFn   func(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error)
}

func (s *settlementStub) Settle(ctx context.Context, input usecase.SettleInput) (*domain.Transaction, error) {
	return s.settleFn(ctx, input)
}

func (s *settlementStub) Amend(ctx context.Context, id string, input usecase.AmendInput) (*domain.Transaction, error) {
	return s.amendFn(ctx, id, input)
}

func (s *settlementStub) Void(ctx context.Context, id string, input usecase.VoidInput) (*domain.Transaction, error) {
	return s.voidFn(ctx, id, input)
}

func (s *settlementStub) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	return s.getFn(ctx, id)
}

func (s *settlementStub) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	return s.listFn(ctx, filter)
}

type postingStub struct {
	glFn       func(ctx context.Context, id string) ([]*domain.GLTransaction, error)
	accountsFn func(ctx context.Context) ([]*domain.GLAccount, error)
}

func (s *postingStub) GetGLTransactions(ctx context.Context, id string) ([]*domain.GLTransaction, error) {
	return s.glFn(ctx, id)
}

func (s *postingStub) ListAccounts(ctx context.Context) ([]*domain.GLAccount, error) {
	return s.accountsFn(ctx)
}

var testActor = domain.Actor{ID: "teller-1", BranchID: "br-1"}

// newRequest builds a request carrying testActor and the chi URL params.
func newRequest(method, target string, body any, params map[string]string) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, target, &buf)
	if body == nil {
		req.ContentLength = 0
	}

	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}

	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = domain.ContextWithActor(ctx, testActor)

	return req.WithContext(ctx)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()

	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}

func newTransactionHandler(s *settlementStub, p *postingStub) *TransactionHandler {
	if p == nil {
		p = &postingStub{}
	}
	return NewTransactionHandler(s, p, zerolog.Nop())
}
