package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/iho/branchledger/internal/adapter/http/dto"
	"github.com/iho/branchledger/internal/domain"
	"github.com/iho/branchledger/internal/usecase"
)

// SettlementService is the settlement coordinator as seen by HTTP.
type SettlementService interface {
	Settle(ctx context.Context, input usecase.SettleInput) (*domain.Transaction, error)
	Amend(ctx context.Context, id string, input usecase.AmendInput) (*domain.Transaction, error)
	Void(ctx context.Context, id string, input usecase.VoidInput) (*domain.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error)
}

// PostingService exposes GL reads.
type PostingService interface {
	GetGLTransactions(ctx context.Context, sourceTransactionID string) ([]*domain.GLTransaction, error)
	ListAccounts(ctx context.Context) ([]*domain.GLAccount, error)
}

// TransactionHandler handles transaction HTTP requests.
type TransactionHandler struct {
	settlement SettlementService
	posting    PostingService
	logger     zerolog.Logger
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(settlement SettlementService, posting PostingService, logger zerolog.Logger) *TransactionHandler {
	return &TransactionHandler{settlement: settlement, posting: posting, logger: logger}
}

// Settle records a new transaction.
func (h *TransactionHandler) Settle(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req dto.SettleTransactionRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput(actor)
	if err != nil {
		writeDomainError(w, "invalid request", err)
		return
	}

	txn, err := h.settlement.Settle(r.Context(), input)
	h.writeResult(w, r, http.StatusCreated, "failed to settle transaction", txn, err)
}

// Get retrieves a transaction by ID.
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	txn, err := h.settlement.GetTransaction(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to get transaction", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(txn))
}

// List lists transactions by branch, status and domain.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	txns, err := h.settlement.ListTransactions(r.Context(), domain.TransactionFilter{
		BranchID: q.Get("branch_id"),
		Status:   domain.TransactionStatus(q.Get("status")),
		Domain:   domain.TransactionDomain(q.Get("domain")),
		Limit:    parseIntQuery(r, "limit", domain.DefaultPageSize),
		Offset:   parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		writeDomainError(w, "failed to list transactions", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionsFromDomain(txns))
}

// Amend changes a completed transaction in place.
func (h *TransactionHandler) Amend(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req dto.AmendTransactionRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput(actor)
	if err != nil {
		writeDomainError(w, "invalid request", err)
		return
	}

	txn, err := h.settlement.Amend(r.Context(), chi.URLParam(r, "id"), input)
	h.writeResult(w, r, http.StatusOK, "failed to amend transaction", txn, err)
}

// Reverse voids a completed transaction and keeps the row as reversed.
func (h *TransactionHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req dto.ReverseTransactionRequest
	if r.ContentLength != 0 && !decodeRequest(w, r, &req) {
		return
	}

	txn, err := h.settlement.Void(r.Context(), chi.URLParam(r, "id"), usecase.VoidInput{
		Actor:  actor,
		Reason: req.Reason,
	})
	h.writeResult(w, r, http.StatusOK, "failed to reverse transaction", txn, err)
}

// Delete voids a transaction and removes its row.
func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	_, err := h.settlement.Void(r.Context(), chi.URLParam(r, "id"), usecase.VoidInput{
		Actor:  actor,
		Reason: r.URL.Query().Get("reason"),
		Hard:   true,
	})
	if err != nil {
		writeDomainError(w, "failed to delete transaction", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GL returns the GL transactions posted for a transaction.
func (h *TransactionHandler) GL(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := h.settlement.GetTransaction(r.Context(), id); err != nil {
		writeDomainError(w, "failed to get transaction", err)
		return
	}

	txs, err := h.posting.GetGLTransactions(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to get gl transactions", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.GLTransactionsFromDomain(txs))
}

// GLAccounts lists the chart of accounts with balances.
func (h *TransactionHandler) GLAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.posting.ListAccounts(r.Context())
	if err != nil {
		writeDomainError(w, "failed to list gl accounts", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.GLAccountsFromDomain(accounts))
}

// writeResult writes the outcome of settle, amend or reverse. A posting
// failure still carries the transaction, which is returned with 202.
func (h *TransactionHandler) writeResult(w http.ResponseWriter, r *http.Request, status int, message string, txn *domain.Transaction, err error) {
	var postErr *domain.LedgerPostingError

	switch {
	case err == nil:
		writeJSON(w, status, dto.TransactionFromDomain(txn))
	case errors.As(err, &postErr) && txn != nil:
		h.logger.Warn().Err(err).Str("transaction_id", txn.ID).Msg("transaction flagged for reconciliation")
		writeJSON(w, http.StatusAccepted, dto.PostingFlaggedResponse{
			Transaction: dto.TransactionFromDomain(txn),
			Warning:     err.Error(),
		})
	default:
		if mapDomainError(err) >= http.StatusInternalServerError {
			h.logger.Error().Err(err).Str("path", r.URL.Path).Msg(message)
		}
		writeDomainError(w, message, err)
	}
}
