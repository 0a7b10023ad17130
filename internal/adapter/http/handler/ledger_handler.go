package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/iho/branchledger/internal/adapter/http/dto"
	"github.com/iho/branchledger/internal/domain"
	"github.com/iho/branchledger/internal/usecase"
)

// AuditService reads the audit trail.
type AuditService interface {
	List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error)
}

// ReconciliationService reports transactions and GL state needing attention.
type ReconciliationService interface {
	ListUnposted(ctx context.Context, branchID string, limit, offset int) ([]*domain.Transaction, error)
	CheckLedgerConsistency(ctx context.Context) (*usecase.ConsistencyReport, error)
}

// FeeService quotes fees.
type FeeService interface {
	Quote(ctx context.Context, input usecase.FeeQuoteInput) (*usecase.FeeQuote, error)
}

// LedgerHandler serves audit, reconciliation and fee quote requests.
type LedgerHandler struct {
	audit          AuditService
	reconciliation ReconciliationService
	fees           FeeService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(audit AuditService, reconciliation ReconciliationService, fees FeeService) *LedgerHandler {
	return &LedgerHandler{audit: audit, reconciliation: reconciliation, fees: fees}
}

// Audit lists audit entries.
func (h *LedgerHandler) Audit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := domain.AuditFilter{
		ActorID:    q.Get("actor_id"),
		BranchID:   q.Get("branch_id"),
		Action:     domain.AuditAction(q.Get("action")),
		EntityType: q.Get("entity_type"),
		EntityID:   q.Get("entity_id"),
		Severity:   domain.AuditSeverity(q.Get("severity")),
		Status:     domain.AuditStatus(q.Get("status")),
		Limit:      parseIntQuery(r, "limit", domain.DefaultPageSize),
		Offset:     parseIntQuery(r, "offset", 0),
	}

	var err error
	if filter.StartDate, err = parseTimeQuery(r, "start_date"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_date", err.Error())
		return
	}
	if filter.EndDate, err = parseTimeQuery(r, "end_date"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_date", err.Error())
		return
	}

	logs, err := h.audit.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, "failed to list audit logs", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AuditLogsFromDomain(logs))
}

// Unposted lists completed transactions without a GL posting.
func (h *LedgerHandler) Unposted(w http.ResponseWriter, r *http.Request) {
	txns, err := h.reconciliation.ListUnposted(
		r.Context(),
		r.URL.Query().Get("branch_id"),
		parseIntQuery(r, "limit", domain.DefaultPageSize),
		parseIntQuery(r, "offset", 0),
	)
	if err != nil {
		writeDomainError(w, "failed to list unposted transactions", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionsFromDomain(txns))
}

// Consistency runs the ledger-wide debit/credit check. An unbalanced ledger
// is reported with 200; the body carries the verdict.
func (h *LedgerHandler) Consistency(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconciliation.CheckLedgerConsistency(r.Context())
	if err != nil {
		writeDomainError(w, "failed to check ledger consistency", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ConsistencyFromReport(report))
}

// QuoteFee returns the fee for a prospective transaction.
func (h *LedgerHandler) QuoteFee(w http.ResponseWriter, r *http.Request) {
	var req dto.FeeQuoteRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeDomainError(w, "invalid request", err)
		return
	}

	quote, err := h.fees.Quote(r.Context(), input)
	if err != nil {
		writeDomainError(w, "failed to quote fee", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.FeeQuoteResponse{Source: quote.Source, Fee: quote.Fee})
}

func parseTimeQuery(r *http.Request, key string) (*time.Time, error) {
	val := r.URL.Query().Get(key)
	if val == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil, fmt.Errorf("%s must be RFC3339: %w", key, err)
	}

	return &t, nil
}
