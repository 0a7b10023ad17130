package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/iho/branchledger/internal/adapter/http/dto"
	"github.com/iho/branchledger/internal/domain"
	"github.com/iho/branchledger/internal/usecase"
)

// AccountService manages float accounts.
type AccountService interface {
	CreateAccount(ctx context.Context, input usecase.CreateAccountInput) (*domain.FloatAccount, error)
	GetAccount(ctx context.Context, id string) (*domain.FloatAccount, error)
	ListAccountsByBranch(ctx context.Context, branchID string) ([]*domain.FloatAccount, error)
}

// AccountHandler handles float account HTTP requests.
type AccountHandler struct {
	accounts AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accounts AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// Create creates a new float account.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAccountRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeDomainError(w, "invalid request", err)
		return
	}

	account, err := h.accounts.CreateAccount(r.Context(), input)
	if err != nil {
		writeDomainError(w, "failed to create account", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.AccountFromDomain(account))
}

// Get retrieves an account by ID.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	account, err := h.accounts.GetAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "failed to get account", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// ListByBranch lists the accounts of a branch. The optional type, provider
// and active query parameters narrow the result.
func (h *AccountHandler) ListByBranch(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.ListAccountsByBranch(r.Context(), chi.URLParam(r, "branchID"))
	if err != nil {
		writeDomainError(w, "failed to list accounts", err)
		return
	}

	filter, err := accountFilterFromQuery(r)
	if err != nil {
		writeDomainError(w, "invalid request", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountsFromDomain(filter.apply(accounts)))
}

type accountFilter struct {
	accountType domain.AccountType
	provider    string
	active      *bool
}

func accountFilterFromQuery(r *http.Request) (accountFilter, error) {
	q := r.URL.Query()
	f := accountFilter{
		accountType: domain.AccountType(q.Get("type")),
		provider:    q.Get("provider"),
	}

	if v := q.Get("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return f, domain.NewValidationError("active", "must be true or false")
		}
		f.active = &active
	}

	return f, nil
}

func (f accountFilter) apply(accounts []*domain.FloatAccount) []*domain.FloatAccount {
	out := accounts[:0:0]
	for _, a := range accounts {
		if f.accountType != "" && a.AccountType != f.accountType {
			continue
		}
		if f.provider != "" && !strings.EqualFold(a.Provider, f.provider) {
			continue
		}
		if f.active != nil && a.IsActive != *f.active {
			continue
		}
		out = append(out, a)
	}

	return out
}
