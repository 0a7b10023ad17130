package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/branchledger/internal/domain"
	"github.com/iho/branchledger/internal/usecase"
)

// TransactionResponse represents a transaction in API responses.
type TransactionResponse struct {
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
	Metadata              map[string]any  `json:"metadata,omitempty"`
	GLTransactionID       *string         `json:"gl_transaction_id"`
	ID                    string          `json:"id"`
	Domain                string          `json:"domain"`
	Type                  string          `json:"type"`
	CounterpartyAccountID string          `json:"counterparty_account_id,omitempty"`
	CashTillAccountID     string          `json:"cash_till_account_id"`
	BranchID              string          `json:"branch_id"`
	ActorID               string          `json:"actor_id"`
	Reference             string          `json:"reference,omitempty"`
	Notes                 string          `json:"notes,omitempty"`
	Status                string          `json:"status"`
	Amount                decimal.Decimal `json:"amount"`
	Fee                   decimal.Decimal `json:"fee"`
	CashTillDelta         decimal.Decimal `json:"cash_till_delta"`
	FloatDelta            decimal.Decimal `json:"float_delta"`
	NeedsReconciliation   bool            `json:"needs_reconciliation"`
}

// TransactionFromDomain converts a domain transaction to a response.
func TransactionFromDomain(t *domain.Transaction) *TransactionResponse {
	return &TransactionResponse{
		CreatedAt:             t.CreatedAt,
		UpdatedAt:             t.UpdatedAt,
		Metadata:              t.Metadata,
		GLTransactionID:       t.GLTransactionID,
		ID:                    t.ID,
		Domain:                string(t.Domain),
		Type:                  string(t.Type),
		CounterpartyAccountID: t.CounterpartyAccountID,
		CashTillAccountID:     t.CashTillAccountID,
		BranchID:              t.BranchID,
		ActorID:               t.ActorID,
		Reference:             t.Reference,
		Notes:                 t.Notes,
		Status:                string(t.Status),
		Amount:                t.Amount,
		Fee:                   t.Fee,
		CashTillDelta:         t.CashTillDelta,
		FloatDelta:            t.FloatDelta,
		NeedsReconciliation:   t.NeedsReconciliation(),
	}
}

// TransactionsFromDomain converts domain transactions to responses.
func TransactionsFromDomain(txns []*domain.Transaction) []*TransactionResponse {
	result := make([]*TransactionResponse, len(txns))
	for i, t := range txns {
		result[i] = TransactionFromDomain(t)
	}
	return result
}

// AccountResponse represents a float account in API responses.
type AccountResponse struct {
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	ID             string          `json:"id"`
	BranchID       string          `json:"branch_id"`
	AccountType    string          `json:"account_type"`
	Provider       string          `json:"provider,omitempty"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	MinThreshold   decimal.Decimal `json:"min_threshold"`
	MaxThreshold   decimal.Decimal `json:"max_threshold"`
	IsActive       bool            `json:"is_active"`
}

// AccountFromDomain converts a domain float account to a response.
func AccountFromDomain(a *domain.FloatAccount) *AccountResponse {
	return &AccountResponse{
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
		ID:             a.ID,
		BranchID:       a.BranchID,
		AccountType:    string(a.AccountType),
		Provider:       a.Provider,
		CurrentBalance: a.CurrentBalance,
		MinThreshold:   a.MinThreshold,
		MaxThreshold:   a.MaxThreshold,
		IsActive:       a.IsActive,
	}
}

// AccountsFromDomain converts domain float accounts to responses.
func AccountsFromDomain(accounts []*domain.FloatAccount) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// GLAccountResponse represents a chart of accounts entry.
type GLAccountResponse struct {
	ID       string          `json:"id"`
	Code     string          `json:"code"`
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	Balance  decimal.Decimal `json:"balance"`
	IsActive bool            `json:"is_active"`
}

// GLAccountsFromDomain converts GL accounts to responses.
func GLAccountsFromDomain(accounts []*domain.GLAccount) []*GLAccountResponse {
	result := make([]*GLAccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = &GLAccountResponse{
			ID:       a.ID,
			Code:     a.Code,
			Name:     a.Name,
			Type:     string(a.Type),
			Balance:  a.Balance,
			IsActive: a.IsActive,
		}
	}
	return result
}

// GLEntryResponse is one debit or credit line.
type GLEntryResponse struct {
	AccountCode string          `json:"account_code"`
	Description string          `json:"description,omitempty"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

// GLTransactionResponse represents a posted GL transaction.
type GLTransactionResponse struct {
	Date                time.Time          `json:"date"`
	ID                  string             `json:"id"`
	Description         string             `json:"description"`
	SourceModule        string             `json:"source_module"`
	SourceTransactionID string             `json:"source_transaction_id"`
	Entries             []*GLEntryResponse `json:"entries"`
	TotalDebit          decimal.Decimal    `json:"total_debit"`
	TotalCredit         decimal.Decimal    `json:"total_credit"`
}

// GLTransactionsFromDomain converts GL transactions to responses.
func GLTransactionsFromDomain(txs []*domain.GLTransaction) []*GLTransactionResponse {
	result := make([]*GLTransactionResponse, len(txs))
	for i, t := range txs {
		debit, credit := t.Totals()
		entries := make([]*GLEntryResponse, len(t.Entries))
		for j, e := range t.Entries {
			entries[j] = &GLEntryResponse{
				AccountCode: e.AccountCode,
				Description: e.Description,
				Debit:       e.Debit,
				Credit:      e.Credit,
			}
		}

		result[i] = &GLTransactionResponse{
			Date:                t.Date,
			ID:                  t.ID,
			Description:         t.Description,
			SourceModule:        t.SourceModule,
			SourceTransactionID: t.SourceTransactionID,
			Entries:             entries,
			TotalDebit:          debit,
			TotalCredit:         credit,
		}
	}
	return result
}

// AuditLogResponse represents an audit entry.
type AuditLogResponse struct {
	CreatedAt    time.Time      `json:"created_at"`
	Details      map[string]any `json:"details,omitempty"`
	ID           string         `json:"id"`
	ActorID      string         `json:"actor_id"`
	BranchID     string         `json:"branch_id,omitempty"`
	Action       string         `json:"action"`
	EntityType   string         `json:"entity_type"`
	EntityID     string         `json:"entity_id"`
	Description  string         `json:"description,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Severity     string         `json:"severity"`
	Status       string         `json:"status"`
}

// AuditLogsFromDomain converts audit entries to responses.
func AuditLogsFromDomain(logs []*domain.AuditLog) []*AuditLogResponse {
	result := make([]*AuditLogResponse, len(logs))
	for i, l := range logs {
		result[i] = &AuditLogResponse{
			CreatedAt:    l.CreatedAt,
			Details:      l.Details,
			ID:           l.ID,
			ActorID:      l.ActorID,
			BranchID:     l.BranchID,
			Action:       string(l.Action),
			EntityType:   l.EntityType,
			EntityID:     l.EntityID,
			Description:  l.Description,
			ErrorMessage: l.ErrorMessage,
			Severity:     string(l.Severity),
			Status:       string(l.Status),
		}
	}
	return result
}

// ConsistencyResponse is the ledger-wide check result.
type ConsistencyResponse struct {
	CheckedAt      time.Time       `json:"checked_at"`
	Unbalanced     []string        `json:"unbalanced_gl_transactions"`
	TotalDebit     decimal.Decimal `json:"total_debit"`
	TotalCredit    decimal.Decimal `json:"total_credit"`
	Difference     decimal.Decimal `json:"difference"`
	UnpostedCount  int             `json:"unposted_count"`
	LedgerBalanced bool            `json:"ledger_balanced"`
}

// ConsistencyFromReport converts a consistency report to a response.
func ConsistencyFromReport(r *usecase.ConsistencyReport) *ConsistencyResponse {
	unbalanced := r.Unbalanced
	if unbalanced == nil {
		unbalanced = []string{}
	}

	return &ConsistencyResponse{
		CheckedAt:      r.CheckedAt,
		Unbalanced:     unbalanced,
		TotalDebit:     r.TotalDebit,
		TotalCredit:    r.TotalCredit,
		Difference:     r.TotalDebit.Sub(r.TotalCredit),
		UnpostedCount:  r.UnpostedCount,
		LedgerBalanced: r.LedgerBalanced,
	}
}

// FeeQuoteResponse is a fee quote.
type FeeQuoteResponse struct {
	Source string          `json:"source"`
	Fee    decimal.Decimal `json:"fee"`
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Details map[string]string `json:"details,omitempty"`
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
}

// PostingFlaggedResponse is returned when balances moved but the GL posting
// did not persist.
type PostingFlaggedResponse struct {
	Transaction *TransactionResponse `json:"transaction"`
	Warning     string               `json:"warning"`
}
