package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/branchledger/internal/domain"
)

// maxUnbalancedReported caps the GL transaction ids listed in a report.
const maxUnbalancedReported = 100

// ReconciliationUseCase surfaces transactions and ledger state that need manual attention.
type ReconciliationUseCase struct {
	txRepo     TransactionRepository
	ledgerRepo LedgerRepository
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(txRepo TransactionRepository, ledgerRepo LedgerRepository) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		txRepo:     txRepo,
		ledgerRepo: ledgerRepo,
	}
}

// ListUnposted returns completed transactions without a GL transaction.
func (uc *ReconciliationUseCase) ListUnposted(ctx context.Context, branchID string, limit, offset int) ([]*domain.Transaction, error) {
	limit, offset = domain.ValidatePagination(limit, offset)

	txns, err := uc.txRepo.List(ctx, domain.TransactionFilter{
		BranchID:     branchID,
		Status:       domain.StatusCompleted,
		UnpostedOnly: true,
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		return nil, err
	}

	out := make([]*domain.Transaction, 0, len(txns))
	for _, t := range txns {
		if t.NeedsReconciliation() {
			out = append(out, t)
		}
	}

	return out, nil
}

// ConsistencyReport is the result of a ledger-wide check.
type ConsistencyReport struct {
	CheckedAt      time.Time
	Unbalanced     []string
	TotalDebit     decimal.Decimal
	TotalCredit    decimal.Decimal
	UnpostedCount  int
	LedgerBalanced bool
}

// CheckLedgerConsistency verifies debits equal credits across the ledger and
// per GL transaction, and counts unposted transactions.
func (uc *ReconciliationUseCase) CheckLedgerConsistency(ctx context.Context) (*ConsistencyReport, error) {
	totalDebit, totalCredit, err := uc.ledgerRepo.CheckConsistency(ctx)
	if err != nil {
		return nil, err
	}

	unbalanced, err := uc.ledgerRepo.ListUnbalanced(ctx, maxUnbalancedReported)
	if err != nil {
		return nil, err
	}

	unposted, err := uc.ListUnposted(ctx, "", domain.MaxPageSize, 0)
	if err != nil {
		return nil, err
	}

	return &ConsistencyReport{
		CheckedAt:      time.Now().UTC(),
		Unbalanced:     unbalanced,
		TotalDebit:     totalDebit,
		TotalCredit:    totalCredit,
		UnpostedCount:  len(unposted),
		LedgerBalanced: totalDebit.Equal(totalCredit) && len(unbalanced) == 0,
	}, nil
}

// Err returns a LedgerImbalanceError when the report is not balanced.
func (r *ConsistencyReport) Err() error {
	if r.LedgerBalanced {
		return nil
	}

	return &domain.LedgerImbalanceError{TotalDebit: r.TotalDebit, TotalCredit: r.TotalCredit}
}
