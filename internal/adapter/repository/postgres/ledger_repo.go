package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	db querier
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return newLedgerRepositoryWithDB(pool)
}

func newLedgerRepositoryWithDB(db querier) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// CheckConsistency sums every GL entry. A consistent ledger has equal totals.
func (r *LedgerRepository) CheckConsistency(ctx context.Context) (totalDebit decimal.Decimal, totalCredit decimal.Decimal, err error) {
	var debit, credit pgtype.Numeric

	err = r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(debit), 0), COALESCE(SUM(credit), 0) FROM gl_entries`,
	).Scan(&debit, &credit)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	return numericToDecimal(debit), numericToDecimal(credit), nil
}

// ListUnbalanced returns ids of GL transactions whose entries do not balance.
func (r *LedgerRepository) ListUnbalanced(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT gl_transaction_id
		FROM gl_entries
		GROUP BY gl_transaction_id
		HAVING SUM(debit) <> SUM(credit)
		ORDER BY gl_transaction_id
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	return ids, rows.Err()
}
