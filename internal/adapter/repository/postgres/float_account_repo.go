package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/branchledger/internal/domain"
	"github.com/iho/branchledger/internal/usecase"
)

const floatAccountColumns = `id, branch_id, account_type, provider, current_balance,
       min_threshold, max_threshold, is_active, created_at, updated_at`

// FloatAccountRepository implements usecase.FloatAccountRepository.
type FloatAccountRepository struct {
	db querier
}

// NewFloatAccountRepository creates a new FloatAccountRepository.
func NewFloatAccountRepository(pool *pgxpool.Pool) *FloatAccountRepository {
	return newFloatAccountRepositoryWithDB(pool)
}

func newFloatAccountRepositoryWithDB(db querier) *FloatAccountRepository {
	return &FloatAccountRepository{db: db}
}

// Create creates a new float account.
func (r *FloatAccountRepository) Create(ctx context.Context, account *domain.FloatAccount) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO float_accounts (`+floatAccountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		account.ID,
		account.BranchID,
		string(account.AccountType),
		account.Provider,
		decimalToNumeric(account.CurrentBalance),
		decimalToNumeric(account.MinThreshold),
		decimalToNumeric(account.MaxThreshold),
		account.IsActive,
		account.CreatedAt,
		account.UpdatedAt,
	)

	return err
}

// GetByID retrieves a float account by ID.
func (r *FloatAccountRepository) GetByID(ctx context.Context, id string) (*domain.FloatAccount, error) {
	row := r.db.QueryRow(ctx, `SELECT `+floatAccountColumns+` FROM float_accounts WHERE id = $1`, id)

	return scanFloatAccount(row)
}

// GetByTypeAndBranch retrieves the active account of a type for a branch.
func (r *FloatAccountRepository) GetByTypeAndBranch(ctx context.Context, accountType domain.AccountType, branchID string) (*domain.FloatAccount, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+floatAccountColumns+`
		FROM float_accounts
		WHERE account_type = $1 AND branch_id = $2 AND is_active
		ORDER BY created_at
		LIMIT 1`,
		string(accountType), branchID,
	)

	return scanFloatAccount(row)
}

// ListByBranch lists every account of a branch.
func (r *FloatAccountRepository) ListByBranch(ctx context.Context, branchID string) ([]*domain.FloatAccount, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+floatAccountColumns+`
		FROM float_accounts
		WHERE branch_id = $1
		ORDER BY account_type, provider, id`,
		branchID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*domain.FloatAccount
	for rows.Next() {
		acc, err := scanFloatAccount(rows)
		if err != nil {
			return nil, err
		}

		accounts = append(accounts, acc)
	}

	return accounts, rows.Err()
}

// ApplyDelta adds delta to the balance with a single UPDATE so concurrent
// settlements never lose an update.
func (r *FloatAccountRepository) ApplyDelta(ctx context.Context, tx usecase.Transaction, id string, delta decimal.Decimal, updatedAt time.Time) (*domain.BalanceChange, error) {
	q := conn(tx, r.db)

	row := q.QueryRow(ctx, `
		UPDATE float_accounts
		SET current_balance = current_balance + $2, updated_at = $3
		WHERE id = $1 AND is_active
		RETURNING `+floatAccountColumns,
		id, decimalToNumeric(delta), updatedAt,
	)

	acc, err := scanFloatAccount(row)
	if err == nil {
		return &domain.BalanceChange{
			Account:         acc,
			PreviousBalance: acc.CurrentBalance.Sub(delta),
			Delta:           delta,
		}, nil
	}

	if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, err
	}

	var active bool
	if err := q.QueryRow(ctx, `SELECT is_active FROM float_accounts WHERE id = $1`, id).Scan(&active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	return nil, fmt.Errorf("%w: %s", domain.ErrAccountInactive, id)
}

func scanFloatAccount(row pgx.Row) (*domain.FloatAccount, error) {
	var (
		acc                       domain.FloatAccount
		accountType               string
		balance, minimum, maximum pgtype.Numeric
	)

	err := row.Scan(
		&acc.ID,
		&acc.BranchID,
		&accountType,
		&acc.Provider,
		&balance,
		&minimum,
		&maximum,
		&acc.IsActive,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	acc.AccountType = domain.AccountType(accountType)
	acc.CurrentBalance = numericToDecimal(balance)
	acc.MinThreshold = numericToDecimal(minimum)
	acc.MaxThreshold = numericToDecimal(maximum)

	return &acc, nil
}
