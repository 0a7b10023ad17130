package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/branchledger/internal/domain"
	"github.com/iho/branchledger/internal/usecase"
)

const glAccountColumns = `id, code, name, type, balance, is_active, created_at, updated_at`

// GLRepository implements usecase.GLRepository.
type GLRepository struct {
	db querier
}

// NewGLRepository creates a new GLRepository.
func NewGLRepository(pool *pgxpool.Pool) *GLRepository {
	return newGLRepositoryWithDB(pool)
}

func newGLRepositoryWithDB(db querier) *GLRepository {
	return &GLRepository{db: db}
}

// UpsertAccount returns the account with spec.Code, creating it when missing.
// Concurrent first postings against the same code converge on one row.
func (r *GLRepository) UpsertAccount(ctx context.Context, tx usecase.Transaction, id string, spec domain.GLAccountSpec, now time.Time) (*domain.GLAccount, error) {
	row := conn(tx, r.db).QueryRow(ctx, `
		INSERT INTO gl_accounts (id, code, name, type, balance, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, TRUE, $5, $5)
		ON CONFLICT (code) DO UPDATE SET code = EXCLUDED.code
		RETURNING `+glAccountColumns,
		id, spec.Code, spec.Name, string(spec.Type), now,
	)

	return scanGLAccount(row)
}

// AdjustAccountBalance adds delta to a GL account balance.
func (r *GLRepository) AdjustAccountBalance(ctx context.Context, tx usecase.Transaction, accountID string, delta decimal.Decimal, updatedAt time.Time) error {
	tag, err := conn(tx, r.db).Exec(ctx, `
		UPDATE gl_accounts SET balance = balance + $2, updated_at = $3 WHERE id = $1`,
		accountID, decimalToNumeric(delta), updatedAt,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrGLAccountNotFound
	}

	return nil
}

// CreateTransaction inserts a GL transaction and its entries.
func (r *GLRepository) CreateTransaction(ctx context.Context, tx usecase.Transaction, glTx *domain.GLTransaction) error {
	q := conn(tx, r.db)

	_, err := q.Exec(ctx, `
		INSERT INTO gl_transactions (id, date, description, source_module, source_transaction_id,
		                             source_transaction_type, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		glTx.ID,
		glTx.Date,
		glTx.Description,
		glTx.SourceModule,
		glTx.SourceTransactionID,
		glTx.SourceTransactionType,
		glTx.ActorID,
		glTx.CreatedAt,
	)
	if err != nil {
		return err
	}

	for _, e := range glTx.Entries {
		metadata, err := marshalJSON(e.Metadata)
		if err != nil {
			return err
		}

		_, err = q.Exec(ctx, `
			INSERT INTO gl_entries (id, gl_transaction_id, account_id, debit, credit, description, metadata, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			e.ID,
			glTx.ID,
			e.AccountID,
			decimalToNumeric(e.Debit),
			decimalToNumeric(e.Credit),
			e.Description,
			metadata,
			e.CreatedAt,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// GetBySource returns GL transactions booked for a source transaction, with
// their entries.
func (r *GLRepository) GetBySource(ctx context.Context, tx usecase.Transaction, sourceModule, sourceTransactionID string) ([]*domain.GLTransaction, error) {
	q := conn(tx, r.db)

	rows, err := q.Query(ctx, `
		SELECT id, date, description, source_module, source_transaction_id,
		       source_transaction_type, actor_id, created_at
		FROM gl_transactions
		WHERE source_module = $1 AND source_transaction_id = $2
		ORDER BY created_at, id`,
		sourceModule, sourceTransactionID,
	)
	if err != nil {
		return nil, err
	}

	var (
		glTxs []*domain.GLTransaction
		ids   []string
	)

	byID := make(map[string]*domain.GLTransaction)

	for rows.Next() {
		var t domain.GLTransaction
		if err := rows.Scan(
			&t.ID,
			&t.Date,
			&t.Description,
			&t.SourceModule,
			&t.SourceTransactionID,
			&t.SourceTransactionType,
			&t.ActorID,
			&t.CreatedAt,
		); err != nil {
			rows.Close()
			return nil, err
		}

		glTxs = append(glTxs, &t)
		ids = append(ids, t.ID)
		byID[t.ID] = &t
	}

	rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return nil, nil
	}

	entries, err := q.Query(ctx, `
		SELECT e.id, e.gl_transaction_id, e.account_id, a.code, a.type,
		       e.debit, e.credit, e.description, e.metadata, e.created_at
		FROM gl_entries e
		JOIN gl_accounts a ON a.id = e.account_id
		WHERE e.gl_transaction_id = ANY($1)
		ORDER BY e.gl_transaction_id, e.id`,
		ids,
	)
	if err != nil {
		return nil, err
	}
	defer entries.Close()

	for entries.Next() {
		var (
			e             domain.GLEntry
			accountType   string
			debit, credit pgtype.Numeric
			metadata      []byte
		)

		if err := entries.Scan(
			&e.ID,
			&e.GLTransactionID,
			&e.AccountID,
			&e.AccountCode,
			&accountType,
			&debit,
			&credit,
			&e.Description,
			&metadata,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}

		e.AccountType = domain.GLAccountType(accountType)
		e.Debit = numericToDecimal(debit)
		e.Credit = numericToDecimal(credit)
		e.Metadata = unmarshalJSON(metadata)

		if t, ok := byID[e.GLTransactionID]; ok {
			t.Entries = append(t.Entries, &e)
		}
	}

	return glTxs, entries.Err()
}

// DeleteTransaction removes a GL transaction; its entries cascade.
func (r *GLRepository) DeleteTransaction(ctx context.Context, tx usecase.Transaction, id string) error {
	tag, err := conn(tx, r.db).Exec(ctx, `DELETE FROM gl_transactions WHERE id = $1`, id)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	return nil
}

// ListAccounts returns the chart of accounts ordered by code.
func (r *GLRepository) ListAccounts(ctx context.Context) ([]*domain.GLAccount, error) {
	rows, err := r.db.Query(ctx, `SELECT `+glAccountColumns+` FROM gl_accounts ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*domain.GLAccount
	for rows.Next() {
		acc, err := scanGLAccount(rows)
		if err != nil {
			return nil, err
		}

		accounts = append(accounts, acc)
	}

	return accounts, rows.Err()
}

func scanGLAccount(row pgx.Row) (*domain.GLAccount, error) {
	var (
		acc         domain.GLAccount
		accountType string
		balance     pgtype.Numeric
	)

	if err := row.Scan(
		&acc.ID,
		&acc.Code,
		&acc.Name,
		&accountType,
		&balance,
		&acc.IsActive,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrGLAccountNotFound
		}

		return nil, err
	}

	acc.Type = domain.GLAccountType(accountType)
	acc.Balance = numericToDecimal(balance)

	return &acc, nil
}
