package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/branchledger/internal/domain"
	"github.com/iho/branchledger/internal/usecase"
)

const transactionColumns = `id, branch_id, domain, type, status, amount, fee,
       cash_till_account_id, counterparty_account_id, cash_till_delta, float_delta,
       reference, notes, metadata, gl_transaction_id, actor_id, created_at, updated_at`

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	db querier
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return newTransactionRepositoryWithDB(pool)
}

func newTransactionRepositoryWithDB(db querier) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create inserts a transaction row.
func (r *TransactionRepository) Create(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error {
	metadata, err := marshalJSON(txn.Metadata)
	if err != nil {
		return err
	}

	_, err = conn(tx, r.db).Exec(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		txn.ID,
		txn.BranchID,
		string(txn.Domain),
		string(txn.Type),
		string(txn.Status),
		decimalToNumeric(txn.Amount),
		decimalToNumeric(txn.Fee),
		txn.CashTillAccountID,
		nullableText(txn.CounterpartyAccountID),
		decimalToNumeric(txn.CashTillDelta),
		decimalToNumeric(txn.FloatDelta),
		txn.Reference,
		txn.Notes,
		metadata,
		txn.GLTransactionID,
		txn.ActorID,
		txn.CreatedAt,
		txn.UpdatedAt,
	)

	return err
}

// GetByID retrieves a transaction by ID.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	row := r.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)

	return scanTransaction(row)
}

// GetByIDForUpdate retrieves a transaction by ID with a FOR UPDATE lock.
func (r *TransactionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Transaction, error) {
	row := conn(tx, r.db).QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id)

	return scanTransaction(row)
}

// Update rewrites the mutable fields of an amended transaction.
func (r *TransactionRepository) Update(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error {
	metadata, err := marshalJSON(txn.Metadata)
	if err != nil {
		return err
	}

	tag, err := conn(tx, r.db).Exec(ctx, `
		UPDATE transactions
		SET type = $2, status = $3, amount = $4, fee = $5,
		    counterparty_account_id = $6, cash_till_delta = $7, float_delta = $8,
		    reference = $9, notes = $10, metadata = $11, gl_transaction_id = $12, updated_at = $13
		WHERE id = $1`,
		txn.ID,
		string(txn.Type),
		string(txn.Status),
		decimalToNumeric(txn.Amount),
		decimalToNumeric(txn.Fee),
		nullableText(txn.CounterpartyAccountID),
		decimalToNumeric(txn.CashTillDelta),
		decimalToNumeric(txn.FloatDelta),
		txn.Reference,
		txn.Notes,
		metadata,
		txn.GLTransactionID,
		txn.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}

	return nil
}

// UpdateStatus sets the status and GL link of a transaction.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, status domain.TransactionStatus, glTransactionID *string, updatedAt time.Time) error {
	tag, err := conn(tx, r.db).Exec(ctx, `
		UPDATE transactions SET status = $2, gl_transaction_id = $3, updated_at = $4 WHERE id = $1`,
		id, string(status), glTransactionID, updatedAt,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}

	return nil
}

// Delete removes a transaction row.
func (r *TransactionRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	tag, err := conn(tx, r.db).Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}

	return nil
}

// List lists transactions matching filter, newest first.
func (r *TransactionRepository) List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	var (
		conds []string
		args  []any
	)

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.BranchID != "" {
		add("branch_id = $%d", filter.BranchID)
	}

	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}

	if filter.Domain != "" {
		add("domain = $%d", string(filter.Domain))
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`

	if filter.UnpostedOnly {
		conds = append(conds, "gl_transaction_id IS NULL")
	}

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []*domain.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}

		txns = append(txns, txn)
	}

	return txns, rows.Err()
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		txn                                    domain.Transaction
		txDomain, txType, status               string
		counterparty                           pgtype.Text
		amount, fee, cashTillDelta, floatDelta pgtype.Numeric
		metadata                               []byte
	)

	err := row.Scan(
		&txn.ID,
		&txn.BranchID,
		&txDomain,
		&txType,
		&status,
		&amount,
		&fee,
		&txn.CashTillAccountID,
		&counterparty,
		&cashTillDelta,
		&floatDelta,
		&txn.Reference,
		&txn.Notes,
		&metadata,
		&txn.GLTransactionID,
		&txn.ActorID,
		&txn.CreatedAt,
		&txn.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}

		return nil, err
	}

	txn.Domain = domain.TransactionDomain(txDomain)
	txn.Type = domain.TransactionType(txType)
	txn.Status = domain.TransactionStatus(status)
	txn.Amount = numericToDecimal(amount)
	txn.Fee = numericToDecimal(fee)
	txn.CounterpartyAccountID = counterparty.String
	txn.CashTillDelta = numericToDecimal(cashTillDelta)
	txn.FloatDelta = numericToDecimal(floatDelta)
	txn.Metadata = unmarshalJSON(metadata)

	return &txn, nil
}
