package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/branchledger/internal/usecase"
)

type txStarter interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// TxManager implements usecase.TransactionManager. Settlement units run at
// read committed unless overridden and serialise on row locks taken with
// FOR UPDATE.
type TxManager struct {
	pool txStarter
	opts pgx.TxOptions
}

// NewTxManager creates a new TxManager.
func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return newTxManagerWithPool(pool)
}

func newTxManagerWithPool(pool txStarter) *TxManager {
	return &TxManager{pool: pool, opts: pgx.TxOptions{IsoLevel: pgx.ReadCommitted}}
}

// WithIsolation overrides the isolation level of new transactions.
func (m *TxManager) WithIsolation(level pgx.TxIsoLevel) *TxManager {
	m.opts.IsoLevel = level
	return m
}

// Begin starts a new transaction.
func (m *TxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	tx, err := m.pool.BeginTx(ctx, m.opts)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}

	return &Tx{tx: tx}, nil
}

// Tx wraps a pgx transaction. depth is 0 for the outer transaction and
// counts savepoints below it.
type Tx struct {
	tx    pgx.Tx
	depth int
}

// Begin starts a savepoint inside the transaction. Rolling it back undoes
// only the work done since the savepoint.
func (t *Tx) Begin(ctx context.Context) (usecase.Transaction, error) {
	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin savepoint %d: %w", t.depth+1, err)
	}

	return &Tx{tx: sp, depth: t.depth + 1}, nil
}

// Commit commits the transaction, or releases the savepoint.
func (t *Tx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		if t.depth == 0 {
			return fmt.Errorf("commit: %w", err)
		}
		return fmt.Errorf("release savepoint %d: %w", t.depth, err)
	}

	return nil
}

// Rollback rolls back the transaction, or to the savepoint. Rolling back a
// finished transaction is a no-op so it can be deferred.
func (t *Tx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

// PgxTx returns the underlying pgx.Tx.
func (t *Tx) PgxTx() pgx.Tx {
	return t.tx
}
