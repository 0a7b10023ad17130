package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/branchledger/internal/domain"
)

func TestGLRepositoryUpsertAccount(t *testing.T) {
	pool := newMockPool(t)
	repo := newGLRepositoryWithDB(pool)
	tx := beginTx(t, pool)
	now := time.Now().UTC()

	spec := domain.CounterpartyAccount("mtn momo")

	pool.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (code) DO UPDATE")).
		WithArgs("new-id", "2100-MTN-MOMO", spec.Name, "liability", now).
		WillReturnRows(pool.NewRows([]string{"id", "code", "name", "type", "balance", "is_active", "created_at", "updated_at"}).
			AddRow("existing-id", "2100-MTN-MOMO", spec.Name, "liability", decimalToNumeric(decimal.NewFromInt(250)), true, now, now))

	acc, err := repo.UpsertAccount(context.Background(), tx, "new-id", spec, now)
	require.NoError(t, err)
	assert.Equal(t, "existing-id", acc.ID)
	assert.Equal(t, domain.GLAccountLiability, acc.Type)
	assert.True(t, acc.Balance.Equal(decimal.NewFromInt(250)))
	assertExpectations(t, pool)
}

func TestGLRepositoryCreateTransaction(t *testing.T) {
	pool := newMockPool(t)
	repo := newGLRepositoryWithDB(pool)
	tx := beginTx(t, pool)
	now := time.Now().UTC()

	glTx := &domain.GLTransaction{
		ID:                    "gl-1",
		Date:                  now,
		Description:           "mobile-money deposit 100.00",
		SourceModule:          domain.SourceModuleSettlement,
		SourceTransactionID:   "txn-1",
		SourceTransactionType: "mobile-money/deposit",
		ActorID:               "teller-1",
		CreatedAt:             now,
		Entries: []*domain.GLEntry{
			{ID: "e-1", AccountID: "acc-cash", Debit: decimal.NewFromInt(100), Credit: decimal.Zero, CreatedAt: now},
			{ID: "e-2", AccountID: "acc-mtn", Debit: decimal.Zero, Credit: decimal.NewFromInt(100), CreatedAt: now},
		},
	}

	pool.ExpectExec(regexp.QuoteMeta("INSERT INTO gl_transactions")).
		WithArgs("gl-1", now, glTx.Description, "settlement", "txn-1", "mobile-money/deposit", "teller-1", now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	for _, e := range glTx.Entries {
		pool.ExpectExec(regexp.QuoteMeta("INSERT INTO gl_entries")).
			WithArgs(e.ID, "gl-1", e.AccountID, pgxmock.AnyArg(), pgxmock.AnyArg(), "", []byte("{}"), now).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	require.NoError(t, repo.CreateTransaction(context.Background(), tx, glTx))
	assertExpectations(t, pool)
}

func TestGLRepositoryGetBySource(t *testing.T) {
	pool := newMockPool(t)
	repo := newGLRepositoryWithDB(pool)
	now := time.Now().UTC()

	pool.ExpectQuery(regexp.QuoteMeta("FROM gl_transactions")).
		WithArgs("settlement", "txn-1").
		WillReturnRows(pool.NewRows([]string{
			"id", "date", "description", "source_module", "source_transaction_id",
			"source_transaction_type", "actor_id", "created_at",
		}).AddRow("gl-1", now, "desc", "settlement", "txn-1", "mobile-money/deposit", "teller-1", now))

	pool.ExpectQuery(regexp.QuoteMeta("JOIN gl_accounts a ON a.id = e.account_id")).
		WithArgs([]string{"gl-1"}).
		WillReturnRows(pool.NewRows([]string{
			"id", "gl_transaction_id", "account_id", "code", "type",
			"debit", "credit", "description", "metadata", "created_at",
		}).
			AddRow("e-1", "gl-1", "acc-cash", "1000", "asset",
				decimalToNumeric(decimal.NewFromInt(100)), decimalToNumeric(decimal.Zero), "cash", []byte(`{}`), now).
			AddRow("e-2", "gl-1", "acc-mtn", "2100-MTN", "liability",
				decimalToNumeric(decimal.Zero), decimalToNumeric(decimal.NewFromInt(100)), "mtn", []byte(`{}`), now))

	glTxs, err := repo.GetBySource(context.Background(), nil, domain.SourceModuleSettlement, "txn-1")
	require.NoError(t, err)
	require.Len(t, glTxs, 1)
	require.Len(t, glTxs[0].Entries, 2)

	debit, credit := glTxs[0].Totals()
	assert.True(t, debit.Equal(credit))
	assert.Equal(t, domain.GLAccountLiability, glTxs[0].Entries[1].AccountType)
	assertExpectations(t, pool)
}

func TestGLRepositoryGetBySourceEmpty(t *testing.T) {
	pool := newMockPool(t)
	repo := newGLRepositoryWithDB(pool)

	pool.ExpectQuery(regexp.QuoteMeta("FROM gl_transactions")).
		WithArgs("settlement", "txn-9").
		WillReturnRows(pool.NewRows([]string{
			"id", "date", "description", "source_module", "source_transaction_id",
			"source_transaction_type", "actor_id", "created_at",
		}))

	glTxs, err := repo.GetBySource(context.Background(), nil, domain.SourceModuleSettlement, "txn-9")
	require.NoError(t, err)
	assert.Empty(t, glTxs)
	assertExpectations(t, pool)
}

func TestGLRepositoryAdjustAccountBalanceMissing(t *testing.T) {
	pool := newMockPool(t)
	repo := newGLRepositoryWithDB(pool)
	tx := beginTx(t, pool)

	pool.ExpectExec(regexp.QuoteMeta("UPDATE gl_accounts SET balance = balance + $2")).
		WithArgs("gone", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.AdjustAccountBalance(context.Background(), tx, "gone", decimal.NewFromInt(5), time.Now())
	require.ErrorIs(t, err, domain.ErrGLAccountNotFound)
	assertExpectations(t, pool)
}
