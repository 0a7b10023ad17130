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

func TestLedgerRepositoryCheckConsistency(t *testing.T) {
	pool := newMockPool(t)
	repo := newLedgerRepositoryWithDB(pool)

	pool.ExpectQuery(regexp.QuoteMeta("COALESCE(SUM(debit), 0)")).
		WillReturnRows(pool.NewRows([]string{"debit", "credit"}).
			AddRow(decimalToNumeric(decimal.RequireFromString("1510.25")), decimalToNumeric(decimal.RequireFromString("1510.25"))))

	debit, credit, err := repo.CheckConsistency(context.Background())
	require.NoError(t, err)
	assert.True(t, debit.Equal(credit))
	assert.Equal(t, "1510.25", debit.String())
	assertExpectations(t, pool)
}

func TestLedgerRepositoryListUnbalanced(t *testing.T) {
	pool := newMockPool(t)
	repo := newLedgerRepositoryWithDB(pool)

	pool.ExpectQuery(regexp.QuoteMeta("HAVING SUM(debit) <> SUM(credit)")).
		WithArgs(100).
		WillReturnRows(pool.NewRows([]string{"gl_transaction_id"}).AddRow("gl-7"))

	ids, err := repo.ListUnbalanced(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"gl-7"}, ids)
	assertExpectations(t, pool)
}

func TestAuditRepositoryListFilters(t *testing.T) {
	pool := newMockPool(t)
	repo := newAuditRepositoryWithDB(pool)
	now := time.Now().UTC()

	pool.ExpectQuery(regexp.QuoteMeta("WHERE entity_id = $1 AND severity = $2 ORDER BY created_at DESC, id DESC LIMIT $3 OFFSET $4")).
		WithArgs("txn-1", "critical", 20, 0).
		WillReturnRows(pool.NewRows([]string{
			"id", "actor_id", "branch_id", "action", "entity_type", "entity_id",
			"description", "details", "severity", "status", "error_message", "created_at",
		}).AddRow("a-1", "teller-1", "br-1", "transaction.balance_failure", "transaction", "txn-1",
			"balance update failed", []byte(`{"account_id":"till-1"}`), "critical", "failure", "account inactive", now))

	logs, err := repo.List(context.Background(), domain.AuditFilter{EntityID: "txn-1", Severity: domain.SeverityCritical, Limit: 20})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.AuditActionBalanceFailure, logs[0].Action)
	assert.Equal(t, "till-1", logs[0].Details["account_id"])
	assertExpectations(t, pool)
}

func TestAuditRepositoryCreateTx(t *testing.T) {
	pool := newMockPool(t)
	repo := newAuditRepositoryWithDB(pool)
	tx := beginTx(t, pool)
	now := time.Now().UTC()

	pool.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WithArgs("a-1", "teller-1", "br-1", "transaction.settle", "transaction", "txn-1",
			"settled", []byte("{}"), "low", "success", "", now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.CreateTx(context.Background(), tx, &domain.AuditLog{
		ID:          "a-1",
		ActorID:     "teller-1",
		BranchID:    "br-1",
		Action:      domain.AuditActionTransactionSettle,
		EntityType:  domain.EntityTransaction,
		EntityID:    "txn-1",
		Description: "settled",
		Severity:    domain.SeverityLow,
		Status:      domain.AuditStatusSuccess,
		CreatedAt:   now,
	})
	require.NoError(t, err)
	assertExpectations(t, pool)
}
