package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/branchledger/internal/domain"
	"github.com/iho/branchledger/internal/usecase"
	"github.com/iho/branchledger/tests/testutil"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestSettleDepositMovesBalancesAndPosts(t *testing.T) {
	db := testutil.NewTestDB(t)
	stack := testutil.NewStack(db.Pool)
	ctx := context.Background()

	branch := stack.CreateBranch(t, "br-settle", "MTN", dec("1000"), dec("5000"))

	txn, err := stack.Settlement.Settle(ctx, usecase.SettleInput{
		Actor:                 testutil.Teller(branch.ID),
		Domain:                domain.DomainMobileMoney,
		Type:                  domain.TypeDeposit,
		BranchID:              branch.ID,
		CounterpartyAccountID: branch.Float.ID,
		Amount:                dec("100"),
		Fee:                   dec("2"),
	})
	require.NoError(t, err)
	require.NotNil(t, txn.GLTransactionID)

	assert.Equal(t, domain.StatusCompleted, txn.Status)
	assert.True(t, txn.CashTillDelta.Equal(dec("102")))
	assert.True(t, txn.FloatDelta.Equal(dec("-100")))

	assert.True(t, stack.Balance(t, branch.Till.ID).Equal(dec("1102")))
	assert.True(t, stack.Balance(t, branch.Float.ID).Equal(dec("4900")))

	glTxs, err := stack.Posting.GetGLTransactions(ctx, txn.ID)
	require.NoError(t, err)
	require.Len(t, glTxs, 1)
	assert.Equal(t, *txn.GLTransactionID, glTxs[0].ID)

	debit, credit := glTxs[0].Totals()
	assert.True(t, debit.Equal(credit), "gl transaction must balance: %s != %s", debit, credit)

	stored, err := stack.Transactions.GetByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, stored.Status)
	assert.True(t, stored.CashTillDelta.Equal(dec("102")))

	logs, err := stack.Audit.List(ctx, domain.AuditFilter{EntityID: txn.ID})
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	assert.Equal(t, domain.AuditActionTransactionSettle, logs[0].Action)

	events, err := stack.Outbox.GetUnpublished(ctx, 100)
	require.NoError(t, err)
	assert.True(t, hasEvent(events, domain.EventTypeTransactionSettled, txn.ID))
}

func TestSettleCommissionTouchesOnlyTheTill(t *testing.T) {
	db := testutil.NewTestDB(t)
	stack := testutil.NewStack(db.Pool)
	ctx := context.Background()

	branch := stack.CreateBranch(t, "br-commission", "MTN", dec("0"), dec("0"))

	txn, err := stack.Settlement.Settle(ctx, usecase.SettleInput{
		Actor:    testutil.Teller(branch.ID),
		Domain:   domain.DomainCardIssuance,
		Type:     domain.TypeIssuance,
		BranchID: branch.ID,
		Amount:   dec("25"),
	})
	require.NoError(t, err)

	assert.True(t, txn.FloatDelta.IsZero())
	assert.True(t, stack.Balance(t, branch.Till.ID).Equal(dec("25")))
	assert.True(t, stack.Balance(t, branch.Float.ID).IsZero())
}

func TestSettleWithoutCashTillIsRejected(t *testing.T) {
	db := testutil.NewTestDB(t)
	stack := testutil.NewStack(db.Pool)

	_, err := stack.Settlement.Settle(context.Background(), usecase.SettleInput{
		Actor:    testutil.Teller("br-none"),
		Domain:   domain.DomainPackageLogistics,
		Type:     domain.TypeShipment,
		BranchID: "br-none",
		Amount:   dec("10"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))

	txns, err := stack.Transactions.List(context.Background(), domain.TransactionFilter{BranchID: "br-none", Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func hasEvent(events []*domain.OutboxEvent, eventType, aggregateID string) bool {
	for _, e := range events {
		if e.EventType == eventType && e.AggregateID == aggregateID {
			return true
		}
	}

	return false
}
