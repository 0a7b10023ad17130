package integration

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/branchledger/internal/domain"
	"github.com/iho/branchledger/internal/usecase"
	"github.com/iho/branchledger/tests/testutil"
)

func TestLedgerStaysBalancedAcrossOperations(t *testing.T) {
	db := testutil.NewTestDB(t)
	stack := testutil.NewStack(db.Pool)
	ctx := context.Background()

	branch := stack.CreateBranch(t, "br-recon", "Airtel", dec("500"), dec("500"))
	actor := testutil.Teller(branch.ID)

	deposit, err := stack.Settlement.Settle(ctx, usecase.SettleInput{
		Actor: actor, Domain: domain.DomainMobileMoney, Type: domain.TypeDeposit,
		BranchID: branch.ID, CounterpartyAccountID: branch.Float.ID,
		Amount: dec("120"), Fee: dec("1.5"),
	})
	require.NoError(t, err)

	_, err = stack.Settlement.Settle(ctx, usecase.SettleInput{
		Actor: actor, Domain: domain.DomainMobileMoney, Type: domain.TypeInterbank,
		BranchID: branch.ID, CounterpartyAccountID: branch.Float.ID,
		Amount: dec("300"), Fee: dec("3"),
	})
	require.NoError(t, err)

	_, err = stack.Settlement.Settle(ctx, usecase.SettleInput{
		Actor: actor, Domain: domain.DomainPackageLogistics, Type: domain.TypeShipment,
		BranchID: branch.ID, Amount: dec("40"),
	})
	require.NoError(t, err)

	_, err = stack.Settlement.Void(ctx, deposit.ID, usecase.VoidInput{Actor: actor})
	require.NoError(t, err)

	report, err := stack.Reconciliation.CheckLedgerConsistency(ctx)
	require.NoError(t, err)
	assert.True(t, report.LedgerBalanced, "debit %s credit %s unbalanced %v", report.TotalDebit, report.TotalCredit, report.Unbalanced)
	assert.NoError(t, report.Err())
	assert.Zero(t, report.UnpostedCount)

	unposted, err := stack.Reconciliation.ListUnposted(ctx, branch.ID, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, unposted)
}

func TestConcurrentSettlementsOnOneTill(t *testing.T) {
	db := testutil.NewTestDB(t)
	stack := testutil.NewStack(db.Pool)
	ctx := context.Background()

	branch := stack.CreateBranch(t, "br-busy", "MTN", dec("0"), dec("100000"))

	const workers = 20

	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			_, err := stack.Settlement.Settle(ctx, usecase.SettleInput{
				Actor:                 domain.Actor{ID: fmt.Sprintf("teller-%d", i), BranchID: branch.ID},
				Domain:                domain.DomainMobileMoney,
				Type:                  domain.TypeDeposit,
				BranchID:              branch.ID,
				CounterpartyAccountID: branch.Float.ID,
				Amount:                dec("10"),
				Fee:                   dec("1"),
			})
			errs <- err
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	assert.True(t, stack.Balance(t, branch.Till.ID).Equal(dec("220")))
	assert.True(t, stack.Balance(t, branch.Float.ID).Equal(dec("99800")))

	report, err := stack.Reconciliation.CheckLedgerConsistency(ctx)
	require.NoError(t, err)
	assert.True(t, report.LedgerBalanced)
}
