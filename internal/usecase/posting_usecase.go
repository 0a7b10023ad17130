package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/iho/branchledger/internal/domain"
)

// PostingUseCase turns settled transactions into balanced GL transactions.
type PostingUseCase struct {
	glRepo GLRepository
	idGen  IDGenerator
}

// NewPostingUseCase creates a new PostingUseCase.
func NewPostingUseCase(glRepo GLRepository, idGen IDGenerator) *PostingUseCase {
	return &PostingUseCase{
		glRepo: glRepo,
		idGen:  idGen,
	}
}

// PostTransaction builds the journal for txn, checks it balances and agrees
// with effects, then persists it inside tx. It returns nil when the
// transaction has nothing to book.
func (uc *PostingUseCase) PostTransaction(
	ctx context.Context,
	tx Transaction,
	txn *domain.Transaction,
	effects domain.Effects,
	provider string,
	actor domain.Actor,
) (*domain.GLTransaction, error) {
	journal, err := domain.BuildJournal(txn, provider)
	if err != nil {
		return nil, err
	}

	if len(journal) == 0 {
		return nil, nil
	}

	if err := journal.Validate(); err != nil {
		return nil, err
	}

	if cash := journal.NetFor(domain.GLCodeCash); !cash.Equal(effects.CashTillDelta) {
		return nil, fmt.Errorf("%w: cash lines net %s but cash till delta is %s", domain.ErrLedgerImbalance, cash, effects.CashTillDelta)
	}

	now := time.Now().UTC()

	accounts, err := uc.resolveAccounts(ctx, tx, journal, now)
	if err != nil {
		return nil, err
	}

	glTx := &domain.GLTransaction{
		ID:                    uc.idGen.Generate(),
		Description:           describe(txn),
		Date:                  now,
		SourceModule:          domain.SourceModuleSettlement,
		SourceTransactionID:   txn.ID,
		SourceTransactionType: string(txn.Domain) + "/" + string(txn.Type),
		ActorID:               actor.ID,
		CreatedAt:             now,
	}

	changes := domain.AccountDeltas{}

	for _, line := range journal {
		acc := accounts[line.Account.Code]
		glTx.Entries = append(glTx.Entries, &domain.GLEntry{
			ID:              uc.idGen.Generate(),
			GLTransactionID: glTx.ID,
			AccountID:       acc.ID,
			AccountCode:     acc.Code,
			AccountType:     acc.Type,
			Debit:           line.Debit,
			Credit:          line.Credit,
			Description:     line.Description,
			Metadata:        entryMetadata(txn),
			CreatedAt:       now,
		})
		changes.Add(acc.ID, acc.Type.BalanceChange(line.Debit, line.Credit))
	}

	if err := uc.glRepo.CreateTransaction(ctx, tx, glTx); err != nil {
		return nil, fmt.Errorf("failed to persist gl transaction: %w", err)
	}

	if err := uc.adjustBalances(ctx, tx, changes, now); err != nil {
		return nil, err
	}

	return glTx, nil
}

// ReverseTransaction removes every GL transaction booked for the source
// transaction and undoes its GL account balance movements. It returns the
// number of GL transactions removed; zero is not an error.
func (uc *PostingUseCase) ReverseTransaction(ctx context.Context, tx Transaction, sourceTransactionID, sourceModule string) (int, error) {
	glTxs, err := uc.glRepo.GetBySource(ctx, tx, sourceModule, sourceTransactionID)
	if err != nil {
		return 0, err
	}

	if len(glTxs) == 0 {
		return 0, nil
	}

	changes := domain.AccountDeltas{}

	for _, glTx := range glTxs {
		for _, e := range glTx.Entries {
			changes.Add(e.AccountID, e.AccountType.BalanceChange(e.Debit, e.Credit).Neg())
		}
	}

	now := time.Now().UTC()
	if err := uc.adjustBalances(ctx, tx, changes, now); err != nil {
		return 0, err
	}

	for _, glTx := range glTxs {
		if err := uc.glRepo.DeleteTransaction(ctx, tx, glTx.ID); err != nil {
			return 0, fmt.Errorf("failed to delete gl transaction %s: %w", glTx.ID, err)
		}
	}

	return len(glTxs), nil
}

// GetGLTransactions returns the GL transactions booked for a settlement transaction.
func (uc *PostingUseCase) GetGLTransactions(ctx context.Context, sourceTransactionID string) ([]*domain.GLTransaction, error) {
	return uc.glRepo.GetBySource(ctx, nil, domain.SourceModuleSettlement, sourceTransactionID)
}

// ListAccounts returns the chart of accounts.
func (uc *PostingUseCase) ListAccounts(ctx context.Context) ([]*domain.GLAccount, error) {
	return uc.glRepo.ListAccounts(ctx)
}

// resolveAccounts upserts every account the journal touches, in code order.
func (uc *PostingUseCase) resolveAccounts(ctx context.Context, tx Transaction, journal domain.Journal, now time.Time) (map[string]*domain.GLAccount, error) {
	specs := make(map[string]domain.GLAccountSpec)
	for _, line := range journal {
		specs[line.Account.Code] = line.Account
	}

	codes := make([]string, 0, len(specs))
	for code := range specs {
		codes = append(codes, code)
	}

	sort.Strings(codes)

	accounts := make(map[string]*domain.GLAccount, len(codes))

	for _, code := range codes {
		acc, err := uc.glRepo.UpsertAccount(ctx, tx, uc.idGen.Generate(), specs[code], now)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve gl account %s: %w", code, err)
		}

		accounts[code] = acc
	}

	return accounts, nil
}

func (uc *PostingUseCase) adjustBalances(ctx context.Context, tx Transaction, changes domain.AccountDeltas, now time.Time) error {
	for _, id := range changes.SortedIDs() {
		if err := uc.glRepo.AdjustAccountBalance(ctx, tx, id, changes[id], now); err != nil {
			return fmt.Errorf("failed to adjust gl account %s: %w", id, err)
		}
	}

	return nil
}

func describe(txn *domain.Transaction) string {
	desc := fmt.Sprintf("%s %s %s", txn.Domain, txn.Type, txn.Amount.StringFixed(2))
	if txn.Reference != "" {
		desc += " ref " + txn.Reference
	}

	return desc
}

func entryMetadata(txn *domain.Transaction) map[string]any {
	md := map[string]any{
		"branch_id": txn.BranchID,
	}

	if txn.Reference != "" {
		md["reference"] = txn.Reference
	}

	if txn.CounterpartyAccountID != "" {
		md["counterparty_account_id"] = txn.CounterpartyAccountID
	}

	for _, key := range []string{"customer_name", "customer_phone", "account_number"} {
		if v, ok := txn.Metadata[key]; ok {
			md[key] = v
		}
	}

	return md
}
