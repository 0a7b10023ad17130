package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/branchledger/internal/domain"
)

// AccountUseCase handles float account business logic.
type AccountUseCase struct {
	accountRepo FloatAccountRepository
	outboxRepo  OutboxRepository
	idGen       IDGenerator
	metrics     SettlementMetrics
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(accountRepo FloatAccountRepository, outboxRepo OutboxRepository, idGen IDGenerator) *AccountUseCase {
	return &AccountUseCase{
		accountRepo: accountRepo,
		outboxRepo:  outboxRepo,
		idGen:       idGen,
		metrics:     noopMetrics{},
	}
}

// WithMetrics sets the metrics sink.
func (uc *AccountUseCase) WithMetrics(m SettlementMetrics) *AccountUseCase {
	if m != nil {
		uc.metrics = m
	}

	return uc
}

// CreateAccountInput represents input for creating a float account.
type CreateAccountInput struct {
	BranchID       string
	AccountType    domain.AccountType
	Provider       string
	OpeningBalance decimal.Decimal
	MinThreshold   decimal.Decimal
	MaxThreshold   decimal.Decimal
}

// CreateAccount creates a float account. This is the only place a balance is
// set directly.
func (uc *AccountUseCase) CreateAccount(ctx context.Context, input CreateAccountInput) (*domain.FloatAccount, error) {
	if strings.TrimSpace(input.BranchID) == "" {
		return nil, domain.NewValidationError("branch_id", "branch is required")
	}

	switch input.AccountType {
	case domain.AccountTypeCashTill:
	case domain.AccountTypeFloat:
		if strings.TrimSpace(input.Provider) == "" {
			return nil, domain.NewValidationError("provider", "float accounts need a provider")
		}
	default:
		return nil, domain.NewValidationError("account_type", fmt.Sprintf("unknown account type %q", input.AccountType))
	}

	if input.MinThreshold.IsNegative() || input.MaxThreshold.IsNegative() {
		return nil, domain.NewValidationError("thresholds", "thresholds cannot be negative")
	}

	if input.MaxThreshold.IsPositive() && input.MaxThreshold.LessThan(input.MinThreshold) {
		return nil, domain.NewValidationError("max_threshold", "max threshold is below min threshold")
	}

	now := time.Now().UTC()
	account := &domain.FloatAccount{
		ID:             uc.idGen.Generate(),
		BranchID:       input.BranchID,
		AccountType:    input.AccountType,
		Provider:       strings.TrimSpace(input.Provider),
		CurrentBalance: input.OpeningBalance,
		MinThreshold:   input.MinThreshold,
		MaxThreshold:   input.MaxThreshold,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := uc.accountRepo.Create(ctx, account); err != nil {
		return nil, err
	}

	return account, nil
}

// GetAccount retrieves a float account by ID.
func (uc *AccountUseCase) GetAccount(ctx context.Context, id string) (*domain.FloatAccount, error) {
	return uc.accountRepo.GetByID(ctx, id)
}

// GetAccountByTypeAndBranch retrieves the active account of a type for a branch.
func (uc *AccountUseCase) GetAccountByTypeAndBranch(ctx context.Context, accountType domain.AccountType, branchID string) (*domain.FloatAccount, error) {
	return uc.accountRepo.GetByTypeAndBranch(ctx, accountType, branchID)
}

// ListAccountsByBranch lists every account of a branch.
func (uc *AccountUseCase) ListAccountsByBranch(ctx context.Context, branchID string) ([]*domain.FloatAccount, error) {
	return uc.accountRepo.ListByBranch(ctx, branchID)
}

// ApplyDelta adds delta to one account inside tx and returns the new balance.
// A threshold crossing queues an outbox event in the same tx.
func (uc *AccountUseCase) ApplyDelta(ctx context.Context, tx Transaction, transactionID, accountID string, delta decimal.Decimal) (decimal.Decimal, error) {
	change, err := uc.accountRepo.ApplyDelta(ctx, tx, accountID, delta, time.Now().UTC())
	if err != nil {
		return decimal.Zero, &domain.BalanceApplicationError{TransactionID: transactionID, AccountID: accountID, Err: err}
	}

	if err := uc.emitThresholdEvent(ctx, tx, transactionID, change); err != nil {
		return decimal.Zero, err
	}

	return change.Account.CurrentBalance, nil
}

// ApplyDeltas runs ApplyDelta for every account in ascending id order and
// returns the new balances keyed by account id. The first failing account
// is reported through a BalanceApplicationError.
func (uc *AccountUseCase) ApplyDeltas(ctx context.Context, tx Transaction, transactionID string, deltas domain.AccountDeltas) (map[string]decimal.Decimal, error) {
	balances := make(map[string]decimal.Decimal, len(deltas))

	for _, id := range deltas.SortedIDs() {
		balance, err := uc.ApplyDelta(ctx, tx, transactionID, id, deltas[id])
		if err != nil {
			return nil, err
		}

		balances[id] = balance
	}

	return balances, nil
}

func (uc *AccountUseCase) emitThresholdEvent(ctx context.Context, tx Transaction, transactionID string, change *domain.BalanceChange) error {
	var (
		eventType string
		threshold decimal.Decimal
	)

	switch change.Crossing() {
	case domain.CrossingBelowMin:
		eventType, threshold = domain.EventTypeLowBalance, change.Account.MinThreshold
	case domain.CrossingAboveMax:
		eventType, threshold = domain.EventTypeHighBalance, change.Account.MaxThreshold
	default:
		return nil
	}

	acc := change.Account
	payload := domain.ThresholdEvent{
		AccountID:       acc.ID,
		BranchID:        acc.BranchID,
		AccountType:     string(acc.AccountType),
		Provider:        acc.Provider,
		PreviousBalance: change.PreviousBalance.String(),
		CurrentBalance:  acc.CurrentBalance.String(),
		Threshold:       threshold.String(),
		TransactionID:   transactionID,
	}

	uc.metrics.IncThresholdCrossing(eventType)

	return uc.outboxRepo.Create(ctx, tx, newOutboxEvent(uc.idGen, domain.AggregateTypeFloatAccount, acc.ID, eventType, payload))
}

func newOutboxEvent(idGen IDGenerator, aggregateType, aggregateID, eventType string, payload any) *domain.OutboxEvent {
	return &domain.OutboxEvent{
		ID:            idGen.Generate(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Payload:       domain.MarshalState(payload),
		CreatedAt:     time.Now().UTC(),
	}
}
