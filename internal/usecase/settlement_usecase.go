package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/branchledger/internal/domain"
)

// SettlementUseCase orchestrates settle, amend and void. Each call runs as a
// single DB transaction: balance application and GL posting happen inside
// savepoints so their failures can be recorded without losing the rest.
type SettlementUseCase struct {
	txManager  TransactionManager
	txRepo     TransactionRepository
	outboxRepo OutboxRepository
	accounts   *AccountUseCase
	posting    *PostingUseCase
	audit      *AuditUseCase
	idGen      IDGenerator
	retrier    Retrier
	metrics    SettlementMetrics
	logger     zerolog.Logger
	timeout    time.Duration
}

// NewSettlementUseCase creates a new SettlementUseCase.
func NewSettlementUseCase(
	txManager TransactionManager,
	txRepo TransactionRepository,
	outboxRepo OutboxRepository,
	accounts *AccountUseCase,
	posting *PostingUseCase,
	audit *AuditUseCase,
	idGen IDGenerator,
	logger zerolog.Logger,
) *SettlementUseCase {
	return &SettlementUseCase{
		txManager:  txManager,
		txRepo:     txRepo,
		outboxRepo: outboxRepo,
		accounts:   accounts,
		posting:    posting,
		audit:      audit,
		idGen:      idGen,
		retrier:    directRetrier{},
		metrics:    noopMetrics{},
		logger:     logger,
		timeout:    DefaultTransactionTimeout,
	}
}

// WithRetrier sets the retrier used for transient storage errors.
func (uc *SettlementUseCase) WithRetrier(r Retrier) *SettlementUseCase {
	if r != nil {
		uc.retrier = r
	}

	return uc
}

// WithMetrics sets the metrics sink.
func (uc *SettlementUseCase) WithMetrics(m SettlementMetrics) *SettlementUseCase {
	if m != nil {
		uc.metrics = m
	}

	return uc
}

// WithTimeout sets the deadline of a whole settle, amend or void call.
func (uc *SettlementUseCase) WithTimeout(d time.Duration) *SettlementUseCase {
	if d > 0 {
		uc.timeout = d
	}

	return uc
}

type directRetrier struct{}

func (directRetrier) Retry(_ context.Context, operation func() error) error {
	return operation()
}

// SettleInput represents a settlement request.
type SettleInput struct {
	Metadata              map[string]any
	Actor                 domain.Actor
	Domain                domain.TransactionDomain
	Type                  domain.TransactionType
	CounterpartyAccountID string
	BranchID              string
	Reference             string
	Notes                 string
	Amount                decimal.Decimal
	Fee                   decimal.Decimal
}

// Settle records a customer transaction: it stores the row, applies the cash
// till and float deltas and posts the GL transaction.
//
// A balance failure marks the row failed and returns *domain.BalanceApplicationError.
// A posting failure keeps the row completed without a GL link and returns the
// transaction together with *domain.LedgerPostingError.
func (uc *SettlementUseCase) Settle(ctx context.Context, input SettleInput) (*domain.Transaction, error) {
	start := time.Now()

	txn, provider, err := uc.prepareSettle(ctx, input)
	if err != nil {
		uc.observe("settle", start, err)
		return nil, err
	}

	ctx, cancel := uc.deadline(ctx)
	defer cancel()

	var balanceErr, postErr error

	err = uc.retrier.Retry(ctx, func() error {
		balanceErr, postErr = nil, nil
		txn.Status, txn.GLTransactionID = domain.StatusPending, nil

		tx, err := uc.txManager.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		balanceErr, postErr, err = uc.settleInTx(ctx, tx, txn, provider, input.Actor)
		if err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		err = uc.unitFailed(ctx, txn, input.Actor, domain.AuditActionTransactionSettle, err)
		uc.observe("settle", start, err)

		return nil, err
	}

	if balanceErr != nil {
		uc.observe("settle", start, balanceErr)
		return nil, balanceErr
	}

	uc.observe("settle", start, postErr)

	return txn, postErr
}

func (uc *SettlementUseCase) settleInTx(
	ctx context.Context,
	tx Transaction,
	txn *domain.Transaction,
	provider string,
	actor domain.Actor,
) (balanceErr, postErr, err error) {
	if err := uc.txRepo.Create(ctx, tx, txn); err != nil {
		return nil, nil, fmt.Errorf("failed to store transaction: %w", err)
	}

	sp, err := tx.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}

	if _, applyErr := uc.accounts.ApplyDeltas(ctx, sp, txn.ID, txn.Deltas()); applyErr != nil {
		if err := sp.Rollback(ctx); err != nil {
			return nil, nil, err
		}

		failure, err := uc.markFailed(ctx, tx, txn, actor, applyErr)
		if err != nil {
			return nil, nil, err
		}

		return failure, nil, nil
	}

	if err := sp.Commit(ctx); err != nil {
		return nil, nil, err
	}

	postErr, err = uc.post(ctx, tx, txn, provider, actor, "settle")
	if err != nil {
		return nil, nil, err
	}

	if err := txn.Advance(domain.TransitionComplete, time.Now().UTC()); err != nil {
		return nil, nil, err
	}

	if err := uc.txRepo.UpdateStatus(ctx, tx, txn.ID, txn.Status, txn.GLTransactionID, txn.UpdatedAt); err != nil {
		return nil, nil, fmt.Errorf("failed to complete transaction: %w", err)
	}

	entry := transactionAudit(txn, actor, domain.AuditActionTransactionSettle, domain.SeverityLow, "transaction settled")
	if err := uc.audit.RecordTx(ctx, tx, entry); err != nil {
		return nil, nil, err
	}

	if err := uc.emit(ctx, tx, txn, domain.EventTypeTransactionSettled, ""); err != nil {
		return nil, nil, err
	}

	return nil, postErr, nil
}

// markFailed records a balance failure inside tx. The savepoint holding the
// partial balance updates has already been rolled back.
func (uc *SettlementUseCase) markFailed(
	ctx context.Context,
	tx Transaction,
	txn *domain.Transaction,
	actor domain.Actor,
	applyErr error,
) (*domain.BalanceApplicationError, error) {
	var balanceErr *domain.BalanceApplicationError
	if !errors.As(applyErr, &balanceErr) {
		balanceErr = &domain.BalanceApplicationError{TransactionID: txn.ID, Err: applyErr}
	}

	uc.logger.Error().
		Err(applyErr).
		Str("transaction_id", txn.ID).
		Str("account_id", balanceErr.AccountID).
		Msg("balance application failed")

	if err := txn.Advance(domain.TransitionFail, time.Now().UTC()); err != nil {
		return nil, err
	}

	if err := uc.txRepo.UpdateStatus(ctx, tx, txn.ID, txn.Status, nil, txn.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to mark transaction failed: %w", err)
	}

	entry := failureAudit(txn, actor, domain.AuditActionBalanceFailure, domain.SeverityCritical, "balance application failed", balanceErr)
	entry.Details["account_id"] = balanceErr.AccountID

	if err := uc.audit.RecordTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	return balanceErr, nil
}

// post books the GL transaction inside a savepoint. A posting failure rolls
// back the savepoint, raises the audit entry and a reconciliation event and is
// returned as postErr; err is only set when tx itself can no longer be used.
func (uc *SettlementUseCase) post(
	ctx context.Context,
	tx Transaction,
	txn *domain.Transaction,
	provider string,
	actor domain.Actor,
	operation string,
) (postErr, err error) {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return nil, err
	}

	glTx, postingErr := uc.posting.PostTransaction(ctx, sp, txn, txn.Effects(), provider, actor)
	if postingErr == nil {
		if err := sp.Commit(ctx); err != nil {
			return nil, err
		}

		txn.GLTransactionID = nil
		if glTx != nil {
			txn.GLTransactionID = &glTx.ID
		}

		return nil, nil
	}

	if err := sp.Rollback(ctx); err != nil {
		return nil, err
	}

	txn.GLTransactionID = nil

	severity := domain.SeverityHigh
	if errors.Is(postingErr, domain.ErrLedgerImbalance) {
		severity = domain.SeverityCritical
	}

	uc.logger.Warn().
		Err(postingErr).
		Str("transaction_id", txn.ID).
		Str("operation", operation).
		Msg("gl posting failed, transaction flagged for reconciliation")
	uc.metrics.IncPostingFailure(operation)

	entry := failureAudit(txn, actor, domain.AuditActionPostingFailure, severity, "gl posting failed, reconciliation required", postingErr)
	if err := uc.audit.RecordTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := uc.emit(ctx, tx, txn, domain.EventTypeReconciliation, postingErr.Error()); err != nil {
		return nil, err
	}

	return &domain.LedgerPostingError{TransactionID: txn.ID, Err: postingErr}, nil
}

// AmendInput holds the fields to change. Nil fields keep their stored value.
type AmendInput struct {
	Metadata              map[string]any
	Amount                *decimal.Decimal
	Fee                   *decimal.Decimal
	Type                  *domain.TransactionType
	CounterpartyAccountID *string
	Reference             *string
	Notes                 *string
	Actor                 domain.Actor
}

// Amend changes a completed transaction in place. Only the difference between
// the new effects and the stored deltas is applied to the accounts. The old
// GL transaction is reversed and a new one posted.
func (uc *SettlementUseCase) Amend(ctx context.Context, id string, input AmendInput) (*domain.Transaction, error) {
	start := time.Now()

	current, err := uc.txRepo.GetByID(ctx, id)
	if err != nil {
		uc.observe("amend", start, err)
		return nil, err
	}

	ctx, cancel := uc.deadline(ctx)
	defer cancel()

	var (
		updated *domain.Transaction
		postErr error
	)

	err = uc.retrier.Retry(ctx, func() error {
		postErr = nil

		tx, err := uc.txManager.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		locked, err := uc.txRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		if !locked.Status.Allows(domain.TransitionAmend) {
			return fmt.Errorf("%w: cannot amend %s transaction", domain.ErrInvalidStateTransition, locked.Status)
		}

		current = locked

		var provider string

		updated, provider, err = uc.buildAmended(ctx, locked, input)
		if err != nil {
			return err
		}

		postErr, err = uc.amendInTx(ctx, tx, locked, updated, provider, input.Actor)
		if err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		err = uc.unitFailed(ctx, current, input.Actor, domain.AuditActionTransactionAmend, err)
		uc.observe("amend", start, err)

		return nil, err
	}

	uc.observe("amend", start, postErr)

	return updated, postErr
}

func (uc *SettlementUseCase) amendInTx(
	ctx context.Context,
	tx Transaction,
	old, updated *domain.Transaction,
	provider string,
	actor domain.Actor,
) (postErr, err error) {
	net := old.Deltas().Negate()
	net.Merge(updated.Deltas())

	if _, err := uc.accounts.ApplyDeltas(ctx, tx, updated.ID, net); err != nil {
		return nil, err
	}

	if _, err := uc.posting.ReverseTransaction(ctx, tx, old.ID, domain.SourceModuleSettlement); err != nil {
		return nil, fmt.Errorf("failed to reverse gl transaction: %w", err)
	}

	postErr, err = uc.post(ctx, tx, updated, provider, actor, "amend")
	if err != nil {
		return nil, err
	}

	if err := updated.Advance(domain.TransitionAmend, time.Now().UTC()); err != nil {
		return nil, err
	}

	if err := uc.txRepo.Update(ctx, tx, updated); err != nil {
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}

	entry := transactionAudit(updated, actor, domain.AuditActionTransactionAmend, domain.SeverityMedium, "transaction amended")
	entry.Details["before"] = domain.MarshalState(domain.NewTransactionEvent(old, ""))

	if err := uc.audit.RecordTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := uc.emit(ctx, tx, updated, domain.EventTypeTransactionAmended, ""); err != nil {
		return nil, err
	}

	return postErr, nil
}

// buildAmended applies input on a copy of old, validates it and computes the
// new effects. The domain of a transaction never changes.
func (uc *SettlementUseCase) buildAmended(ctx context.Context, old *domain.Transaction, input AmendInput) (*domain.Transaction, string, error) {
	updated := *old

	if input.Amount != nil {
		updated.Amount = *input.Amount
	}

	if input.Fee != nil {
		updated.Fee = *input.Fee
	}

	if input.Type != nil {
		updated.Type = *input.Type
	}

	if input.CounterpartyAccountID != nil {
		updated.CounterpartyAccountID = *input.CounterpartyAccountID
	}

	if input.Reference != nil {
		updated.Reference = *input.Reference
	}

	if input.Notes != nil {
		updated.Notes = *input.Notes
	}

	if input.Metadata != nil {
		updated.Metadata = input.Metadata
	}

	if err := validateFields(&updated); err != nil {
		return nil, "", err
	}

	counterparty, err := uc.resolveCounterparty(ctx, updated.CounterpartyAccountID, updated.BranchID)
	if err != nil {
		return nil, "", err
	}

	effects := domain.ComputeEffects(updated.Domain, updated.Type, updated.Amount, updated.Fee)
	updated.CashTillDelta = effects.CashTillDelta
	updated.FloatDelta = effects.FloatDelta

	provider := ""
	if counterparty != nil {
		provider = counterparty.Provider
	}

	return &updated, provider, nil
}

// VoidInput selects soft reversal or hard delete.
type VoidInput struct {
	Actor  domain.Actor
	Reason string
	Hard   bool
}

// Void undoes a completed transaction by applying the exact negation of its
// stored deltas and reversing its GL transaction. A soft void marks the row
// reversed and returns it; a hard void removes the row and returns nil.
// A reversed transaction can still be hard deleted.
func (uc *SettlementUseCase) Void(ctx context.Context, id string, input VoidInput) (*domain.Transaction, error) {
	start := time.Now()

	current, err := uc.txRepo.GetByID(ctx, id)
	if err != nil {
		uc.observe("void", start, err)
		return nil, err
	}

	ctx, cancel := uc.deadline(ctx)
	defer cancel()

	action := domain.AuditActionTransactionReverse
	if input.Hard {
		action = domain.AuditActionTransactionDelete
	}

	var result *domain.Transaction

	err = uc.retrier.Retry(ctx, func() error {
		tx, err := uc.txManager.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		locked, err := uc.txRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		current = locked

		result, err = uc.voidInTx(ctx, tx, locked, input, action)
		if err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		err = uc.unitFailed(ctx, current, input.Actor, action, err)
		uc.observe("void", start, err)

		return nil, err
	}

	uc.observe("void", start, nil)

	return result, nil
}

func (uc *SettlementUseCase) voidInTx(
	ctx context.Context,
	tx Transaction,
	txn *domain.Transaction,
	input VoidInput,
	action domain.AuditAction,
) (*domain.Transaction, error) {
	before := domain.NewTransactionEvent(txn, "")
	reversing := txn.Status.Allows(domain.TransitionReverse)

	switch {
	case reversing:
		if _, err := uc.accounts.ApplyDeltas(ctx, tx, txn.ID, txn.Deltas().Negate()); err != nil {
			return nil, err
		}

		if _, err := uc.posting.ReverseTransaction(ctx, tx, txn.ID, domain.SourceModuleSettlement); err != nil {
			return nil, fmt.Errorf("failed to reverse gl transaction: %w", err)
		}

		if err := txn.Advance(domain.TransitionReverse, time.Now().UTC()); err != nil {
			return nil, err
		}
		txn.GLTransactionID = nil

		if !input.Hard {
			if err := uc.txRepo.UpdateStatus(ctx, tx, txn.ID, txn.Status, nil, txn.UpdatedAt); err != nil {
				return nil, fmt.Errorf("failed to mark transaction reversed: %w", err)
			}
		}
	case txn.Status == domain.StatusReversed && input.Hard:
	default:
		return nil, fmt.Errorf("%w: cannot void %s transaction", domain.ErrInvalidStateTransition, txn.Status)
	}

	if input.Hard {
		if err := uc.txRepo.Delete(ctx, tx, txn.ID); err != nil {
			return nil, fmt.Errorf("failed to delete transaction: %w", err)
		}
	}

	description := "transaction reversed"
	if input.Hard {
		description = "transaction deleted"
	}

	entry := transactionAudit(txn, input.Actor, action, domain.SeverityMedium, description)
	entry.Details["before"] = domain.MarshalState(before)
	entry.Details["reason"] = input.Reason
	entry.Details["hard_delete"] = input.Hard

	if err := uc.audit.RecordTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	if reversing {
		if err := uc.emit(ctx, tx, txn, domain.EventTypeTransactionReversed, input.Reason); err != nil {
			return nil, err
		}
	}

	if input.Hard {
		return nil, nil
	}

	return txn, nil
}

// GetTransaction retrieves a transaction by ID.
func (uc *SettlementUseCase) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	return uc.txRepo.GetByID(ctx, id)
}

// ListTransactions lists transactions matching filter, newest first.
func (uc *SettlementUseCase) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	filter.Limit, filter.Offset = domain.ValidatePagination(filter.Limit, filter.Offset)

	return uc.txRepo.List(ctx, filter)
}

func (uc *SettlementUseCase) prepareSettle(ctx context.Context, input SettleInput) (*domain.Transaction, string, error) {
	now := time.Now().UTC()
	txn := &domain.Transaction{
		ID:                    uc.idGen.Generate(),
		Domain:                input.Domain,
		Type:                  input.Type,
		Amount:                input.Amount,
		Fee:                   input.Fee,
		CounterpartyAccountID: input.CounterpartyAccountID,
		BranchID:              input.BranchID,
		ActorID:               input.Actor.ID,
		Reference:             input.Reference,
		Notes:                 input.Notes,
		Metadata:              input.Metadata,
		Status:                domain.StatusPending,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if input.Actor.ID == "" {
		return nil, "", domain.NewValidationError("actor_id", "actor is required")
	}

	if err := validateFields(txn); err != nil {
		return nil, "", err
	}

	till, err := uc.accounts.GetAccountByTypeAndBranch(ctx, domain.AccountTypeCashTill, txn.BranchID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, "", &domain.ValidationError{Field: "branch_id", Message: "branch has no cash till", Err: err}
		}

		return nil, "", err
	}

	if !till.IsActive {
		return nil, "", &domain.ValidationError{Field: "branch_id", Message: "cash till is inactive", Err: domain.ErrAccountInactive}
	}

	txn.CashTillAccountID = till.ID

	counterparty, err := uc.resolveCounterparty(ctx, txn.CounterpartyAccountID, txn.BranchID)
	if err != nil {
		return nil, "", err
	}

	effects := domain.ComputeEffects(txn.Domain, txn.Type, txn.Amount, txn.Fee)
	txn.CashTillDelta = effects.CashTillDelta
	txn.FloatDelta = effects.FloatDelta

	provider := ""
	if counterparty != nil {
		provider = counterparty.Provider
	}

	return txn, provider, nil
}

func validateFields(txn *domain.Transaction) error {
	if err := domain.ValidateTransaction(txn.Domain, txn.Type, txn.Amount, txn.Fee, txn.BranchID, txn.CounterpartyAccountID); err != nil {
		return err
	}

	if err := domain.ValidateNotes(txn.Reference, txn.Notes); err != nil {
		return err
	}

	return domain.ValidateMetadata(txn.Metadata)
}

// resolveCounterparty loads the counterparty float. An empty id resolves to nil.
func (uc *SettlementUseCase) resolveCounterparty(ctx context.Context, id, branchID string) (*domain.FloatAccount, error) {
	if id == "" {
		return nil, nil
	}

	acc, err := uc.accounts.GetAccount(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, &domain.ValidationError{Field: "counterparty_account_id", Message: "account not found", Err: err}
		}

		return nil, err
	}

	switch {
	case acc.AccountType != domain.AccountTypeFloat:
		return nil, domain.NewValidationError("counterparty_account_id", "counterparty must be a float account")
	case acc.BranchID != branchID:
		return nil, domain.NewValidationError("counterparty_account_id", "counterparty float belongs to another branch")
	case !acc.IsActive:
		return nil, &domain.ValidationError{Field: "counterparty_account_id", Message: "account is inactive", Err: domain.ErrAccountInactive}
	}

	return acc, nil
}

// unitFailed classifies an error that rolled back the whole unit and records
// it outside the DB transaction so the trace survives the rollback.
func (uc *SettlementUseCase) unitFailed(ctx context.Context, txn *domain.Transaction, actor domain.Actor, action domain.AuditAction, err error) error {
	if isCallerError(err) {
		return err
	}

	severity := domain.SeverityHigh
	description := "operation failed and was rolled back"

	var balanceErr *domain.BalanceApplicationError

	switch {
	case ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded):
		err = fmt.Errorf("%w: %w", domain.ErrOutcomeUnknown, err)
		action = domain.AuditActionOutcomeUnknown
		description = "deadline exceeded, outcome must be reconciled"
	case errors.As(err, &balanceErr):
		severity = domain.SeverityCritical
		action = domain.AuditActionBalanceFailure
		description = "balance application failed, operation rolled back"
	}

	uc.logger.Error().
		Err(err).
		Str("transaction_id", txn.ID).
		Str("action", string(action)).
		Msg("settlement unit failed")

	_ = uc.audit.Record(ctx, failureAudit(txn, actor, action, severity, description, err))

	return err
}

func isCallerError(err error) bool {
	return errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrTransactionNotFound) ||
		errors.Is(err, domain.ErrInvalidStateTransition)
}

func (uc *SettlementUseCase) emit(ctx context.Context, tx Transaction, txn *domain.Transaction, eventType, reason string) error {
	event := newOutboxEvent(uc.idGen, domain.AggregateTypeTransaction, txn.ID, eventType, domain.NewTransactionEvent(txn, reason))

	return uc.outboxRepo.Create(ctx, tx, event)
}

// deadline bounds the call and detaches it from caller cancellation: once
// balances start moving the call runs to completion or to the deadline.
func (uc *SettlementUseCase) deadline(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), uc.timeout)
}

func (uc *SettlementUseCase) observe(operation string, start time.Time, err error) {
	uc.metrics.ObserveSettlement(operation, outcome(err), time.Since(start))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, domain.ErrValidation):
		return OutcomeValidation
	case errors.Is(err, domain.ErrBalanceApplication):
		return OutcomeBalanceFailure
	case errors.Is(err, domain.ErrLedgerPosting):
		return OutcomePostingFailure
	case errors.Is(err, domain.ErrOutcomeUnknown):
		return OutcomeUnknown
	default:
		return OutcomeError
	}
}
