package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// Lookup errors
	ErrAccountNotFound     = errors.New("account not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrGLAccountNotFound   = errors.New("gl account not found")

	// Settlement errors
	ErrValidation             = errors.New("validation failed")
	ErrInvalidAmount          = errors.New("amount must be positive")
	ErrInvalidStateTransition = errors.New("invalid transaction state transition")
	ErrAccountInactive        = errors.New("account is not active")
	ErrBalanceApplication     = errors.New("failed to apply balance delta")
	ErrLedgerImbalance        = errors.New("ledger entries do not balance")
	ErrLedgerPosting          = errors.New("ledger posting failed")
	ErrOutcomeUnknown         = errors.New("settlement outcome unknown, reconciliation required")
)

// ValidationError describes bad caller input. Nothing is persisted when it is returned.
type ValidationError struct {
	Err     error
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Message)
	}

	return fmt.Sprintf("%s: %s (%s)", ErrValidation, e.Message, e.Field)
}

func (e *ValidationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrValidation, e.Err}
	}

	return []error{ErrValidation}
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// BalanceApplicationError is returned when a delta could not be applied to an account.
// The transaction is marked failed and no money movement is visible.
type BalanceApplicationError struct {
	TransactionID string
	AccountID     string
	Err           error
}

func (e *BalanceApplicationError) Error() string {
	return fmt.Sprintf("%s: transaction %s account %s: %v", ErrBalanceApplication, e.TransactionID, e.AccountID, e.Err)
}

func (e *BalanceApplicationError) Unwrap() []error {
	return []error{ErrBalanceApplication, e.Err}
}

// LedgerImbalanceError signals a journal template defect. It is never persisted.
type LedgerImbalanceError struct {
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
}

func (e *LedgerImbalanceError) Error() string {
	return fmt.Sprintf("%s: debit=%s credit=%s difference=%s",
		ErrLedgerImbalance, e.TotalDebit, e.TotalCredit, e.TotalDebit.Sub(e.TotalCredit))
}

func (e *LedgerImbalanceError) Unwrap() error {
	return ErrLedgerImbalance
}

// LedgerPostingError is returned after balances moved but the GL transaction
// could not be persisted. The transaction stays completed and is flagged for
// reconciliation.
type LedgerPostingError struct {
	TransactionID string
	Err           error
}

func (e *LedgerPostingError) Error() string {
	return fmt.Sprintf("%s: transaction %s: %v", ErrLedgerPosting, e.TransactionID, e.Err)
}

func (e *LedgerPostingError) Unwrap() []error {
	return []error{ErrLedgerPosting, e.Err}
}
