package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Validation constants
const (
	MaxMetadataSize   = 10240           // 10KB
	MaxAmount         = "1000000000000" // 1 trillion
	MinAmount         = "0.01"
	MaxAmountDecimals = 2
	MaxNotesLength    = 1000
	MaxReferenceLen   = 128
	MaxPageSize       = 1000
	DefaultPageSize   = 50
)

var (
	minAmount = decimal.RequireFromString(MinAmount)
	maxAmount = decimal.RequireFromString(MaxAmount)
)

// ValidateAmount validates a principal amount.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return &ValidationError{Field: "amount", Message: "amount must be positive", Err: ErrInvalidAmount}
	}

	if amount.LessThan(minAmount) {
		return NewValidationError("amount", "minimum amount is "+MinAmount)
	}

	if amount.GreaterThan(maxAmount) {
		return NewValidationError("amount", "maximum amount is "+MaxAmount)
	}

	if !amount.Equal(amount.Round(MaxAmountDecimals)) {
		return NewValidationError("amount", fmt.Sprintf("at most %d decimal places", MaxAmountDecimals))
	}

	return nil
}

// ValidateFee checks the fee against the rule of the domain/type pair.
// Fee-only rules carry their whole value in amount and reject a fee.
func ValidateFee(d TransactionDomain, t TransactionType, amount, fee decimal.Decimal) error {
	if fee.IsNegative() {
		return NewValidationError("fee", "fee cannot be negative")
	}

	if !fee.Equal(fee.Round(MaxAmountDecimals)) {
		return NewValidationError("fee", fmt.Sprintf("at most %d decimal places", MaxAmountDecimals))
	}

	spec, ok := LookupKind(d, t)
	if !ok {
		return ValidateKind(d, t)
	}

	switch spec.Rule {
	case RuleCommission:
		if !fee.IsZero() {
			return NewValidationError("fee", fmt.Sprintf("%s/%s does not take a fee", d, t))
		}
	case RuleWithdrawal:
		if fee.GreaterThan(amount) {
			return NewValidationError("fee", "fee cannot exceed the withdrawal amount")
		}
	}

	return nil
}

// ValidateTransaction validates the caller supplied fields of a settlement.
func ValidateTransaction(d TransactionDomain, t TransactionType, amount, fee decimal.Decimal, branchID, counterpartyID string) error {
	if err := ValidateKind(d, t); err != nil {
		return err
	}

	if err := ValidateAmount(amount); err != nil {
		return err
	}

	if err := ValidateFee(d, t, amount, fee); err != nil {
		return err
	}

	if strings.TrimSpace(branchID) == "" {
		return NewValidationError("branch_id", "branch is required")
	}

	spec, _ := LookupKind(d, t)
	if spec.Rule != RuleCommission && strings.TrimSpace(counterpartyID) == "" {
		return NewValidationError("counterparty_account_id", "counterparty account is required")
	}

	return nil
}

// ValidateNotes validates free-text fields.
func ValidateNotes(reference, notes string) error {
	if len(reference) > MaxReferenceLen {
		return NewValidationError("reference", fmt.Sprintf("exceeds %d characters", MaxReferenceLen))
	}

	if len(notes) > MaxNotesLength {
		return NewValidationError("notes", fmt.Sprintf("exceeds %d characters", MaxNotesLength))
	}

	return nil
}

// ValidateMetadata validates metadata size
func ValidateMetadata(metadata map[string]any) error {
	if metadata == nil {
		return nil
	}

	// Estimate size (rough approximation)
	size := 0
	for k, v := range metadata {
		size += len(k)
		size += len(fmt.Sprintf("%v", v))
	}

	if size > MaxMetadataSize {
		return NewValidationError("metadata", fmt.Sprintf("size %d bytes exceeds limit of %d bytes", size, MaxMetadataSize))
	}

	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
