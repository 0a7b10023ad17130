package dto

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/iho/branchledger/internal/domain"
	"github.com/iho/branchledger/internal/usecase"
)

// SettleTransactionRequest represents a request to settle a customer transaction.
type SettleTransactionRequest struct {
	Metadata              map[string]any `json:"metadata,omitempty"`
	Domain                string         `json:"domain"                            validate:"required,oneof=mobile-money agency-banking card-issuance card-withdrawal bill-payment package-logistics"`
	Type                  string         `json:"type"                              validate:"required,oneof=deposit withdrawal interbank commission payment issuance shipment"`
	Amount                string         `json:"amount"                            validate:"required,numeric"`
	Fee                   string         `json:"fee,omitempty"                     validate:"omitempty,numeric"`
	CounterpartyAccountID string         `json:"counterparty_account_id,omitempty" validate:"max=64"`
	BranchID              string         `json:"branch_id"                         validate:"required,max=64"`
	Reference             string         `json:"reference,omitempty"               validate:"max=128"`
	Notes                 string         `json:"notes,omitempty"                   validate:"max=1024"`
}

// ToUseCaseInput converts to use case input.
func (r *SettleTransactionRequest) ToUseCaseInput(actor domain.Actor) (usecase.SettleInput, error) {
	amount, err := parseDecimal("amount", r.Amount)
	if err != nil {
		return usecase.SettleInput{}, err
	}

	fee := decimal.Zero
	if r.Fee != "" {
		if fee, err = parseDecimal("fee", r.Fee); err != nil {
			return usecase.SettleInput{}, err
		}
	}

	return usecase.SettleInput{
		Metadata:              r.Metadata,
		Actor:                 actor,
		Domain:                domain.TransactionDomain(r.Domain),
		Type:                  domain.TransactionType(r.Type),
		CounterpartyAccountID: r.CounterpartyAccountID,
		BranchID:              r.BranchID,
		Reference:             r.Reference,
		Notes:                 r.Notes,
		Amount:                amount,
		Fee:                   fee,
	}, nil
}

// AmendTransactionRequest carries the fields to change. Omitted fields keep their value.
type AmendTransactionRequest struct {
	Metadata              map[string]any `json:"metadata,omitempty"`
	Amount                *string        `json:"amount,omitempty"                  validate:"omitempty,numeric"`
	Fee                   *string        `json:"fee,omitempty"                     validate:"omitempty,numeric"`
	Type                  *string        `json:"type,omitempty"                    validate:"omitempty,oneof=deposit withdrawal interbank commission payment issuance shipment"`
	CounterpartyAccountID *string        `json:"counterparty_account_id,omitempty" validate:"omitempty,max=64"`
	Reference             *string        `json:"reference,omitempty"               validate:"omitempty,max=128"`
	Notes                 *string        `json:"notes,omitempty"                   validate:"omitempty,max=1024"`
}

// ToUseCaseInput converts to use case input.
func (r *AmendTransactionRequest) ToUseCaseInput(actor domain.Actor) (usecase.AmendInput, error) {
	input := usecase.AmendInput{
		Metadata:              r.Metadata,
		CounterpartyAccountID: r.CounterpartyAccountID,
		Reference:             r.Reference,
		Notes:                 r.Notes,
		Actor:                 actor,
	}

	if r.Amount != nil {
		amount, err := parseDecimal("amount", *r.Amount)
		if err != nil {
			return usecase.AmendInput{}, err
		}
		input.Amount = &amount
	}

	if r.Fee != nil {
		fee, err := parseDecimal("fee", *r.Fee)
		if err != nil {
			return usecase.AmendInput{}, err
		}
		input.Fee = &fee
	}

	if r.Type != nil {
		t := domain.TransactionType(*r.Type)
		input.Type = &t
	}

	return input, nil
}

// ReverseTransactionRequest represents a soft reversal.
type ReverseTransactionRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=512"`
}

// CreateAccountRequest represents a request to create a float account.
type CreateAccountRequest struct {
	BranchID       string `json:"branch_id"                 validate:"required,max=64"`
	AccountType    string `json:"account_type"              validate:"required,oneof=cash_till float"`
	Provider       string `json:"provider,omitempty"        validate:"max=64"`
	OpeningBalance string `json:"opening_balance,omitempty" validate:"omitempty,numeric"`
	MinThreshold   string `json:"min_threshold,omitempty"   validate:"omitempty,numeric"`
	MaxThreshold   string `json:"max_threshold,omitempty"   validate:"omitempty,numeric"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateAccountRequest) ToUseCaseInput() (usecase.CreateAccountInput, error) {
	input := usecase.CreateAccountInput{
		BranchID:    r.BranchID,
		AccountType: domain.AccountType(r.AccountType),
		Provider:    r.Provider,
	}

	fields := []struct {
		name  string
		value string
		dst   *decimal.Decimal
	}{
		{"opening_balance", r.OpeningBalance, &input.OpeningBalance},
		{"min_threshold", r.MinThreshold, &input.MinThreshold},
		{"max_threshold", r.MaxThreshold, &input.MaxThreshold},
	}

	for _, f := range fields {
		if f.value == "" {
			continue
		}

		d, err := parseDecimal(f.name, f.value)
		if err != nil {
			return usecase.CreateAccountInput{}, err
		}
		*f.dst = d
	}

	return input, nil
}

// FeeQuoteRequest represents a fee quote request.
type FeeQuoteRequest struct {
	Domain                string `json:"domain"                            validate:"required,oneof=mobile-money agency-banking card-issuance card-withdrawal bill-payment package-logistics"`
	Type                  string `json:"type"                              validate:"required,oneof=deposit withdrawal interbank commission payment issuance shipment"`
	Amount                string `json:"amount"                            validate:"required,numeric"`
	CounterpartyAccountID string `json:"counterparty_account_id,omitempty" validate:"max=64"`
}

// ToUseCaseInput converts to use case input.
func (r *FeeQuoteRequest) ToUseCaseInput() (usecase.FeeQuoteInput, error) {
	amount, err := parseDecimal("amount", r.Amount)
	if err != nil {
		return usecase.FeeQuoteInput{}, err
	}

	return usecase.FeeQuoteInput{
		Domain:                domain.TransactionDomain(r.Domain),
		Type:                  domain.TransactionType(r.Type),
		CounterpartyAccountID: r.CounterpartyAccountID,
		Amount:                amount,
	}, nil
}

func parseDecimal(field, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, domain.NewValidationError(field, fmt.Sprintf("invalid decimal %q", value))
	}

	return d, nil
}
