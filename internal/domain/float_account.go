package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType classifies float accounts.
type AccountType string

const (
	// AccountTypeCashTill is the physical cash drawer of a branch.
	AccountTypeCashTill AccountType = "cash_till"
	// AccountTypeFloat is a per-provider e-value balance.
	AccountTypeFloat AccountType = "float"
)

// FloatAccount is a balance bucket keyed by branch, account type and provider.
// CurrentBalance only changes through deltas recorded against transactions.
type FloatAccount struct {
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ID             string
	BranchID       string
	AccountType    AccountType
	Provider       string
	CurrentBalance decimal.Decimal
	MinThreshold   decimal.Decimal
	MaxThreshold   decimal.Decimal
	IsActive       bool
}

// ThresholdCrossing describes how a balance moved relative to the account thresholds.
type ThresholdCrossing int

const (
	CrossingNone ThresholdCrossing = iota
	CrossingBelowMin
	CrossingAboveMax
)

// CheckThresholds reports whether moving from previous to current crossed a
// threshold. Only the crossing itself is reported, not every update spent
// below the minimum. A zero MaxThreshold disables the upper bound.
func (a *FloatAccount) CheckThresholds(previous, current decimal.Decimal) ThresholdCrossing {
	if current.LessThan(a.MinThreshold) && !previous.LessThan(a.MinThreshold) {
		return CrossingBelowMin
	}

	if a.MaxThreshold.IsPositive() && current.GreaterThan(a.MaxThreshold) && !previous.GreaterThan(a.MaxThreshold) {
		return CrossingAboveMax
	}

	return CrossingNone
}

// BalanceChange is the result of applying a delta to an account.
type BalanceChange struct {
	Account         *FloatAccount
	PreviousBalance decimal.Decimal
	Delta           decimal.Decimal
}

// Crossing reports the threshold crossing caused by the change.
func (c BalanceChange) Crossing() ThresholdCrossing {
	return c.Account.CheckThresholds(c.PreviousBalance, c.Account.CurrentBalance)
}
