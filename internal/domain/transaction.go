package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SourceModuleSettlement tags GL transactions posted by the settlement engine.
const SourceModuleSettlement = "settlement"

// TransactionDomain is the business line a transaction belongs to.
type TransactionDomain string

const (
	DomainMobileMoney      TransactionDomain = "mobile-money"
	DomainAgencyBanking    TransactionDomain = "agency-banking"
	DomainCardIssuance     TransactionDomain = "card-issuance"
	DomainCardWithdrawal   TransactionDomain = "card-withdrawal"
	DomainBillPayment      TransactionDomain = "bill-payment"
	DomainPackageLogistics TransactionDomain = "package-logistics"
)

// TransactionType is a domain specific operation. The set is closed per domain.
type TransactionType string

const (
	TypeDeposit    TransactionType = "deposit"
	TypeWithdrawal TransactionType = "withdrawal"
	TypeInterbank  TransactionType = "interbank"
	TypeCommission TransactionType = "commission"
	TypePayment    TransactionType = "payment"
	TypeIssuance   TransactionType = "issuance"
	TypeShipment   TransactionType = "shipment"
)

// TransactionStatus is the lifecycle state of a transaction.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
	StatusReversed  TransactionStatus = "reversed"
)

// Transition names a lifecycle step of a transaction.
type Transition string

const (
	TransitionComplete Transition = "complete"
	TransitionFail     Transition = "fail"
	TransitionAmend    Transition = "amend"
	TransitionReverse  Transition = "reverse"
)

// transitions is the lifecycle state machine:
// pending -> completed -> reversed, pending -> failed, completed -> completed (amend).
var transitions = map[Transition]struct{ from, to TransactionStatus }{
	TransitionComplete: {StatusPending, StatusCompleted},
	TransitionFail:     {StatusPending, StatusFailed},
	TransitionAmend:    {StatusCompleted, StatusCompleted},
	TransitionReverse:  {StatusCompleted, StatusReversed},
}

// Allows reports whether step may be taken from s.
func (s TransactionStatus) Allows(step Transition) bool {
	tr, ok := transitions[step]
	return ok && tr.from == s
}

// Advance takes step, moving the transaction to the step's target status.
// It returns ErrInvalidStateTransition when the current status does not
// allow the step.
func (t *Transaction) Advance(step Transition, at time.Time) error {
	if !t.Status.Allows(step) {
		return fmt.Errorf("%w: cannot %s %s transaction", ErrInvalidStateTransition, step, t.Status)
	}

	t.Status = transitions[step].to
	t.UpdatedAt = at

	return nil
}

// Transaction is a settled customer action. Its deltas are stored at settlement
// time and never recomputed afterwards.
type Transaction struct {
	CreatedAt             time.Time
	UpdatedAt             time.Time
	Metadata              map[string]any
	GLTransactionID       *string
	ID                    string
	Domain                TransactionDomain
	Type                  TransactionType
	CounterpartyAccountID string
	CashTillAccountID     string
	BranchID              string
	ActorID               string
	Reference             string
	Notes                 string
	Status                TransactionStatus
	Amount                decimal.Decimal
	Fee                   decimal.Decimal
	CashTillDelta         decimal.Decimal
	FloatDelta            decimal.Decimal
}

// Effects returns the stored balance effects of the transaction.
func (t *Transaction) Effects() Effects {
	return Effects{CashTillDelta: t.CashTillDelta, FloatDelta: t.FloatDelta}
}

// NeedsReconciliation reports whether a completed transaction has no GL posting.
func (t *Transaction) NeedsReconciliation() bool {
	return t.Status == StatusCompleted && t.GLTransactionID == nil && t.Effects().Moves()
}

// Deltas maps each touched account to its signed balance delta.
func (t *Transaction) Deltas() AccountDeltas {
	d := AccountDeltas{}
	d.Add(t.CashTillAccountID, t.CashTillDelta)
	d.Add(t.CounterpartyAccountID, t.FloatDelta)

	return d
}

// TransactionFilter narrows transaction listings.
type TransactionFilter struct {
	BranchID     string
	Status       TransactionStatus
	Domain       TransactionDomain
	UnpostedOnly bool
	Limit        int
	Offset       int
}
