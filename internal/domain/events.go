package domain

import "time"

// Event types
const (
	EventTypeTransactionSettled  = "transaction.settled"
	EventTypeTransactionAmended  = "transaction.amended"
	EventTypeTransactionReversed = "transaction.reversed"
	EventTypeReconciliation      = "transaction.reconciliation_required"
	EventTypeLowBalance          = "float.low_balance"
	EventTypeHighBalance         = "float.high_balance"
)

// Aggregate types
const (
	AggregateTypeTransaction  = "transaction"
	AggregateTypeFloatAccount = "float_account"
)

// OutboxEvent is written in the same DB transaction as the change it
// describes and published later by the event publisher.
type OutboxEvent struct {
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Payload       map[string]any
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Published     bool
}

// TransactionEvent payload
type TransactionEvent struct {
	TransactionID   string `json:"transaction_id"`
	Domain          string `json:"domain"`
	Type            string `json:"type"`
	BranchID        string `json:"branch_id"`
	Amount          string `json:"amount"`
	Fee             string `json:"fee"`
	CashTillDelta   string `json:"cash_till_delta"`
	FloatDelta      string `json:"float_delta"`
	Status          string `json:"status"`
	GLTransactionID string `json:"gl_transaction_id,omitempty"`
	Reason          string `json:"reason,omitempty"`
}

// NewTransactionEvent builds the payload for t.
func NewTransactionEvent(t *Transaction, reason string) TransactionEvent {
	ev := TransactionEvent{
		TransactionID: t.ID,
		Domain:        string(t.Domain),
		Type:          string(t.Type),
		BranchID:      t.BranchID,
		Amount:        t.Amount.String(),
		Fee:           t.Fee.String(),
		CashTillDelta: t.CashTillDelta.String(),
		FloatDelta:    t.FloatDelta.String(),
		Status:        string(t.Status),
		Reason:        reason,
	}
	if t.GLTransactionID != nil {
		ev.GLTransactionID = *t.GLTransactionID
	}

	return ev
}

// ThresholdEvent payload
type ThresholdEvent struct {
	AccountID       string `json:"account_id"`
	BranchID        string `json:"branch_id"`
	AccountType     string `json:"account_type"`
	Provider        string `json:"provider"`
	PreviousBalance string `json:"previous_balance"`
	CurrentBalance  string `json:"current_balance"`
	Threshold       string `json:"threshold"`
	TransactionID   string `json:"transaction_id"`
}
