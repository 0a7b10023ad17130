package domain

import (
	"encoding/json"
	"time"
)

// AuditLog is an append-only record of an action or failure. Rows are never
// updated or deleted.
type AuditLog struct {
	CreatedAt    time.Time
	Details      JSON
	ID           string
	ActorID      string
	BranchID     string
	Action       AuditAction
	EntityType   string
	EntityID     string
	Description  string
	ErrorMessage string
	Severity     AuditSeverity
	Status       AuditStatus
}

// JSON is free-form structured audit data.
type JSON map[string]any

// AuditAction names what happened.
type AuditAction string

const (
	AuditActionTransactionSettle  AuditAction = "transaction.settle"
	AuditActionTransactionAmend   AuditAction = "transaction.amend"
	AuditActionTransactionReverse AuditAction = "transaction.reverse"
	AuditActionTransactionDelete  AuditAction = "transaction.delete"
	AuditActionBalanceFailure     AuditAction = "transaction.balance_failure"
	AuditActionPostingFailure     AuditAction = "transaction.posting_failure"
	AuditActionOutcomeUnknown     AuditAction = "transaction.outcome_unknown"
	AuditActionAccountCreate      AuditAction = "account.create"
)

// AuditSeverity ranks how urgently an entry needs attention.
type AuditSeverity string

const (
	SeverityLow      AuditSeverity = "low"
	SeverityMedium   AuditSeverity = "medium"
	SeverityHigh     AuditSeverity = "high"
	SeverityCritical AuditSeverity = "critical"
)

// AuditStatus is the outcome of an audited action.
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailure AuditStatus = "failure"
)

// Entity types
const (
	EntityTransaction  = "transaction"
	EntityFloatAccount = "float_account"
)

// MarshalState converts a domain object to JSON for audit details.
func MarshalState(v any) JSON {
	if v == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return JSON{"error": "failed to marshal state"}
	}

	var result JSON
	if err := json.Unmarshal(data, &result); err != nil {
		return JSON{"error": "failed to unmarshal state"}
	}

	return result
}

// AuditFilter narrows audit listings.
type AuditFilter struct {
	StartDate  *time.Time
	EndDate    *time.Time
	ActorID    string
	BranchID   string
	Action     AuditAction
	EntityType string
	EntityID   string
	Severity   AuditSeverity
	Status     AuditStatus
	Limit      int
	Offset     int
}
