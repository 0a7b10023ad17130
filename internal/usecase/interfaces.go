package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/branchledger/internal/domain"
)

// FloatAccountRepository defines data access for float accounts.
type FloatAccountRepository interface {
	Create(ctx context.Context, account *domain.FloatAccount) error
	GetByID(ctx context.Context, id string) (*domain.FloatAccount, error)
	GetByTypeAndBranch(ctx context.Context, accountType domain.AccountType, branchID string) (*domain.FloatAccount, error)
	ListByBranch(ctx context.Context, branchID string) ([]*domain.FloatAccount, error)
	// ApplyDelta adds delta to the balance in a single atomic statement and
	// returns the account with its new balance.
	ApplyDelta(ctx context.Context, tx Transaction, id string, delta decimal.Decimal, updatedAt time.Time) (*domain.BalanceChange, error)
}

// TransactionRepository defines data access for settlement transactions.
type TransactionRepository interface {
	Create(ctx context.Context, tx Transaction, txn *domain.Transaction) error
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Transaction, error)
	Update(ctx context.Context, tx Transaction, txn *domain.Transaction) error
	UpdateStatus(ctx context.Context, tx Transaction, id string, status domain.TransactionStatus, glTransactionID *string, updatedAt time.Time) error
	Delete(ctx context.Context, tx Transaction, id string) error
	List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error)
}

// GLRepository defines data access for the general ledger.
type GLRepository interface {
	// UpsertAccount returns the account with spec.Code, creating it with id when missing.
	UpsertAccount(ctx context.Context, tx Transaction, id string, spec domain.GLAccountSpec, now time.Time) (*domain.GLAccount, error)
	AdjustAccountBalance(ctx context.Context, tx Transaction, accountID string, delta decimal.Decimal, updatedAt time.Time) error
	CreateTransaction(ctx context.Context, tx Transaction, glTx *domain.GLTransaction) error
	// GetBySource returns GL transactions with their entries. tx may be nil.
	GetBySource(ctx context.Context, tx Transaction, sourceModule, sourceTransactionID string) ([]*domain.GLTransaction, error)
	DeleteTransaction(ctx context.Context, tx Transaction, id string) error
	ListAccounts(ctx context.Context) ([]*domain.GLAccount, error)
}

// LedgerRepository defines data access for ledger-wide checks.
type LedgerRepository interface {
	CheckConsistency(ctx context.Context) (totalDebit, totalCredit decimal.Decimal, err error)
	ListUnbalanced(ctx context.Context, limit int) ([]string, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// AuditRepository defines data access for audit logs. There is no update or delete.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
	CreateTx(ctx context.Context, tx Transaction, log *domain.AuditLog) error
	List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error)
}

// Transaction represents a database transaction. Begin starts a nested
// transaction backed by a savepoint; rolling it back leaves the parent usable.
type Transaction interface {
	Begin(ctx context.Context) (Transaction, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation on transient storage errors.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not. A nil
	// response claims the key with IdempotencyInFlight.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a claimed key so a failed request can be retried.
	Release(ctx context.Context, key string) error
}

// FeeLookup is the external fee calculation service.
type FeeLookup interface {
	Lookup(ctx context.Context, d domain.TransactionDomain, t domain.TransactionType, amount decimal.Decimal, counterpartyAccountID string) (decimal.Decimal, error)
}

// SettlementMetrics receives settlement outcomes.
type SettlementMetrics interface {
	ObserveSettlement(operation, outcome string, duration time.Duration)
	IncPostingFailure(operation string)
	IncThresholdCrossing(eventType string)
}

// FeeMetrics counts fee quotes by source.
type FeeMetrics interface {
	IncFeeQuote(source string)
}

type noopMetrics struct{}

func (noopMetrics) ObserveSettlement(string, string, time.Duration) {}
func (noopMetrics) IncPostingFailure(string)                        {}
func (noopMetrics) IncThresholdCrossing(string)                     {}
