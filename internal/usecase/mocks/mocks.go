package mocks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/branchledger/internal/domain"
	"github.com/iho/branchledger/internal/usecase"
)

// ErrTxClosed is returned when committing a finished MockTransaction.
var ErrTxClosed = errors.New("mock: transaction already closed")

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	mu           sync.Mutex
	BeginFunc    func(ctx context.Context) (usecase.Transaction, error)
	Transactions []*MockTransaction
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	tx := &MockTransaction{}
	m.mu.Lock()
	m.Transactions = append(m.Transactions, tx)
	m.mu.Unlock()
	return tx, nil
}

// Last returns the most recently started top-level transaction.
func (m *MockTransactionManager) Last() *MockTransaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Transactions) == 0 {
		return nil
	}
	return m.Transactions[len(m.Transactions)-1]
}

// MockTransaction is a mock implementation of Transaction. Repository mocks
// register undo steps on it so Rollback restores their in-memory state,
// including rollback to a savepoint started with Begin.
type MockTransaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
	BeginFunc    func(ctx context.Context) (usecase.Transaction, error)

	mu         sync.Mutex
	parent     *MockTransaction
	undo       []func()
	done       bool
	Committed  bool
	RolledBack bool
}

func (m *MockTransaction) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return &MockTransaction{parent: m}, nil
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		if err := m.CommitFunc(ctx); err != nil {
			return err
		}
	}
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return ErrTxClosed
	}
	m.done = true
	m.Committed = true
	undo := m.undo
	m.undo = nil
	m.mu.Unlock()

	if m.parent != nil {
		m.parent.addUndo(undo...)
	}
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		if err := m.RollbackFunc(ctx); err != nil {
			return err
		}
	}
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return nil
	}
	m.done = true
	m.RolledBack = true
	undo := m.undo
	m.undo = nil
	m.mu.Unlock()

	for i := len(undo) - 1; i >= 0; i-- {
		undo[i]()
	}
	return nil
}

func (m *MockTransaction) addUndo(fns ...func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.undo = append(m.undo, fns...)
}

func onRollback(tx usecase.Transaction, fn func()) {
	if mt, ok := tx.(*MockTransaction); ok && mt != nil {
		mt.addUndo(fn)
	}
}

// MockFloatAccountRepository is a mock implementation of FloatAccountRepository.
type MockFloatAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.FloatAccount
	applied  []string

	CreateFunc             func(ctx context.Context, account *domain.FloatAccount) error
	GetByIDFunc            func(ctx context.Context, id string) (*domain.FloatAccount, error)
	GetByTypeAndBranchFunc func(ctx context.Context, accountType domain.AccountType, branchID string) (*domain.FloatAccount, error)
	ApplyDeltaFunc         func(ctx context.Context, tx usecase.Transaction, id string, delta decimal.Decimal, updatedAt time.Time) (*domain.BalanceChange, error)
}

func NewMockFloatAccountRepository() *MockFloatAccountRepository {
	return &MockFloatAccountRepository{
		accounts: make(map[string]*domain.FloatAccount),
	}
}

func (m *MockFloatAccountRepository) Create(ctx context.Context, account *domain.FloatAccount) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *account
	m.accounts[account.ID] = &c
	return nil
}

func (m *MockFloatAccountRepository) GetByID(ctx context.Context, id string) (*domain.FloatAccount, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if acc, ok := m.accounts[id]; ok {
		c := *acc
		return &c, nil
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockFloatAccountRepository) GetByTypeAndBranch(ctx context.Context, accountType domain.AccountType, branchID string) (*domain.FloatAccount, error) {
	if m.GetByTypeAndBranchFunc != nil {
		return m.GetByTypeAndBranchFunc(ctx, accountType, branchID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, acc := range m.accounts {
		if acc.AccountType == accountType && acc.BranchID == branchID {
			c := *acc
			return &c, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockFloatAccountRepository) ListByBranch(ctx context.Context, branchID string) ([]*domain.FloatAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var accounts []*domain.FloatAccount
	for _, acc := range m.accounts {
		if acc.BranchID == branchID {
			c := *acc
			accounts = append(accounts, &c)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts, nil
}

func (m *MockFloatAccountRepository) ApplyDelta(ctx context.Context, tx usecase.Transaction, id string, delta decimal.Decimal, updatedAt time.Time) (*domain.BalanceChange, error) {
	if m.ApplyDeltaFunc != nil {
		return m.ApplyDeltaFunc(ctx, tx, id, delta, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applied = append(m.applied, id)
	acc, ok := m.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	if !acc.IsActive {
		return nil, domain.ErrAccountInactive
	}
	previous := acc.CurrentBalance
	acc.CurrentBalance = acc.CurrentBalance.Add(delta)
	acc.UpdatedAt = updatedAt
	onRollback(tx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		acc.CurrentBalance = acc.CurrentBalance.Sub(delta)
	})
	c := *acc
	return &domain.BalanceChange{Account: &c, PreviousBalance: previous, Delta: delta}, nil
}

// AppliedIDs returns the account ids passed to ApplyDelta, in call order.
func (m *MockFloatAccountRepository) AppliedIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.applied...)
}

// Balance returns the current balance of an account.
func (m *MockFloatAccountRepository) Balance(id string) decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if acc, ok := m.accounts[id]; ok {
		return acc.CurrentBalance
	}
	return decimal.Zero
}

// MockTransactionRepository is a mock implementation of TransactionRepository.
type MockTransactionRepository struct {
	mu   sync.RWMutex
	txns map[string]*domain.Transaction

	CreateFunc       func(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error
	GetByIDFunc      func(ctx context.Context, id string) (*domain.Transaction, error)
	UpdateFunc       func(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error
	UpdateStatusFunc func(ctx context.Context, tx usecase.Transaction, id string, status domain.TransactionStatus, glTransactionID *string, updatedAt time.Time) error
	DeleteFunc       func(ctx context.Context, tx usecase.Transaction, id string) error
	ListFunc         func(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error)
}

func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{
		txns: make(map[string]*domain.Transaction),
	}
}

func (m *MockTransactionRepository) put(tx usecase.Transaction, txn *domain.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	previous, existed := m.txns[txn.ID]
	c := *txn
	m.txns[txn.ID] = &c
	onRollback(tx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if existed {
			m.txns[txn.ID] = previous
		} else {
			delete(m.txns, txn.ID)
		}
	})
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, txn)
	}
	m.put(tx, txn)
	return nil
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.txns[id]; ok {
		c := *t
		return &c, nil
	}
	return nil, domain.ErrTransactionNotFound
}

func (m *MockTransactionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Transaction, error) {
	return m.GetByID(ctx, id)
}

func (m *MockTransactionRepository) Update(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, tx, txn)
	}
	if _, err := m.GetByID(ctx, txn.ID); err != nil {
		return err
	}
	m.put(tx, txn)
	return nil
}

func (m *MockTransactionRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, status domain.TransactionStatus, glTransactionID *string, updatedAt time.Time) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, tx, id, status, glTransactionID, updatedAt)
	}
	txn, err := m.GetByID(ctx, id)
	if err != nil {
		return err
	}
	txn.Status = status
	txn.GLTransactionID = glTransactionID
	txn.UpdatedAt = updatedAt
	m.put(tx, txn)
	return nil
}

func (m *MockTransactionRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, tx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	previous, ok := m.txns[id]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	delete(m.txns, id)
	onRollback(tx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.txns[id] = previous
	})
	return nil
}

func (m *MockTransactionRepository) List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Transaction
	for _, t := range m.txns {
		if filter.BranchID != "" && t.BranchID != filter.BranchID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.Domain != "" && t.Domain != filter.Domain {
			continue
		}
		if filter.UnpostedOnly && t.GLTransactionID != nil {
			continue
		}
		c := *t
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Count returns the number of stored transactions.
func (m *MockTransactionRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.txns)
}

// MockGLRepository is an in-memory mock implementation of GLRepository.
type MockGLRepository struct {
	mu           sync.RWMutex
	accounts     map[string]*domain.GLAccount
	transactions map[string]*domain.GLTransaction

	UpsertAccountFunc     func(ctx context.Context, tx usecase.Transaction, id string, spec domain.GLAccountSpec, now time.Time) (*domain.GLAccount, error)
	CreateTransactionFunc func(ctx context.Context, tx usecase.Transaction, glTx *domain.GLTransaction) error
	GetBySourceFunc       func(ctx context.Context, tx usecase.Transaction, sourceModule, sourceTransactionID string) ([]*domain.GLTransaction, error)
}

func NewMockGLRepository() *MockGLRepository {
	return &MockGLRepository{
		accounts:     make(map[string]*domain.GLAccount),
		transactions: make(map[string]*domain.GLTransaction),
	}
}

func (m *MockGLRepository) UpsertAccount(ctx context.Context, tx usecase.Transaction, id string, spec domain.GLAccountSpec, now time.Time) (*domain.GLAccount, error) {
	if m.UpsertAccountFunc != nil {
		return m.UpsertAccountFunc(ctx, tx, id, spec, now)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if acc, ok := m.accounts[spec.Code]; ok {
		c := *acc
		return &c, nil
	}
	acc := &domain.GLAccount{
		ID:        id,
		Code:      spec.Code,
		Name:      spec.Name,
		Type:      spec.Type,
		Balance:   decimal.Zero,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.accounts[spec.Code] = acc
	onRollback(tx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.accounts, spec.Code)
	})
	c := *acc
	return &c, nil
}

func (m *MockGLRepository) AdjustAccountBalance(ctx context.Context, tx usecase.Transaction, accountID string, delta decimal.Decimal, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, acc := range m.accounts {
		if acc.ID == accountID {
			acc.Balance = acc.Balance.Add(delta)
			acc.UpdatedAt = updatedAt
			onRollback(tx, func() {
				m.mu.Lock()
				defer m.mu.Unlock()
				acc.Balance = acc.Balance.Sub(delta)
			})
			return nil
		}
	}
	return domain.ErrGLAccountNotFound
}

func (m *MockGLRepository) CreateTransaction(ctx context.Context, tx usecase.Transaction, glTx *domain.GLTransaction) error {
	if m.CreateTransactionFunc != nil {
		return m.CreateTransactionFunc(ctx, tx, glTx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *glTx
	m.transactions[glTx.ID] = &c
	onRollback(tx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.transactions, glTx.ID)
	})
	return nil
}

func (m *MockGLRepository) GetBySource(ctx context.Context, tx usecase.Transaction, sourceModule, sourceTransactionID string) ([]*domain.GLTransaction, error) {
	if m.GetBySourceFunc != nil {
		return m.GetBySourceFunc(ctx, tx, sourceModule, sourceTransactionID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.GLTransaction
	for _, t := range m.transactions {
		if t.SourceModule == sourceModule && t.SourceTransactionID == sourceTransactionID {
			c := *t
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockGLRepository) DeleteTransaction(ctx context.Context, tx usecase.Transaction, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	previous, ok := m.transactions[id]
	if !ok {
		return fmt.Errorf("mock: gl transaction %s not found", id)
	}
	delete(m.transactions, id)
	onRollback(tx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.transactions[id] = previous
	})
	return nil
}

func (m *MockGLRepository) ListAccounts(ctx context.Context) ([]*domain.GLAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.GLAccount, 0, len(m.accounts))
	for _, acc := range m.accounts {
		c := *acc
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// AccountBalance returns the balance of the GL account with code.
func (m *MockGLRepository) AccountBalance(code string) decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if acc, ok := m.accounts[code]; ok {
		return acc.Balance
	}
	return decimal.Zero
}

// TransactionCount returns the number of stored GL transactions.
func (m *MockGLRepository) TransactionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.transactions)
}

// MockLedgerRepository is a mock implementation of LedgerRepository.
type MockLedgerRepository struct {
	CheckConsistencyFunc func(ctx context.Context) (decimal.Decimal, decimal.Decimal, error)
	ListUnbalancedFunc   func(ctx context.Context, limit int) ([]string, error)
}

func (m *MockLedgerRepository) CheckConsistency(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	if m.CheckConsistencyFunc != nil {
		return m.CheckConsistencyFunc(ctx)
	}
	return decimal.Zero, decimal.Zero, nil
}

func (m *MockLedgerRepository) ListUnbalanced(ctx context.Context, limit int) ([]string, error) {
	if m.ListUnbalancedFunc != nil {
		return m.ListUnbalancedFunc(ctx, limit)
	}
	return nil, nil
}

// MockOutboxRepository is a mock implementation of OutboxRepository.
type MockOutboxRepository struct {
	mu     sync.RWMutex
	events []*domain.OutboxEvent

	CreateFunc func(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error
}

func NewMockOutboxRepository() *MockOutboxRepository {
	return &MockOutboxRepository{}
}

func (m *MockOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	onRollback(tx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, e := range m.events {
			if e == event {
				m.events = append(m.events[:i], m.events[i+1:]...)
				return
			}
		}
	})
	return nil
}

func (m *MockOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.OutboxEvent
	for _, e := range m.events {
		if !e.Published {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.ID == id {
			e.Published = true
			e.PublishedAt = &publishedAt
			return nil
		}
	}
	return nil
}

func (m *MockOutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.events[:0]
	for _, e := range m.events {
		if !e.Published || e.PublishedAt.After(before) {
			kept = append(kept, e)
		}
	}
	m.events = kept
	return nil
}

// EventTypes returns the types of stored events in insertion order.
func (m *MockOutboxRepository) EventTypes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.EventType)
	}
	return out
}

// MockAuditRepository is a mock implementation of AuditRepository.
type MockAuditRepository struct {
	mu   sync.RWMutex
	logs []*domain.AuditLog

	CreateFunc   func(ctx context.Context, log *domain.AuditLog) error
	CreateTxFunc func(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error
}

func NewMockAuditRepository() *MockAuditRepository {
	return &MockAuditRepository{}
}

func (m *MockAuditRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, log)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, log)
	return nil
}

func (m *MockAuditRepository) CreateTx(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	if m.CreateTxFunc != nil {
		return m.CreateTxFunc(ctx, tx, log)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, log)
	onRollback(tx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, l := range m.logs {
			if l == log {
				m.logs = append(m.logs[:i], m.logs[i+1:]...)
				return
			}
		}
	})
	return nil
}

func (m *MockAuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.AuditLog
	for _, l := range m.logs {
		if filter.EntityID != "" && l.EntityID != filter.EntityID {
			continue
		}
		if filter.Severity != "" && l.Severity != filter.Severity {
			continue
		}
		if filter.Action != "" && l.Action != filter.Action {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

// Logs returns every stored entry.
func (m *MockAuditRepository) Logs() []*domain.AuditLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.AuditLog(nil), m.logs...)
}

// BySeverity returns stored entries with severity.
func (m *MockAuditRepository) BySeverity(severity domain.AuditSeverity) []*domain.AuditLog {
	var out []*domain.AuditLog
	for _, l := range m.Logs() {
		if l.Severity == severity {
			out = append(out, l)
		}
	}
	return out
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	GenerateFunc func() string
	counter      int
	mu           sync.Mutex
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("mock-id-%04d", m.counter)
}

// MockIdempotencyStore is a mock implementation of IdempotencyStore.
type MockIdempotencyStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	CheckAndSetFunc func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	UpdateFunc      func(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

func NewMockIdempotencyStore() *MockIdempotencyStore {
	return &MockIdempotencyStore{
		data: make(map[string][]byte),
	}
}

func (m *MockIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	if m.CheckAndSetFunc != nil {
		return m.CheckAndSetFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.data[key]; ok {
		return true, existing, nil
	}
	if response != nil {
		m.data[key] = response
	} else {
		m.data[key] = []byte(usecase.IdempotencyInFlight)
	}
	return false, nil, nil
}

func (m *MockIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = response
	return nil
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Stored returns the value held for key.
func (m *MockIdempotencyStore) Stored(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

// MockCache is an in-memory mock implementation of Cache.
type MockCache struct {
	mu   sync.RWMutex
	data map[string][]byte

	GetFunc func(ctx context.Context, key string) ([]byte, error)
	SetFunc func(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func NewMockCache() *MockCache {
	return &MockCache{
		data: make(map[string][]byte),
	}
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data[key], nil
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
