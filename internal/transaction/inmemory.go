package transaction

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/balance-api/balance_api/internal/account"
)

// MemoryStore keeps accounts and transactions in process memory behind one
// mutex, which gives the same per-account serialization the Postgres store
// gets from row locks. It backs unit tests and the dev mode without a
// database; Accounts() exposes the same state as an account repository so
// both views stay consistent.
type MemoryStore struct {
	mu           sync.Mutex
	accounts     map[uuid.UUID]account.Account
	transactions map[uuid.UUID]Transaction
	now          func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:     make(map[uuid.UUID]account.Account),
		transactions: make(map[uuid.UUID]Transaction),
		now:          time.Now,
	}
}

// Accounts returns the account repository view over the same state.
func (m *MemoryStore) Accounts() account.Repository {
	return memoryAccounts{store: m}
}

// Create implements Store: it validates reservations against the account and
// opens a PENDING transaction.
func (m *MemoryStore) Create(_ context.Context, input CreateInput) (Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acct, ok := m.accounts[input.AccountID]
	if !ok {
		return Transaction{}, ErrAccountNotFound
	}

	switch {
	case input.Amount < 0:
		available := acct.CurrentBalance - m.reservedLocked(input.AccountID, true)
		if available < -input.Amount {
			return Transaction{}, ErrInsufficientFunds
		}
	case input.Amount > 0:
		reserved := m.reservedLocked(input.AccountID, false)
		if acct.CurrentBalance+input.Amount+reserved > acct.MaxBalance {
			return Transaction{}, ErrMaxBalanceExceeded
		}
	}

	now := m.now().UTC()
	t := Transaction{
		ID:             uuid.New(),
		AccountID:      input.AccountID,
		Amount:         input.Amount,
		Status:         StatusPending,
		TimeoutSeconds: input.TimeoutSeconds,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	m.transactions[t.ID] = t
	return t, nil
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, id uuid.UUID) (Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[id]
	if !ok {
		return Transaction{}, ErrNotFound
	}
	return t, nil
}

// Confirm implements Store.
func (m *MemoryStore) Confirm(_ context.Context, id uuid.UUID) (Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.transactions[id]
	if !ok {
		return Transaction{}, ErrNotFound
	}
	if t.Status.Terminal() {
		return t, ErrInvalidStatus
	}

	now := m.now().UTC()
	if now.After(t.Deadline()) {
		t.Status = StatusExpired
		t.UpdatedAt = now
		m.transactions[id] = t
		return t, ErrExpired
	}

	acct, ok := m.accounts[t.AccountID]
	if !ok {
		return Transaction{}, ErrAccountNotFound
	}

	switch {
	case t.Amount < 0:
		reserved := m.reservedLocked(t.AccountID, true) + t.Amount // exclude self
		available := acct.CurrentBalance - reserved
		if available < -t.Amount {
			return t, ErrInsufficientFunds
		}
	case t.Amount > 0:
		if acct.CurrentBalance+t.Amount > acct.MaxBalance {
			return t, ErrMaxBalanceExceeded
		}
	}

	newBalance := acct.CurrentBalance + t.Amount
	if newBalance < 0 {
		return t, ErrInconsistentBalance
	}

	acct.CurrentBalance = newBalance
	m.accounts[t.AccountID] = acct
	t.Status = StatusConfirmed
	t.UpdatedAt = now
	m.transactions[id] = t
	return t, nil
}

// Cancel implements Store.
func (m *MemoryStore) Cancel(_ context.Context, id uuid.UUID) (Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.transactions[id]
	if !ok {
		return Transaction{}, ErrNotFound
	}
	if t.Status.Terminal() {
		return t, ErrInvalidStatus
	}

	t.Status = StatusCanceled
	t.UpdatedAt = m.now().UTC()
	m.transactions[id] = t
	return t, nil
}

// ListByAccount implements Store.
func (m *MemoryStore) ListByAccount(_ context.Context, accountID uuid.UUID, limit, page int) ([]Transaction, int64, error) {
	if limit < 1 {
		limit = defaultPageSize
	}
	if page < 1 {
		page = 1
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var all []Transaction
	for _, t := range m.transactions {
		if t.AccountID == accountID {
			all = append(all, t)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

// SweepExpired implements Store.
func (m *MemoryStore) SweepExpired(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	var count int64
	for id, t := range m.transactions {
		if t.Status == StatusPending && now.After(t.Deadline()) {
			t.Status = StatusExpired
			t.UpdatedAt = now
			m.transactions[id] = t
			count++
		}
	}
	return count, nil
}

// reservedLocked sums the magnitude of pending debits or credits for an
// account. Callers must hold m.mu.
func (m *MemoryStore) reservedLocked(accountID uuid.UUID, debit bool) int64 {
	var sum int64
	for _, t := range m.transactions {
		if t.AccountID != accountID || t.Status != StatusPending {
			continue
		}
		if debit && t.Amount < 0 {
			sum += -t.Amount
		}
		if !debit && t.Amount > 0 {
			sum += t.Amount
		}
	}
	return sum
}

// memoryAccounts adapts MemoryStore to account.Repository.
type memoryAccounts struct {
	store *MemoryStore
}

func (a memoryAccounts) Create(_ context.Context, acct account.Account) error {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	if _, exists := a.store.accounts[acct.ID]; exists {
		return fmt.Errorf("account %s already exists", acct.ID)
	}
	a.store.accounts[acct.ID] = acct
	return nil
}

func (a memoryAccounts) Get(_ context.Context, id uuid.UUID) (account.Account, error) {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	acct, ok := a.store.accounts[id]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	return acct, nil
}

// Delete removes the account and its transactions, mirroring the schema's
// cascading foreign key.
func (a memoryAccounts) Delete(_ context.Context, id uuid.UUID) error {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	if _, ok := a.store.accounts[id]; !ok {
		return account.ErrNotFound
	}
	delete(a.store.accounts, id)
	for txID, t := range a.store.transactions {
		if t.AccountID == id {
			delete(a.store.transactions, txID)
		}
	}
	return nil
}

// SetCurrentBalance checks the bounds under the store lock so a concurrent
// confirm cannot slip between the check and the write.
func (a memoryAccounts) SetCurrentBalance(_ context.Context, id uuid.UUID, balance int64) (account.Account, error) {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	acct, ok := a.store.accounts[id]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	if balance < 0 {
		return account.Account{}, account.ErrNegativeBalance
	}
	if balance > acct.MaxBalance {
		return account.Account{}, account.ErrBalanceAboveMax
	}
	acct.CurrentBalance = balance
	a.store.accounts[id] = acct
	return acct, nil
}

func (a memoryAccounts) SetMaxBalance(_ context.Context, id uuid.UUID, max int64) (account.Account, error) {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	acct, ok := a.store.accounts[id]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	if max < acct.CurrentBalance {
		return account.Account{}, account.ErrMaxBelowCurrent
	}
	acct.MaxBalance = max
	a.store.accounts[id] = acct
	return acct, nil
}
