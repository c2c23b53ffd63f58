package transaction

import (
	"time"

	"github.com/google/uuid"

	"github.com/balance-api/balance_api/internal/account"
)

// SeedAccount is a test helper that installs an account with the given
// balances when using the in-memory store.
func SeedAccount(s Store, id uuid.UUID, current, max int64) {
	if mem, ok := s.(*MemoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.accounts[id] = account.Account{ID: id, CurrentBalance: current, MaxBalance: max}
	}
}

// Backdate is a test helper that shifts a stored transaction's creation time
// into the past, so deadline-sensitive paths can be exercised without
// sleeping.
func Backdate(s Store, id uuid.UUID, d time.Duration) {
	if mem, ok := s.(*MemoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		if t, exists := mem.transactions[id]; exists {
			t.CreatedAt = t.CreatedAt.Add(-d)
			mem.transactions[id] = t
		}
	}
}
