package transaction

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a transaction. PENDING is the only
// non-terminal state; a transaction reaches exactly one terminal state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCanceled  Status = "CANCELED"
	StatusExpired   Status = "EXPIRED"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s != StatusPending
}

// Transaction is a requested balance delta against an account. A negative
// amount is a debit request, a positive amount a credit request. The delta is
// applied to the account only when the transaction is confirmed.
type Transaction struct {
	ID             uuid.UUID
	AccountID      uuid.UUID
	Amount         int64
	Status         Status
	TimeoutSeconds int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Deadline is the instant after which a pending transaction may no longer be
// confirmed.
func (t Transaction) Deadline() time.Time {
	return t.CreatedAt.Add(time.Duration(t.TimeoutSeconds) * time.Second)
}
