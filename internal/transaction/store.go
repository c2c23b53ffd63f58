package transaction

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// defaultPageSize bounds ListByAccount when the caller passes no limit.
const defaultPageSize = 20

var (
	// ErrAccountNotFound occurs when the account referenced by a transaction
	// does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrNotFound occurs when the referenced transaction does not exist.
	ErrNotFound = errors.New("transaction not found")

	// ErrInsufficientFunds occurs when a debit request exceeds the balance
	// available after subtracting pending debit reservations.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrMaxBalanceExceeded occurs when a credit request would push the
	// balance past the account ceiling, pending credits included.
	ErrMaxBalanceExceeded = errors.New("max balance exceeded")

	// ErrInvalidStatus occurs when confirm or cancel targets a transaction
	// that already reached a terminal state.
	ErrInvalidStatus = errors.New("transaction is not pending")

	// ErrExpired indicates the transaction passed its confirmation deadline
	// and has been transitioned to EXPIRED instead of being applied.
	ErrExpired = errors.New("transaction expired")

	// ErrInconsistentBalance signals that applying a confirmed delta would
	// drive the balance negative. The prior checks make this unreachable; if
	// it fires, the unit of work is aborted and nothing is committed.
	ErrInconsistentBalance = errors.New("account balance would become negative")
)

// CreateInput carries the data required to open a pending transaction.
type CreateInput struct {
	AccountID      uuid.UUID
	Amount         int64
	TimeoutSeconds int
}

// Store is the transaction unit of work. Implementations serialize create and
// confirm per account: the reservation reads and the decision that depends on
// them happen under the same exclusive account lock.
type Store interface {
	// Create validates the reservation bounds under the account lock and
	// inserts a PENDING transaction atomically.
	Create(ctx context.Context, input CreateInput) (Transaction, error)

	// Get fetches a transaction by identifier.
	Get(ctx context.Context, id uuid.UUID) (Transaction, error)

	// Confirm applies the transaction delta to its account, or expires the
	// transaction when its deadline has passed. Balance and status change
	// together or not at all.
	Confirm(ctx context.Context, id uuid.UUID) (Transaction, error)

	// Cancel transitions a pending transaction to CANCELED with no balance
	// effect.
	Cancel(ctx context.Context, id uuid.UUID) (Transaction, error)

	// ListByAccount returns one page of an account's transactions ordered by
	// creation time descending, plus the total count. page is 1-based.
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit, page int) ([]Transaction, int64, error)

	// SweepExpired expires every pending transaction past its deadline in a
	// single set-based update and reports the number of rows changed.
	SweepExpired(ctx context.Context) (int64, error)
}
