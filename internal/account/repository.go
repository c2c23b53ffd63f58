package account

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrNotFound occurs when the referenced account does not exist.
	ErrNotFound = errors.New("account not found")

	// ErrBalanceAboveMax occurs when a balance write would exceed the ceiling.
	ErrBalanceAboveMax = errors.New("current balance exceeds max balance")

	// ErrNegativeBalance occurs when a balance write would go below zero.
	ErrNegativeBalance = errors.New("current balance cannot be negative")

	// ErrMaxBelowCurrent occurs when the ceiling would drop under the
	// current balance.
	ErrMaxBelowCurrent = errors.New("max balance below current balance")
)

// Repository persists account rows. Balance mutations driven by transaction
// confirmation do not go through this interface; they belong to the
// transaction store's unit of work. SetCurrentBalance and SetMaxBalance
// check the balance bounds atomically with the write and return the bound
// errors above when refused.
type Repository interface {
	Create(ctx context.Context, acct Account) error
	Get(ctx context.Context, id uuid.UUID) (Account, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SetCurrentBalance(ctx context.Context, id uuid.UUID, balance int64) (Account, error)
	SetMaxBalance(ctx context.Context, id uuid.UUID, max int64) (Account, error)
}
