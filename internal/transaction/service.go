package transaction

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
)

// ErrInvalidTimeout occurs when a transaction is created with a non-positive
// timeout.
var ErrInvalidTimeout = errors.New("timeout must be positive")

// Service exposes transaction operations on top of the store, adding input
// validation and outcome logging. All balance and status mutation funnels
// through the store's unit of work.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService builds a transaction service instance.
func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Create opens a pending transaction after validating the timeout.
func (s *Service) Create(ctx context.Context, input CreateInput) (Transaction, error) {
	if input.TimeoutSeconds <= 0 {
		return Transaction{}, ErrInvalidTimeout
	}

	t, err := s.store.Create(ctx, input)
	if err != nil {
		s.logger.Warn("transaction refused",
			"account_id", input.AccountID, "amount", input.Amount, "error", err)
		return Transaction{}, err
	}

	s.logger.Info("transaction created",
		"transaction_id", t.ID, "account_id", t.AccountID, "amount", t.Amount, "kind", kind(t.Amount))
	return t, nil
}

// Get fetches a transaction by identifier.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Transaction, error) {
	return s.store.Get(ctx, id)
}

// Confirm applies a pending transaction to its account.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (Transaction, error) {
	t, err := s.store.Confirm(ctx, id)
	switch {
	case err == nil:
		s.logger.Info("transaction confirmed",
			"transaction_id", t.ID, "account_id", t.AccountID, "amount", t.Amount)
	case errors.Is(err, ErrInconsistentBalance):
		// Should be unreachable given the bounds checks; treated as a logic
		// defect and surfaced to operators.
		s.logger.Error("critical balance inconsistency, confirmation aborted",
			"transaction_id", id, "account_id", t.AccountID, "amount", t.Amount)
	case errors.Is(err, ErrExpired):
		s.logger.Warn("transaction expired on confirm", "transaction_id", id)
	default:
		s.logger.Warn("transaction confirmation refused", "transaction_id", id, "error", err)
	}
	return t, err
}

// Cancel voids a pending transaction without touching the balance.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (Transaction, error) {
	t, err := s.store.Cancel(ctx, id)
	if err != nil {
		s.logger.Warn("transaction cancellation refused", "transaction_id", id, "error", err)
		return t, err
	}
	s.logger.Info("transaction canceled", "transaction_id", t.ID, "account_id", t.AccountID)
	return t, nil
}

// ListByAccount returns one page of an account's transactions plus the total
// count.
func (s *Service) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, page int) ([]Transaction, int64, error) {
	return s.store.ListByAccount(ctx, accountID, limit, page)
}

// SweepExpired expires stale pending transactions in bulk.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	return s.store.SweepExpired(ctx)
}

func kind(amount int64) string {
	if amount < 0 {
		return "DEBIT"
	}
	return "CREDIT"
}
