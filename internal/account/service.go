package account

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Service exposes account administration operations.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService builds an account service instance.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// CreateInput captures data required to open an account.
type CreateInput struct {
	CurrentBalance int64
	MaxBalance     int64
}

// Create validates the balance bounds and provisions an account.
func (s *Service) Create(ctx context.Context, input CreateInput) (Account, error) {
	if input.CurrentBalance < 0 {
		return Account{}, ErrNegativeBalance
	}
	if input.CurrentBalance > input.MaxBalance {
		return Account{}, ErrBalanceAboveMax
	}

	acct := Account{
		ID:             uuid.New(),
		CurrentBalance: input.CurrentBalance,
		MaxBalance:     input.MaxBalance,
	}
	if err := s.repo.Create(ctx, acct); err != nil {
		return Account{}, err
	}

	s.logger.Info("account created", "account_id", acct.ID, "balance", acct.CurrentBalance, "max_balance", acct.MaxBalance)
	return acct, nil
}

// Get retrieves an account by identifier.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Account, error) {
	return s.repo.Get(ctx, id)
}

// Delete removes an account and, by cascade, its transactions.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("account deleted", "account_id", id)
	return nil
}

// SetCurrentBalance overwrites the current balance. The repository checks
// 0 <= balance <= max atomically with the write.
func (s *Service) SetCurrentBalance(ctx context.Context, id uuid.UUID, balance int64) (Account, error) {
	if balance < 0 {
		return Account{}, ErrNegativeBalance
	}
	return s.repo.SetCurrentBalance(ctx, id, balance)
}

// SetMaxBalance overwrites the ceiling; the repository refuses values under
// the current balance atomically with the write.
func (s *Service) SetMaxBalance(ctx context.Context, id uuid.UUID, max int64) (Account, error) {
	return s.repo.SetMaxBalance(ctx, id, max)
}
