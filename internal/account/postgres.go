package account

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores accounts in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts an account record.
func (r *PostgresRepository) Create(ctx context.Context, acct Account) error {
	_, err := r.db.Exec(ctx, `INSERT INTO accounts (id, current_balance, max_balance) VALUES ($1, $2, $3)`,
		acct.ID, acct.CurrentBalance, acct.MaxBalance)
	return err
}

// Get fetches an account by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (Account, error) {
	var acct Account
	err := r.db.QueryRow(ctx, `SELECT id, current_balance, max_balance FROM accounts WHERE id = $1`, id).
		Scan(&acct.ID, &acct.CurrentBalance, &acct.MaxBalance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	return acct, nil
}

// Delete removes an account; its transactions go with it via the foreign key
// cascade.
func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetCurrentBalance overwrites the current balance. The bounds check rides in
// the WHERE clause so a concurrent balance change cannot race it.
func (r *PostgresRepository) SetCurrentBalance(ctx context.Context, id uuid.UUID, balance int64) (Account, error) {
	return r.update(ctx, id, `UPDATE accounts SET current_balance = $1
        WHERE id = $2 AND $1 BETWEEN 0 AND max_balance
        RETURNING id, current_balance, max_balance`, balance, ErrBalanceAboveMax)
}

// SetMaxBalance overwrites the balance ceiling, refusing values under the
// current balance.
func (r *PostgresRepository) SetMaxBalance(ctx context.Context, id uuid.UUID, max int64) (Account, error) {
	return r.update(ctx, id, `UPDATE accounts SET max_balance = $1
        WHERE id = $2 AND $1 >= current_balance
        RETURNING id, current_balance, max_balance`, max, ErrMaxBelowCurrent)
}

func (r *PostgresRepository) update(ctx context.Context, id uuid.UUID, query string, value int64, guardErr error) (Account, error) {
	var acct Account
	err := r.db.QueryRow(ctx, query, value, id).Scan(&acct.ID, &acct.CurrentBalance, &acct.MaxBalance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// No row matched: either the account is missing or the guard
			// refused the value.
			if _, getErr := r.Get(ctx, id); errors.Is(getErr, ErrNotFound) {
				return Account{}, ErrNotFound
			}
			return Account{}, guardErr
		}
		return Account{}, err
	}
	return acct, nil
}
