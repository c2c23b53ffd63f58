package transaction

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	selectAccountForUpdate = `SELECT current_balance, max_balance FROM accounts WHERE id = $1 FOR UPDATE`

	selectTransactionForUpdate = `SELECT id, account_id, amount, status, timeout_seconds, created_at, updated_at
        FROM transactions WHERE id = $1 FOR UPDATE`

	reservedDebitQuery = `SELECT COALESCE(SUM(amount), 0) FROM transactions
        WHERE account_id = $1 AND status = 'PENDING' AND amount < 0`

	reservedCreditQuery = `SELECT COALESCE(SUM(amount), 0) FROM transactions
        WHERE account_id = $1 AND status = 'PENDING' AND amount > 0`
)

// PostgresStore persists transactions in PostgreSQL. Every mutation runs in a
// single database transaction holding exclusive row locks, so concurrent
// operations on the same account serialize while other accounts proceed
// independently. Lock order is fixed: transaction row before account row.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed transaction store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create locks the account row, verifies the request against the balance and
// the outstanding pending reservations, and inserts a PENDING transaction.
func (s *PostgresStore) Create(ctx context.Context, input CreateInput) (Transaction, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Transaction{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var current, max int64
	if err := tx.QueryRow(ctx, selectAccountForUpdate, input.AccountID).Scan(&current, &max); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrAccountNotFound
		}
		return Transaction{}, err
	}

	switch {
	case input.Amount < 0:
		reserved, err := reservedAmount(ctx, tx, input.AccountID, true)
		if err != nil {
			return Transaction{}, err
		}
		available := current - reserved
		if available < -input.Amount {
			return Transaction{}, ErrInsufficientFunds
		}
	case input.Amount > 0:
		reserved, err := reservedAmount(ctx, tx, input.AccountID, false)
		if err != nil {
			return Transaction{}, err
		}
		if current+input.Amount+reserved > max {
			return Transaction{}, ErrMaxBalanceExceeded
		}
	}
	// Zero amounts reserve nothing and skip both checks.

	now := time.Now().UTC()
	t := Transaction{
		ID:             uuid.New(),
		AccountID:      input.AccountID,
		Amount:         input.Amount,
		Status:         StatusPending,
		TimeoutSeconds: input.TimeoutSeconds,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if _, err := tx.Exec(ctx, `INSERT INTO transactions (id, account_id, amount, status, timeout_seconds, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.AccountID, t.Amount, t.Status, t.TimeoutSeconds, t.CreatedAt, t.UpdatedAt); err != nil {
		return Transaction{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Transaction{}, err
	}

	return t, nil
}

// Get fetches a transaction by identifier.
func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (Transaction, error) {
	row := s.db.QueryRow(ctx, `SELECT id, account_id, amount, status, timeout_seconds, created_at, updated_at
        FROM transactions WHERE id = $1`, id)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrNotFound
		}
		return Transaction{}, err
	}
	return t, nil
}

// Confirm applies a pending transaction to its account. The transaction row
// is locked first, then the account row; the reservation landscape is
// re-validated under both locks because it may have shifted since creation.
func (s *PostgresStore) Confirm(ctx context.Context, id uuid.UUID) (Transaction, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Transaction{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	t, err := scanTransaction(tx.QueryRow(ctx, selectTransactionForUpdate, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrNotFound
		}
		return Transaction{}, err
	}

	if t.Status.Terminal() {
		return t, ErrInvalidStatus
	}

	now := time.Now().UTC()
	if now.After(t.Deadline()) {
		// The expiry transition commits even though the confirmation is
		// refused; the account is untouched.
		if _, err := tx.Exec(ctx, `UPDATE transactions SET status = $1, updated_at = $2 WHERE id = $3`,
			StatusExpired, now, t.ID); err != nil {
			return Transaction{}, err
		}
		if err := tx.Commit(ctx); err != nil {
			return Transaction{}, err
		}
		t.Status = StatusExpired
		t.UpdatedAt = now
		return t, ErrExpired
	}

	var current, max int64
	if err := tx.QueryRow(ctx, selectAccountForUpdate, t.AccountID).Scan(&current, &max); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrAccountNotFound
		}
		return Transaction{}, err
	}

	switch {
	case t.Amount < 0:
		reserved, err := reservedAmount(ctx, tx, t.AccountID, true)
		if err != nil {
			return Transaction{}, err
		}
		// This transaction is still PENDING and part of the reserved sum;
		// exclude it before checking coverage.
		available := current - (reserved + t.Amount)
		if available < -t.Amount {
			return t, ErrInsufficientFunds
		}
	case t.Amount > 0:
		if current+t.Amount > max {
			return t, ErrMaxBalanceExceeded
		}
	}

	newBalance := current + t.Amount
	if newBalance < 0 {
		return t, ErrInconsistentBalance
	}

	if _, err := tx.Exec(ctx, `UPDATE accounts SET current_balance = $1 WHERE id = $2`, newBalance, t.AccountID); err != nil {
		return Transaction{}, err
	}
	if _, err := tx.Exec(ctx, `UPDATE transactions SET status = $1, updated_at = $2 WHERE id = $3`,
		StatusConfirmed, now, t.ID); err != nil {
		return Transaction{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Transaction{}, err
	}

	t.Status = StatusConfirmed
	t.UpdatedAt = now
	return t, nil
}

// Cancel moves a pending transaction to CANCELED. Terminal transactions are
// never rewritten.
func (s *PostgresStore) Cancel(ctx context.Context, id uuid.UUID) (Transaction, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Transaction{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	t, err := scanTransaction(tx.QueryRow(ctx, selectTransactionForUpdate, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrNotFound
		}
		return Transaction{}, err
	}

	if t.Status.Terminal() {
		return t, ErrInvalidStatus
	}

	now := time.Now().UTC()
	if _, err := tx.Exec(ctx, `UPDATE transactions SET status = $1, updated_at = $2 WHERE id = $3`,
		StatusCanceled, now, t.ID); err != nil {
		return Transaction{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Transaction{}, err
	}

	t.Status = StatusCanceled
	t.UpdatedAt = now
	return t, nil
}

// ListByAccount returns the requested page of an account's transactions plus
// the total count. page is 1-based.
func (s *PostgresStore) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, page int) ([]Transaction, int64, error) {
	if limit < 1 {
		limit = defaultPageSize
	}
	if page < 1 {
		page = 1
	}

	rows, err := s.db.Query(ctx, `SELECT id, account_id, amount, status, timeout_seconds, created_at, updated_at
        FROM transactions WHERE account_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		accountID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE account_id = $1`, accountID).Scan(&total); err != nil {
		return nil, 0, err
	}

	return result, total, nil
}

// SweepExpired expires every stale pending transaction with one set-based
// update, bypassing the per-row locking path used by create and confirm.
func (s *PostgresStore) SweepExpired(ctx context.Context) (int64, error) {
	cmd, err := s.db.Exec(ctx, `UPDATE transactions
        SET status = 'EXPIRED', updated_at = NOW()
        WHERE status = 'PENDING' AND created_at < NOW() - INTERVAL '1 second' * timeout_seconds`)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

// reservedAmount sums the absolute magnitude of PENDING transactions of one
// sign for the account. It must run inside the caller's database transaction
// so the sum is consistent with the rows the caller has locked.
func reservedAmount(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, debit bool) (int64, error) {
	query := reservedCreditQuery
	if debit {
		query = reservedDebitQuery
	}
	var sum int64
	if err := tx.QueryRow(ctx, query, accountID).Scan(&sum); err != nil {
		return 0, err
	}
	if debit {
		if sum < 0 {
			return -sum, nil
		}
		return 0, nil
	}
	if sum > 0 {
		return sum, nil
	}
	return 0, nil
}

func scanTransaction(row pgx.Row) (Transaction, error) {
	var t Transaction
	var status string
	var createdAt, updatedAt time.Time
	if err := row.Scan(&t.ID, &t.AccountID, &t.Amount, &status, &t.TimeoutSeconds, &createdAt, &updatedAt); err != nil {
		return Transaction{}, err
	}
	t.Status = Status(status)
	t.CreatedAt = createdAt.UTC()
	t.UpdatedAt = updatedAt.UTC()
	return t, nil
}
