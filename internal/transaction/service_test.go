package transaction

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/balance-api/balance_api/internal/logging"
)

func newTestService() (*Service, *MemoryStore) {
	store := NewMemoryStore()
	return NewService(store, logging.Discard()), store
}

func TestCreateRequiresPositiveTimeout(t *testing.T) {
	svc, store := newTestService()
	accountID := uuid.New()
	SeedAccount(store, accountID, 100, 200)

	_, err := svc.Create(context.Background(), CreateInput{AccountID: accountID, Amount: 10, TimeoutSeconds: 0})
	if !errors.Is(err, ErrInvalidTimeout) {
		t.Fatalf("expected ErrInvalidTimeout, got %v", err)
	}
}

func TestCreateUnknownAccount(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Create(context.Background(), CreateInput{AccountID: uuid.New(), Amount: 10, TimeoutSeconds: 300})
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestDebitReservationAgainstAvailableBalance(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	accountID := uuid.New()
	SeedAccount(store, accountID, 100, 200)

	// A debit of the full balance reserves everything.
	first, err := svc.Create(ctx, CreateInput{AccountID: accountID, Amount: -100, TimeoutSeconds: 300})
	if err != nil {
		t.Fatalf("first debit: %v", err)
	}
	if first.Status != StatusPending {
		t.Fatalf("expected PENDING, got %s", first.Status)
	}

	// Any further debit must be refused while the reservation is open.
	if _, err := svc.Create(ctx, CreateInput{AccountID: accountID, Amount: -1, TimeoutSeconds: 300}); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	// Canceling releases the reservation without touching the balance.
	if _, err := svc.Cancel(ctx, first.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := svc.Create(ctx, CreateInput{AccountID: accountID, Amount: -100, TimeoutSeconds: 300}); err != nil {
		t.Fatalf("debit after cancel: %v", err)
	}
}

func TestCreditReservationAgainstMaxBalance(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	accountID := uuid.New()
	SeedAccount(store, accountID, 100, 200)

	if _, err := svc.Create(ctx, CreateInput{AccountID: accountID, Amount: 60, TimeoutSeconds: 300}); err != nil {
		t.Fatalf("first credit: %v", err)
	}

	// 100 + 50 + 60 reserved > 200.
	if _, err := svc.Create(ctx, CreateInput{AccountID: accountID, Amount: 50, TimeoutSeconds: 300}); !errors.Is(err, ErrMaxBalanceExceeded) {
		t.Fatalf("expected ErrMaxBalanceExceeded, got %v", err)
	}

	// 100 + 40 + 60 reserved == 200 is allowed.
	if _, err := svc.Create(ctx, CreateInput{AccountID: accountID, Amount: 40, TimeoutSeconds: 300}); err != nil {
		t.Fatalf("credit at the ceiling: %v", err)
	}
}

func TestZeroAmountSkipsReservationChecks(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	accountID := uuid.New()
	SeedAccount(store, accountID, 0, 0)

	created, err := svc.Create(ctx, CreateInput{AccountID: accountID, Amount: 0, TimeoutSeconds: 300})
	if err != nil {
		t.Fatalf("zero-amount create: %v", err)
	}

	confirmed, err := svc.Confirm(ctx, created.ID)
	if err != nil {
		t.Fatalf("zero-amount confirm: %v", err)
	}
	if confirmed.Status != StatusConfirmed {
		t.Fatalf("expected CONFIRMED, got %s", confirmed.Status)
	}
	if balance := accountBalance(t, store, accountID); balance != 0 {
		t.Fatalf("expected balance 0, got %d", balance)
	}
}

func TestConfirmAppliesDeltaOnce(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	accountID := uuid.New()
	SeedAccount(store, accountID, 100, 200)

	created, err := svc.Create(ctx, CreateInput{AccountID: accountID, Amount: 80, TimeoutSeconds: 300})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	confirmed, err := svc.Confirm(ctx, created.ID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.Status != StatusConfirmed {
		t.Fatalf("expected CONFIRMED, got %s", confirmed.Status)
	}
	if balance := accountBalance(t, store, accountID); balance != 180 {
		t.Fatalf("expected balance 180, got %d", balance)
	}
	if !confirmed.UpdatedAt.After(created.UpdatedAt) && !confirmed.UpdatedAt.Equal(created.UpdatedAt) {
		t.Fatalf("expected updated_at refreshed")
	}

	// Double confirm is refused and the balance stays put.
	if _, err := svc.Confirm(ctx, created.ID); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if balance := accountBalance(t, store, accountID); balance != 180 {
		t.Fatalf("balance changed by double confirm: %d", balance)
	}
}

func TestInterleavedReservations(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	accountID := uuid.New()
	SeedAccount(store, accountID, 100, 200)

	if _, err := svc.Create(ctx, CreateInput{AccountID: accountID, Amount: -150, TimeoutSeconds: 300}); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected refusal of -150, got %v", err)
	}

	credit, err := svc.Create(ctx, CreateInput{AccountID: accountID, Amount: 80, TimeoutSeconds: 300})
	if err != nil {
		t.Fatalf("create +80: %v", err)
	}
	if _, err := svc.Confirm(ctx, credit.ID); err != nil {
		t.Fatalf("confirm +80: %v", err)
	}
	if balance := accountBalance(t, store, accountID); balance != 180 {
		t.Fatalf("expected 180, got %d", balance)
	}

	if _, err := svc.Create(ctx, CreateInput{AccountID: accountID, Amount: -181, TimeoutSeconds: 300}); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected refusal of -181, got %v", err)
	}

	debit, err := svc.Create(ctx, CreateInput{AccountID: accountID, Amount: -180, TimeoutSeconds: 300})
	if err != nil {
		t.Fatalf("create -180: %v", err)
	}
	if _, err := svc.Confirm(ctx, debit.ID); err != nil {
		t.Fatalf("confirm -180: %v", err)
	}
	if balance := accountBalance(t, store, accountID); balance != 0 {
		t.Fatalf("expected 0, got %d", balance)
	}
}

func TestConcurrentDebitsOnlyOneSucceeds(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	accountID := uuid.New()
	SeedAccount(store, accountID, 100, 200)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(ctx, CreateInput{AccountID: accountID, Amount: -100, TimeoutSeconds: 300})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var accepted, refused int
	for err := range results {
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, ErrInsufficientFunds):
			refused++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if accepted != 1 || refused != 1 {
		t.Fatalf("expected exactly one acceptance, got accepted=%d refused=%d", accepted, refused)
	}
}

func TestConfirmPastDeadlineExpires(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	accountID := uuid.New()
	SeedAccount(store, accountID, 100, 200)

	created, err := svc.Create(ctx, CreateInput{AccountID: accountID, Amount: 50, TimeoutSeconds: 30})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	Backdate(store, created.ID, time.Minute)

	expired, err := svc.Confirm(ctx, created.ID)
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	if expired.Status != StatusExpired {
		t.Fatalf("expected EXPIRED, got %s", expired.Status)
	}
	if balance := accountBalance(t, store, accountID); balance != 100 {
		t.Fatalf("expiry touched the balance: %d", balance)
	}

	// The expired status is terminal.
	if _, err := svc.Confirm(ctx, created.ID); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus after expiry, got %v", err)
	}
}

func TestCancelIsTerminal(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	accountID := uuid.New()
	SeedAccount(store, accountID, 100, 200)

	created, err := svc.Create(ctx, CreateInput{AccountID: accountID, Amount: -40, TimeoutSeconds: 300})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	canceled, err := svc.Cancel(ctx, created.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if canceled.Status != StatusCanceled {
		t.Fatalf("expected CANCELED, got %s", canceled.Status)
	}
	if balance := accountBalance(t, store, accountID); balance != 100 {
		t.Fatalf("cancel touched the balance: %d", balance)
	}

	if _, err := svc.Cancel(ctx, created.ID); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus on second cancel, got %v", err)
	}
	if _, err := svc.Cancel(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSweepExpiredIsIdempotent(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	accountID := uuid.New()
	SeedAccount(store, accountID, 100, 200)

	stale, err := svc.Create(ctx, CreateInput{AccountID: accountID, Amount: -10, TimeoutSeconds: 30})
	if err != nil {
		t.Fatalf("create stale: %v", err)
	}
	fresh, err := svc.Create(ctx, CreateInput{AccountID: accountID, Amount: -20, TimeoutSeconds: 3600})
	if err != nil {
		t.Fatalf("create fresh: %v", err)
	}
	Backdate(store, stale.ID, time.Minute)

	count, err := svc.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 expired row, got %d", count)
	}

	got, err := svc.Get(ctx, stale.ID)
	if err != nil {
		t.Fatalf("get stale: %v", err)
	}
	if got.Status != StatusExpired {
		t.Fatalf("expected EXPIRED, got %s", got.Status)
	}
	untouched, err := svc.Get(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("get fresh: %v", err)
	}
	if untouched.Status != StatusPending {
		t.Fatalf("sweep touched a fresh transaction: %s", untouched.Status)
	}

	// A second sweep finds nothing new.
	count, err = svc.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 on second sweep, got %d", count)
	}
}

func TestListByAccountPagination(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	accountID := uuid.New()
	SeedAccount(store, accountID, 0, 1_000)

	ids := make([]uuid.UUID, 0, 5)
	for i := 0; i < 5; i++ {
		created, err := svc.Create(ctx, CreateInput{AccountID: accountID, Amount: int64(i + 1), TimeoutSeconds: 300})
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		// Spread creation times so the descending order is deterministic.
		Backdate(store, created.ID, time.Duration(5-i)*time.Minute)
		ids = append(ids, created.ID)
	}

	page1, total, err := svc.ListByAccount(ctx, accountID, 2, 1)
	if err != nil {
		t.Fatalf("list page 1: %v", err)
	}
	if total != 5 {
		t.Fatalf("expected total 5, got %d", total)
	}
	if len(page1) != 2 {
		t.Fatalf("expected 2 items, got %d", len(page1))
	}
	if page1[0].ID != ids[4] || page1[1].ID != ids[3] {
		t.Fatalf("expected newest first")
	}

	page3, total, err := svc.ListByAccount(ctx, accountID, 2, 3)
	if err != nil {
		t.Fatalf("list page 3: %v", err)
	}
	if total != 5 || len(page3) != 1 {
		t.Fatalf("expected final page of 1, got %d (total %d)", len(page3), total)
	}

	empty, _, err := svc.ListByAccount(ctx, accountID, 2, 4)
	if err != nil {
		t.Fatalf("list page 4: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty page, got %d items", len(empty))
	}
}

func TestConfirmedSumMatchesBalance(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	accountID := uuid.New()
	const initial = int64(500)
	SeedAccount(store, accountID, initial, 2_000)

	amounts := []int64{200, -100, 300, -50, -250}
	var confirmedSum int64
	for _, amount := range amounts {
		created, err := svc.Create(ctx, CreateInput{AccountID: accountID, Amount: amount, TimeoutSeconds: 300})
		if err != nil {
			t.Fatalf("create %d: %v", amount, err)
		}
		if _, err := svc.Confirm(ctx, created.ID); err != nil {
			t.Fatalf("confirm %d: %v", amount, err)
		}
		confirmedSum += amount

		balance := accountBalance(t, store, accountID)
		if balance != initial+confirmedSum {
			t.Fatalf("balance %d does not match initial %d + confirmed %d", balance, initial, confirmedSum)
		}
		if balance < 0 || balance > 2_000 {
			t.Fatalf("balance %d escaped [0, max]", balance)
		}
	}
}

func accountBalance(t *testing.T, store *MemoryStore, id uuid.UUID) int64 {
	t.Helper()
	acct, err := store.Accounts().Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	return acct.CurrentBalance
}
