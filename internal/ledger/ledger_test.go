package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/burakozf/splitledger/internal/models"
	"github.com/burakozf/splitledger/internal/repository"
	"github.com/burakozf/splitledger/internal/repository/sqlite"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestLedger(t *testing.T) (*Ledger, repository.Store) {
	t.Helper()
	store, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("sqlite.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return New(store, d("0.01")), store
}

func TestApplyObligation_Direction(t *testing.T) {
	ldg, _ := newTestLedger(t)
	ctx := context.Background()

	// User 1 paid, user 2 owes 30.
	if err := ldg.ApplyObligation(ctx, 1, 2, d("30.00")); err != nil {
		t.Fatalf("ApplyObligation() error = %v", err)
	}

	fromDebtor, err := ldg.Balance(ctx, 2, 1)
	if err != nil {
		t.Fatalf("Balance(2,1) error = %v", err)
	}
	if !fromDebtor.Equal(d("30.00")) {
		t.Fatalf("Balance(2,1) = %s, want 30.00", fromDebtor)
	}
	fromCreditor, err := ldg.Balance(ctx, 1, 2)
	if err != nil {
		t.Fatalf("Balance(1,2) error = %v", err)
	}
	if !fromCreditor.Equal(fromDebtor.Neg()) {
		t.Fatalf("perspectives not mirrored: %s vs %s", fromCreditor, fromDebtor)
	}
}

func TestApplyObligation_ArgumentOrderCanonical(t *testing.T) {
	ldg, _ := newTestLedger(t)
	ctx := context.Background()

	// The same debt recorded from either argument order accumulates on one
	// canonical pair row.
	if err := ldg.ApplyObligation(ctx, 7, 3, d("10.00")); err != nil {
		t.Fatalf("ApplyObligation() error = %v", err)
	}
	if err := ldg.ApplyObligation(ctx, 7, 3, d("5.00")); err != nil {
		t.Fatalf("ApplyObligation() error = %v", err)
	}
	owed, err := ldg.Balance(ctx, 3, 7)
	if err != nil {
		t.Fatalf("Balance() error = %v", err)
	}
	if !owed.Equal(d("15.00")) {
		t.Fatalf("Balance(3,7) = %s, want 15.00", owed)
	}
}

func TestApplyObligation_SelfIsNoop(t *testing.T) {
	ldg, store := newTestLedger(t)
	ctx := context.Background()

	if err := ldg.ApplyObligation(ctx, 5, 5, d("10.00")); err != nil {
		t.Fatalf("ApplyObligation() error = %v", err)
	}
	balances, err := store.Balances().ListByUser(ctx, 5, decimal.Zero)
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(balances) != 0 {
		t.Fatalf("self obligation created %d balance rows", len(balances))
	}
}

func TestApplySettlement_ReducesDebt(t *testing.T) {
	ldg, store := newTestLedger(t)
	ctx := context.Background()

	if err := ldg.ApplyObligation(ctx, 1, 2, d("30.00")); err != nil {
		t.Fatalf("ApplyObligation() error = %v", err)
	}
	if err := ldg.ApplySettlement(ctx, store.Balances(), 2, 1, d("12.50")); err != nil {
		t.Fatalf("ApplySettlement() error = %v", err)
	}
	owed, err := ldg.Balance(ctx, 2, 1)
	if err != nil {
		t.Fatalf("Balance() error = %v", err)
	}
	if !owed.Equal(d("17.50")) {
		t.Fatalf("Balance(2,1) = %s, want 17.50", owed)
	}
}

func TestApplySettlement_AutoSettleClampsToZero(t *testing.T) {
	ldg, store := newTestLedger(t)
	ctx := context.Background()

	if err := ldg.ApplyObligation(ctx, 1, 2, d("30.00")); err != nil {
		t.Fatalf("ApplyObligation() error = %v", err)
	}
	// Pay all but one cent; the residue is within the auto-settle threshold
	// and must clamp to exactly zero.
	if err := ldg.ApplySettlement(ctx, store.Balances(), 2, 1, d("29.99")); err != nil {
		t.Fatalf("ApplySettlement() error = %v", err)
	}
	key, _ := models.PairKey(1, 2)
	b, err := store.Balances().Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !b.Amount.IsZero() {
		t.Fatalf("amount = %s, want exactly 0", b.Amount)
	}
}

func TestReverseObligation_RestoresBalance(t *testing.T) {
	ldg, _ := newTestLedger(t)
	ctx := context.Background()

	if err := ldg.ApplyObligation(ctx, 1, 2, d("42.00")); err != nil {
		t.Fatalf("ApplyObligation() error = %v", err)
	}
	if err := ldg.ReverseObligation(ctx, 1, 2, d("42.00")); err != nil {
		t.Fatalf("ReverseObligation() error = %v", err)
	}
	owed, err := ldg.Balance(ctx, 2, 1)
	if err != nil {
		t.Fatalf("Balance() error = %v", err)
	}
	if !owed.IsZero() {
		t.Fatalf("Balance(2,1) = %s after reversal, want 0", owed)
	}
}

func TestBalance_MissingPairReadsZero(t *testing.T) {
	ldg, _ := newTestLedger(t)
	owed, err := ldg.Balance(context.Background(), 100, 200)
	if err != nil {
		t.Fatalf("Balance() error = %v", err)
	}
	if !owed.IsZero() {
		t.Fatalf("Balance() = %s for unknown pair, want 0", owed)
	}
}

func TestBalance_SameUser(t *testing.T) {
	ldg, _ := newTestLedger(t)
	if _, err := ldg.Balance(context.Background(), 4, 4); !errors.Is(err, models.ErrSameUser) {
		t.Fatalf("error = %v, want ErrSameUser", err)
	}
}

func TestActiveBalances_FiltersSettledPairs(t *testing.T) {
	ldg, _ := newTestLedger(t)
	ctx := context.Background()

	if err := ldg.ApplyObligation(ctx, 1, 2, d("5.00")); err != nil {
		t.Fatalf("ApplyObligation() error = %v", err)
	}
	if err := ldg.ApplyObligation(ctx, 1, 3, d("0.005")); err != nil {
		t.Fatalf("ApplyObligation() error = %v", err)
	}

	active, err := ldg.ActiveBalances(ctx, 1)
	if err != nil {
		t.Fatalf("ActiveBalances() error = %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("got %d active pairs, want 1", len(active))
	}
	wantKey, _ := models.PairKey(1, 2)
	if active[0].PairKey != wantKey {
		t.Fatalf("active pair = %s, want %s", active[0].PairKey, wantKey)
	}
}

func TestNetPositions(t *testing.T) {
	ldg, _ := newTestLedger(t)
	ctx := context.Background()

	// User 1 covered 30 for user 2 and 20 for user 3.
	if err := ldg.ApplyObligation(ctx, 1, 2, d("30.00")); err != nil {
		t.Fatalf("ApplyObligation() error = %v", err)
	}
	if err := ldg.ApplyObligation(ctx, 1, 3, d("20.00")); err != nil {
		t.Fatalf("ApplyObligation() error = %v", err)
	}

	positions, rows, err := ldg.NetPositions(ctx, []int64{1, 2, 3})
	if err != nil {
		t.Fatalf("NetPositions() error = %v", err)
	}
	if rows != 2 {
		t.Fatalf("contributing rows = %d, want 2", rows)
	}
	want := map[int64]string{1: "50.00", 2: "-30.00", 3: "-20.00"}
	for id, w := range want {
		if !positions[id].Equal(d(w)) {
			t.Errorf("position[%d] = %s, want %s", id, positions[id], w)
		}
	}
}

func TestNetPositions_IgnoresOutsidePairs(t *testing.T) {
	ldg, _ := newTestLedger(t)
	ctx := context.Background()

	if err := ldg.ApplyObligation(ctx, 1, 2, d("30.00")); err != nil {
		t.Fatalf("ApplyObligation() error = %v", err)
	}
	// Pair 1-9 has one endpoint outside the group and must not contribute.
	if err := ldg.ApplyObligation(ctx, 1, 9, d("99.00")); err != nil {
		t.Fatalf("ApplyObligation() error = %v", err)
	}

	positions, rows, err := ldg.NetPositions(ctx, []int64{1, 2, 3})
	if err != nil {
		t.Fatalf("NetPositions() error = %v", err)
	}
	if rows != 1 {
		t.Fatalf("contributing rows = %d, want 1", rows)
	}
	if !positions[1].Equal(d("30.00")) {
		t.Fatalf("position[1] = %s, want 30.00", positions[1])
	}
}

func TestApplyObligation_ConcurrentSamePair(t *testing.T) {
	ldg, _ := newTestLedger(t)
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- ldg.ApplyObligation(ctx, 1, 2, d("1.00"))
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent ApplyObligation() error = %v", err)
		}
	}

	owed, err := ldg.Balance(ctx, 2, 1)
	if err != nil {
		t.Fatalf("Balance() error = %v", err)
	}
	if !owed.Equal(d("20.00")) {
		t.Fatalf("Balance(2,1) = %s after %d concurrent updates, want 20.00", owed, workers)
	}
}

func TestApplyObligationIn_CommitsWithTx(t *testing.T) {
	ldg, store := newTestLedger(t)
	ctx := context.Background()

	unlock := ldg.LockPair("1_2")
	err := store.WithinTx(ctx, func(tx repository.Store) error {
		return ldg.ApplyObligationIn(ctx, tx.Balances(), 1, 2, d("30.00"))
	})
	unlock()
	if err != nil {
		t.Fatalf("WithinTx() error = %v", err)
	}

	owed, err := ldg.Balance(ctx, 2, 1)
	if err != nil {
		t.Fatalf("Balance() error = %v", err)
	}
	if !owed.Equal(d("30.00")) {
		t.Fatalf("Balance(2,1) = %s, want 30.00", owed)
	}
}

func TestApplyObligationIn_RollsBackWithTx(t *testing.T) {
	ldg, store := newTestLedger(t)
	ctx := context.Background()
	boom := errors.New("boom")

	unlock := ldg.LockPair("1_2")
	err := store.WithinTx(ctx, func(tx repository.Store) error {
		if err := ldg.ApplyObligationIn(ctx, tx.Balances(), 1, 2, d("30.00")); err != nil {
			return err
		}
		return boom
	})
	unlock()
	if !errors.Is(err, boom) {
		t.Fatalf("WithinTx() error = %v, want boom", err)
	}

	owed, err := ldg.Balance(ctx, 2, 1)
	if err != nil {
		t.Fatalf("Balance() error = %v", err)
	}
	if !owed.IsZero() {
		t.Fatalf("Balance(2,1) = %s after rollback, want 0", owed)
	}
}

func TestLockPairs_OverlappingSetsDoNotDeadlock(t *testing.T) {
	ldg, _ := newTestLedger(t)

	var wg sync.WaitGroup
	for _, keys := range [][]string{
		{"1_2", "1_3", "2_3"},
		{"2_3", "1_2"},
		{"1_3", "2_3", "1_2"},
	} {
		wg.Add(1)
		go func(keys []string) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				unlock := ldg.LockPairs(keys)
				unlock()
			}
		}(keys)
	}
	wg.Wait()
}

func TestLockPairs_DuplicateKeysLockOnce(t *testing.T) {
	ldg, _ := newTestLedger(t)

	// A duplicate key must not be acquired twice; that would self-deadlock.
	unlock := ldg.LockPairs([]string{"1_2", "1_2", "1_2"})
	unlock()

	unlock = ldg.LockPair("1_2")
	unlock()
}
