// Package ledger maintains the canonical pairwise balances. All balance
// mutation in the system goes through a Ledger; services never write the
// balance table directly.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/burakozf/splitledger/internal/models"
	"github.com/burakozf/splitledger/internal/repository"
)

// maxRetries bounds optimistic-conflict retries before surfacing ErrConflict.
const maxRetries = 3

type Ledger struct {
	store     repository.Store
	locks     pairLocks
	threshold decimal.Decimal // auto-settle threshold
}

// New builds a Ledger over store. Balances whose magnitude drops to at most
// autoSettleThreshold after a settlement are clamped to exactly zero.
func New(store repository.Store, autoSettleThreshold decimal.Decimal) *Ledger {
	return &Ledger{store: store, threshold: autoSettleThreshold}
}

// Threshold returns the auto-settle threshold the ledger was built with.
func (l *Ledger) Threshold() decimal.Decimal { return l.threshold }

// LockPair takes the pair's in-process lock. Callers that mutate a balance
// inside a store transaction must hold this lock before the transaction
// begins: taking it the other way round deadlocks against the standalone
// Apply methods when the store runs on a single connection.
func (l *Ledger) LockPair(key string) (unlock func()) {
	return l.locks.lock(key)
}

// LockPairs takes the locks for every distinct key in ascending order, so
// two callers locking overlapping sets never deadlock. The returned func
// releases them in reverse order.
func (l *Ledger) LockPairs(keys []string) (unlock func()) {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	unlocks := make([]func(), 0, len(sorted))
	prev := ""
	for _, key := range sorted {
		if key == prev {
			continue
		}
		prev = key
		unlocks = append(unlocks, l.locks.lock(key))
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}

// ApplyObligation records that owedBy owes amount to paidBy. A self-pair is
// a no-op. Updates to the same pair are serialized; different pairs proceed
// independently.
func (l *Ledger) ApplyObligation(ctx context.Context, paidBy, owedBy int64, amount decimal.Decimal) error {
	if paidBy == owedBy {
		return nil
	}
	return l.apply(ctx, l.store.Balances(), paidBy, owedBy, amount.Neg(), false)
}

// ReverseObligation undoes a previously applied obligation, e.g. when an
// expense is cancelled.
func (l *Ledger) ReverseObligation(ctx context.Context, paidBy, owedBy int64, amount decimal.Decimal) error {
	if paidBy == owedBy {
		return nil
	}
	return l.apply(ctx, l.store.Balances(), paidBy, owedBy, amount, false)
}

// ApplyObligationIn is ApplyObligation against a caller-supplied balances
// repository, for use inside a store transaction. The caller must hold the
// pair lock (LockPair or LockPairs) from before the transaction began.
func (l *Ledger) ApplyObligationIn(ctx context.Context, balances repository.Balances, paidBy, owedBy int64, amount decimal.Decimal) error {
	if paidBy == owedBy {
		return nil
	}
	return l.applyLocked(ctx, balances, paidBy, owedBy, amount.Neg(), false)
}

// ReverseObligationIn is ReverseObligation inside a store transaction; the
// caller must hold the pair lock from before the transaction began.
func (l *Ledger) ReverseObligationIn(ctx context.Context, balances repository.Balances, paidBy, owedBy int64, amount decimal.Decimal) error {
	if paidBy == owedBy {
		return nil
	}
	return l.applyLocked(ctx, balances, paidBy, owedBy, amount, false)
}

// ApplySettlement reduces payerID's debt toward payeeID by amount, using the
// given balances repository so the caller can run it inside a store
// transaction together with the settlement record insert. Concurrent callers
// must hold the pair lock from before the transaction began. Balances within
// the auto-settle threshold afterwards are clamped to exactly zero.
func (l *Ledger) ApplySettlement(ctx context.Context, balances repository.Balances, payerID, payeeID int64, amount decimal.Decimal) error {
	return l.applyLocked(ctx, balances, payerID, payeeID, amount.Neg(), true)
}

// apply takes the pair lock, then mutates. Only for standalone use outside a
// store transaction.
func (l *Ledger) apply(ctx context.Context, balances repository.Balances, actor, other int64, delta decimal.Decimal, settling bool) error {
	key, err := models.PairKey(actor, other)
	if err != nil {
		return err
	}
	unlock := l.locks.lock(key)
	defer unlock()
	return l.applyLocked(ctx, balances, actor, other, delta, settling)
}

// applyLocked adds a delta to the pair's balance. delta is expressed from
// the perspective of the low user when actor == userLow; when the actor is
// the high user the sign flips, keeping the stored amount canonical. actor
// is the paying side in both the obligation and the settlement direction.
func (l *Ledger) applyLocked(ctx context.Context, balances repository.Balances, actor, other int64, delta decimal.Decimal, settling bool) error {
	key, err := models.PairKey(actor, other)
	if err != nil {
		return err
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		b, err := balances.Get(ctx, key)
		created := false
		if errors.Is(err, repository.ErrNotFound) {
			b, err = models.NewBalance(actor, other)
			created = true
		}
		if err != nil {
			return fmt.Errorf("load balance %s: %w", key, err)
		}

		if actor == b.UserLow {
			b.Add(delta)
		} else {
			b.Add(delta.Neg())
		}
		if settling && b.Amount.Abs().LessThanOrEqual(l.threshold) {
			b.Amount = decimal.Zero
		}

		if created {
			err = balances.Create(ctx, b)
		} else {
			err = balances.Update(ctx, b)
		}
		if errors.Is(err, repository.ErrConflict) {
			slog.Debug("balance update conflict, retrying", "pair", key, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return fmt.Errorf("save balance %s: %w", key, err)
		}
		return nil
	}
	return fmt.Errorf("balance %s: %w", key, repository.ErrConflict)
}

// Balance returns the pair balance from userA's perspective: positive means
// userA owes userB. A missing record reads as zero, never as an error.
func (l *Ledger) Balance(ctx context.Context, userA, userB int64) (decimal.Decimal, error) {
	return l.BalanceIn(ctx, l.store.Balances(), userA, userB)
}

// BalanceIn is Balance against a caller-supplied balances repository, so
// validation reads can run inside the same store transaction as the write
// they guard.
func (l *Ledger) BalanceIn(ctx context.Context, balances repository.Balances, userA, userB int64) (decimal.Decimal, error) {
	key, err := models.PairKey(userA, userB)
	if err != nil {
		return decimal.Zero, err
	}
	b, err := balances.Get(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("load balance %s: %w", key, err)
	}
	return b.AmountFor(userA)
}

// ActiveBalances lists the pairs touching userID whose magnitude exceeds the
// settled tolerance.
func (l *Ledger) ActiveBalances(ctx context.Context, userID int64) ([]models.Balance, error) {
	return l.store.Balances().ListByUser(ctx, userID, models.SettledTolerance)
}

// NetPositions computes each user's net amount across balances whose both
// endpoints are inside userIDs. Positive means the user is a net creditor.
// It also returns how many balance rows contributed, which callers report
// as the pre-optimization transaction count. The read is a snapshot: it is
// consistent per pair, not across pairs.
func (l *Ledger) NetPositions(ctx context.Context, userIDs []int64) (map[int64]decimal.Decimal, int, error) {
	balances, err := l.store.Balances().ListByUserSet(ctx, userIDs)
	if err != nil {
		return nil, 0, fmt.Errorf("list balances: %w", err)
	}

	positions := make(map[int64]decimal.Decimal, len(userIDs))
	for _, id := range userIDs {
		positions[id] = decimal.Zero
	}
	for _, b := range balances {
		if b.Amount.IsZero() {
			continue
		}
		// Positive amount: low owes high, so low's position drops.
		positions[b.UserLow] = positions[b.UserLow].Sub(b.Amount)
		positions[b.UserHigh] = positions[b.UserHigh].Add(b.Amount)
	}
	return positions, len(balances), nil
}
