package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/burakozf/splitledger/internal/config"
	"github.com/burakozf/splitledger/internal/ledger"
	"github.com/burakozf/splitledger/internal/models"
	"github.com/burakozf/splitledger/internal/repository"
	"github.com/burakozf/splitledger/internal/repository/sqlite"
	"github.com/burakozf/splitledger/internal/splitter"
)

func participant(id int64) splitter.Participant {
	return splitter.Participant{UserID: id}
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// stubDirectory resolves names from a fixed map; unknown users fall back to
// the generated placeholder name.
type stubDirectory struct {
	names map[int64]string
}

func (s stubDirectory) DisplayName(_ context.Context, userID int64) (string, error) {
	return s.names[userID], nil
}

type testEnv struct {
	store         repository.Store
	ldg           *ledger.Ledger
	cfg           config.Config
	dir           stubDirectory
	expenseSvc    *ExpenseService
	settlementSvc *SettlementService
	balanceSvc    *BalanceService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("sqlite.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	cfg := config.Config{
		MinSettlementAmount: d("0.01"),
		AutoSettleThreshold: d("0.01"),
		MinExpenseAmount:    d("0.01"),
		MaxExpenseAmount:    d("100000.00"),
		MaxParticipants:     20,
	}
	ldg := ledger.New(store, cfg.AutoSettleThreshold)
	dir := stubDirectory{names: map[int64]string{1: "Alice", 2: "Bob", 3: "Carol"}}

	return &testEnv{
		store:         store,
		ldg:           ldg,
		cfg:           cfg,
		dir:           dir,
		expenseSvc:    NewExpenseService(store, ldg, dir, nil, cfg),
		settlementSvc: NewSettlementService(store, ldg, dir, nil, cfg.MinSettlementAmount),
		balanceSvc:    NewBalanceService(store, ldg, dir),
	}
}

// conflictStore fails the next n transactions with repository.ErrConflict
// before delegating, mimicking a store that loses serialization races.
type conflictStore struct {
	repository.Store
	mu        sync.Mutex
	conflicts int
}

func (s *conflictStore) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	s.mu.Lock()
	if s.conflicts > 0 {
		s.conflicts--
		s.mu.Unlock()
		return fmt.Errorf("could not serialize access: %w", repository.ErrConflict)
	}
	s.mu.Unlock()
	return s.Store.WithinTx(ctx, fn)
}

// recordEqualExpense seeds a paid-by-payer EQUAL expense among the given
// participants and fails the test on error.
func (e *testEnv) recordEqualExpense(t *testing.T, payer int64, total string, participants ...int64) []ObligationView {
	t.Helper()
	req := ExpenseRequest{
		PaidBy:      payer,
		TotalAmount: d(total),
		SplitType:   models.SplitEqual,
		Description: "test expense",
	}
	for _, id := range participants {
		req.Participants = append(req.Participants, participant(id))
	}
	views, err := e.expenseSvc.RecordExpense(context.Background(), req, payer)
	if err != nil {
		t.Fatalf("RecordExpense() error = %v", err)
	}
	return views
}
