package services

import (
	"context"
	"errors"
	"testing"

	"github.com/burakozf/splitledger/internal/models"
	"github.com/burakozf/splitledger/internal/netting"
)

func TestGetPairBalance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.recordEqualExpense(t, 1, "90.00", 1, 2, 3)

	pb, err := env.balanceSvc.GetPairBalance(ctx, 2, 1)
	if err != nil {
		t.Fatalf("GetPairBalance() error = %v", err)
	}
	if !pb.Amount.Equal(d("30")) {
		t.Fatalf("amount = %s, want 30", pb.Amount)
	}
	if pb.Settled {
		t.Fatal("pair reported settled with 30 outstanding")
	}
	if pb.UserName != "Bob" || pb.OtherUserName != "Alice" {
		t.Fatalf("names = %q / %q, want Bob / Alice", pb.UserName, pb.OtherUserName)
	}
	if pb.Description != "Bob owes Alice 30.00" {
		t.Fatalf("description = %q", pb.Description)
	}

	// Same pair from the creditor's side mirrors the sign.
	mirror, err := env.balanceSvc.GetPairBalance(ctx, 1, 2)
	if err != nil {
		t.Fatalf("GetPairBalance() error = %v", err)
	}
	if !mirror.Amount.Equal(pb.Amount.Neg()) {
		t.Fatalf("mirror amount = %s, want %s", mirror.Amount, pb.Amount.Neg())
	}
}

func TestGetPairBalance_UnknownPairIsZero(t *testing.T) {
	env := newTestEnv(t)
	pb, err := env.balanceSvc.GetPairBalance(context.Background(), 50, 60)
	if err != nil {
		t.Fatalf("GetPairBalance() error = %v", err)
	}
	if !pb.Amount.IsZero() || !pb.Settled {
		t.Fatalf("unknown pair = %+v, want zero and settled", pb)
	}
}

func TestGetPairBalance_SameUser(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.balanceSvc.GetPairBalance(context.Background(), 7, 7); !errors.Is(err, models.ErrSameUser) {
		t.Fatalf("error = %v, want ErrSameUser", err)
	}
}

func TestGetUserBalances(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.recordEqualExpense(t, 1, "90.00", 1, 2, 3)
	env.recordEqualExpense(t, 2, "20.00", 1, 2)

	balances, err := env.balanceSvc.GetUserBalances(ctx, 1)
	if err != nil {
		t.Fatalf("GetUserBalances() error = %v", err)
	}
	if len(balances) != 2 {
		t.Fatalf("user 1 has %d active pairs, want 2", len(balances))
	}
	byOther := map[int64]PairBalance{}
	for _, b := range balances {
		byOther[b.OtherUserID] = b
	}
	// User 2 owes 30 minus the 10 user 1 owes back.
	if !byOther[2].Amount.Equal(d("-20.00")) {
		t.Errorf("balance with user 2 = %s, want -20.00", byOther[2].Amount)
	}
	if !byOther[3].Amount.Equal(d("-30.00")) {
		t.Errorf("balance with user 3 = %s, want -30.00", byOther[3].Amount)
	}
}

func TestGetSummary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.recordEqualExpense(t, 1, "90.00", 1, 2, 3)
	if _, err := env.settlementSvc.Create(ctx, SettlementRequest{
		PayerID: 2, PayeeID: 1, Amount: d("30.00"),
	}, 2); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	sum, err := env.balanceSvc.GetSummary(ctx, 1)
	if err != nil {
		t.Fatalf("GetSummary() error = %v", err)
	}
	if !sum.TotalOwedToMe.Equal(d("30.00")) {
		t.Errorf("TotalOwedToMe = %s, want 30.00", sum.TotalOwedToMe)
	}
	if !sum.TotalIOwe.IsZero() {
		t.Errorf("TotalIOwe = %s, want 0", sum.TotalIOwe)
	}
	if !sum.NetPosition.Equal(d("30.00")) {
		t.Errorf("NetPosition = %s, want 30.00", sum.NetPosition)
	}
	if sum.ActivePairs != 1 {
		t.Errorf("ActivePairs = %d, want 1", sum.ActivePairs)
	}
	if !sum.TotalReceived.Equal(d("30.00")) || !sum.TotalPaid.IsZero() {
		t.Errorf("settlement totals = paid %s / received %s, want 0 / 30.00", sum.TotalPaid, sum.TotalReceived)
	}

	debtorSum, err := env.balanceSvc.GetSummary(ctx, 3)
	if err != nil {
		t.Fatalf("GetSummary() error = %v", err)
	}
	if !debtorSum.TotalIOwe.Equal(d("30.00")) || !debtorSum.NetPosition.Equal(d("-30.00")) {
		t.Errorf("debtor summary = %+v, want 30.00 owed and -30.00 net", debtorSum)
	}
}

func TestOptimize(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Alice covers 90 for the trio, Bob covers 30. Nets: Alice +50,
	// Bob -10, Carol -40.
	env.recordEqualExpense(t, 1, "90.00", 1, 2, 3)
	env.recordEqualExpense(t, 2, "30.00", 1, 2, 3)

	opt, err := env.balanceSvc.Optimize(ctx, []int64{1, 2, 3})
	if err != nil {
		t.Fatalf("Optimize() error = %v", err)
	}
	if opt.OptimizedTransactionCount != 2 {
		t.Fatalf("got %d suggested payments, want 2: %+v", opt.OptimizedTransactionCount, opt.SuggestedPayments)
	}
	first, second := opt.SuggestedPayments[0], opt.SuggestedPayments[1]
	if first.FromUserID != 3 || first.ToUserID != 1 || !first.Amount.Equal(d("40.00")) {
		t.Errorf("first payment = %+v, want Carol -> Alice 40.00", first)
	}
	if second.FromUserID != 2 || second.ToUserID != 1 || !second.Amount.Equal(d("10.00")) {
		t.Errorf("second payment = %+v, want Bob -> Alice 10.00", second)
	}
	if first.FromName != "Carol" || first.ToName != "Alice" {
		t.Errorf("names = %q -> %q, want Carol -> Alice", first.FromName, first.ToName)
	}
	if !opt.TotalAmount.Equal(d("50.00")) {
		t.Errorf("TotalAmount = %s, want 50.00", opt.TotalAmount)
	}
	// All three pairs carry balances before optimization.
	if opt.OriginalTransactionCount != 3 {
		t.Errorf("OriginalTransactionCount = %d, want 3", opt.OriginalTransactionCount)
	}
	if opt.Summary != "Reduced from 3 potential transactions to 2 optimized payments" {
		t.Errorf("summary = %q", opt.Summary)
	}
}

func TestOptimize_TooFewUsers(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.balanceSvc.Optimize(context.Background(), []int64{1, 2}); !errors.Is(err, netting.ErrTooFewUsers) {
		t.Fatalf("error = %v, want ErrTooFewUsers", err)
	}
}

func TestStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.recordEqualExpense(t, 1, "90.00", 1, 2, 3)
	if _, err := env.settlementSvc.Create(ctx, SettlementRequest{
		PayerID: 2, PayeeID: 1, Amount: d("30.00"),
	}, 2); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	stats, err := env.balanceSvc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	// The 1-2 pair settled to zero; only 1-3 remains active.
	if stats.ActiveBalances != 1 {
		t.Errorf("ActiveBalances = %d, want 1", stats.ActiveBalances)
	}
	if !stats.TotalOutstanding.Equal(d("30.00")) {
		t.Errorf("TotalOutstanding = %s, want 30.00", stats.TotalOutstanding)
	}
	if stats.SettlementsDone != 1 {
		t.Errorf("SettlementsDone = %d, want 1", stats.SettlementsDone)
	}
	if !stats.SettlementVolume.Equal(d("30.00")) {
		t.Errorf("SettlementVolume = %s, want 30.00", stats.SettlementVolume)
	}
}
