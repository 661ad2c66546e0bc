package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/burakozf/splitledger/internal/directory"
	"github.com/burakozf/splitledger/internal/ledger"
	"github.com/burakozf/splitledger/internal/metrics"
	"github.com/burakozf/splitledger/internal/models"
	"github.com/burakozf/splitledger/internal/netting"
	"github.com/burakozf/splitledger/internal/repository"
)

// BalanceService answers balance queries from a single user's perspective
// and runs the group payment optimizer.
type BalanceService struct {
	store repository.Store
	ldg   *ledger.Ledger
	dir   directory.Directory
}

func NewBalanceService(store repository.Store, ldg *ledger.Ledger, dir directory.Directory) *BalanceService {
	return &BalanceService{store: store, ldg: ldg, dir: dir}
}

// PairBalance is a pair balance viewed from UserID's side: a positive Amount
// means UserID owes the other user.
type PairBalance struct {
	UserID        int64           `json:"user_id"`
	UserName      string          `json:"user_name"`
	OtherUserID   int64           `json:"other_user_id"`
	OtherUserName string          `json:"other_user_name"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	Settled       bool            `json:"settled"`
}

// Summary aggregates one user's position across all active pairs plus
// completed settlement totals.
type Summary struct {
	UserID        int64           `json:"user_id"`
	UserName      string          `json:"user_name"`
	TotalOwedToMe decimal.Decimal `json:"total_owed_to_me"`
	TotalIOwe     decimal.Decimal `json:"total_i_owe"`
	NetPosition   decimal.Decimal `json:"net_position"`
	ActivePairs   int             `json:"active_pairs"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
	TotalReceived decimal.Decimal `json:"total_received"`
}

// Optimization is the optimizer result for a user group.
type Optimization struct {
	SuggestedPayments         []netting.Payment `json:"suggested_payments"`
	TotalAmount               decimal.Decimal   `json:"total_amount"`
	OriginalTransactionCount  int               `json:"original_transaction_count"`
	OptimizedTransactionCount int               `json:"optimized_transaction_count"`
	Summary                   string            `json:"summary"`
}

// ServiceStats reports aggregate counters across balances and settlements.
type ServiceStats struct {
	ActiveBalances      int64           `json:"active_balances"`
	TotalOutstanding    decimal.Decimal `json:"total_outstanding"`
	SettlementsDone     int64           `json:"settlements_done"`
	SettlementVolume    decimal.Decimal `json:"settlement_volume"`
	AutoSettleThreshold decimal.Decimal `json:"auto_settle_threshold"`
}

// GetPairBalance reports what stands between userA and userB from userA's
// side. A pair with no history reads as zero, not as an error.
func (s *BalanceService) GetPairBalance(ctx context.Context, userA, userB int64) (PairBalance, error) {
	if userA == userB {
		return PairBalance{}, models.ErrSameUser
	}
	amount, err := s.ldg.Balance(ctx, userA, userB)
	if err != nil {
		return PairBalance{}, err
	}
	nameA := directory.Resolve(ctx, s.dir, userA)
	nameB := directory.Resolve(ctx, s.dir, userB)
	return PairBalance{
		UserID:        userA,
		UserName:      nameA,
		OtherUserID:   userB,
		OtherUserName: nameB,
		Amount:        amount,
		Description:   pairDescription(nameA, nameB, amount),
		Settled:       amount.Abs().LessThan(models.SettledTolerance),
	}, nil
}

// GetUserBalances lists every active pair touching userID, each viewed from
// userID's side.
func (s *BalanceService) GetUserBalances(ctx context.Context, userID int64) ([]PairBalance, error) {
	balances, err := s.ldg.ActiveBalances(ctx, userID)
	if err != nil {
		return nil, err
	}
	name := directory.Resolve(ctx, s.dir, userID)
	out := make([]PairBalance, 0, len(balances))
	for _, b := range balances {
		other, err := b.OtherUser(userID)
		if err != nil {
			return nil, err
		}
		amount, err := b.AmountFor(userID)
		if err != nil {
			return nil, err
		}
		otherName := directory.Resolve(ctx, s.dir, other)
		out = append(out, PairBalance{
			UserID:        userID,
			UserName:      name,
			OtherUserID:   other,
			OtherUserName: otherName,
			Amount:        amount,
			Description:   pairDescription(name, otherName, amount),
			Settled:       false,
		})
	}
	return out, nil
}

// GetSummary folds the user's active balances and completed settlement
// totals into a single position report.
func (s *BalanceService) GetSummary(ctx context.Context, userID int64) (Summary, error) {
	balances, err := s.ldg.ActiveBalances(ctx, userID)
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{
		UserID:        userID,
		UserName:      directory.Resolve(ctx, s.dir, userID),
		TotalOwedToMe: decimal.Zero,
		TotalIOwe:     decimal.Zero,
		ActivePairs:   len(balances),
	}
	for _, b := range balances {
		amount, err := b.AmountFor(userID)
		if err != nil {
			return Summary{}, err
		}
		if amount.IsPositive() {
			sum.TotalIOwe = sum.TotalIOwe.Add(amount)
		} else {
			sum.TotalOwedToMe = sum.TotalOwedToMe.Add(amount.Neg())
		}
	}
	sum.NetPosition = sum.TotalOwedToMe.Sub(sum.TotalIOwe)
	paid, received, err := s.store.Settlements().Totals(ctx, userID)
	if err != nil {
		return Summary{}, err
	}
	sum.TotalPaid = paid
	sum.TotalReceived = received
	return sum, nil
}

// Optimize computes the minimal payment set that settles the group. Requires
// at least three users; for two the pair balance already is the answer.
func (s *BalanceService) Optimize(ctx context.Context, userIDs []int64) (Optimization, error) {
	if len(userIDs) < 3 {
		return Optimization{}, netting.ErrTooFewUsers
	}
	nets, rowCount, err := s.ldg.NetPositions(ctx, userIDs)
	if err != nil {
		return Optimization{}, err
	}
	positions := make([]netting.Position, 0, len(userIDs))
	for _, id := range userIDs {
		positions = append(positions, netting.Position{UserID: id, Net: nets[id]})
	}
	payments, err := netting.Optimize(positions, s.ldg.Threshold())
	if err != nil {
		return Optimization{}, err
	}
	total := decimal.Zero
	for i := range payments {
		payments[i].FromName = directory.Resolve(ctx, s.dir, payments[i].FromUserID)
		payments[i].ToName = directory.Resolve(ctx, s.dir, payments[i].ToUserID)
		total = total.Add(payments[i].Amount)
	}
	metrics.OptimizationsTotal.Inc()
	return Optimization{
		SuggestedPayments:         payments,
		TotalAmount:               total,
		OriginalTransactionCount:  rowCount,
		OptimizedTransactionCount: len(payments),
		Summary: fmt.Sprintf("Reduced from %d potential transactions to %d optimized payments",
			rowCount, len(payments)),
	}, nil
}

// Stats reports service-wide aggregates.
func (s *BalanceService) Stats(ctx context.Context) (ServiceStats, error) {
	activeCount, outstanding, err := s.store.Balances().Stats(ctx)
	if err != nil {
		return ServiceStats{}, err
	}
	completed, volume, err := s.store.Settlements().Stats(ctx)
	if err != nil {
		return ServiceStats{}, err
	}
	return ServiceStats{
		ActiveBalances:      activeCount,
		TotalOutstanding:    outstanding,
		SettlementsDone:     completed,
		SettlementVolume:    volume,
		AutoSettleThreshold: s.ldg.Threshold(),
	}, nil
}

func pairDescription(nameA, nameB string, amount decimal.Decimal) string {
	switch {
	case amount.IsPositive():
		return fmt.Sprintf("%s owes %s %s", nameA, nameB, amount.StringFixed(2))
	case amount.IsNegative():
		return fmt.Sprintf("%s owes %s %s", nameB, nameA, amount.Neg().StringFixed(2))
	default:
		return fmt.Sprintf("%s and %s are settled up", nameA, nameB)
	}
}
