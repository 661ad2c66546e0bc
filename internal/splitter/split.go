// Package splitter turns a recorded expense into per-participant shares.
package splitter

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/burakozf/splitledger/internal/models"
)

// ErrInvalidSplit is returned for malformed split requests: no participants,
// EXACT amounts that do not sum to the total, or PERCENTAGE values that do
// not sum to exactly 100.
var ErrInvalidSplit = errors.New("invalid split")

var hundred = decimal.NewFromInt(100)

// Participant is one member of an expense with the optional per-policy input.
type Participant struct {
	UserID     int64           `json:"user_id"`
	Amount     decimal.Decimal `json:"amount,omitempty"`
	Percentage decimal.Decimal `json:"percentage,omitempty"`
}

// Share is the calculated amount one participant owes to the payer.
type Share struct {
	UserID int64
	Amount decimal.Decimal
}

// Shares computes each participant's share of total under the given policy.
// Amounts are rounded half-up to two decimals. For EQUAL splits the rounding
// remainder is NOT redistributed, so the emitted shares can drift from the
// total by up to one cent per extra participant; callers relying on exact
// totals must use EXACT. The output preserves participant order.
func Shares(total decimal.Decimal, participants []Participant, policy models.SplitType) ([]Share, error) {
	if len(participants) == 0 {
		return nil, ErrInvalidSplit
	}

	shares := make([]Share, 0, len(participants))
	switch policy {
	case models.SplitEqual:
		each := total.Div(decimal.NewFromInt(int64(len(participants)))).Round(2)
		for _, p := range participants {
			shares = append(shares, Share{UserID: p.UserID, Amount: each})
		}

	case models.SplitExact:
		sum := decimal.Zero
		for _, p := range participants {
			sum = sum.Add(p.Amount)
		}
		if !sum.Equal(total) {
			return nil, ErrInvalidSplit
		}
		for _, p := range participants {
			shares = append(shares, Share{UserID: p.UserID, Amount: p.Amount})
		}

	case models.SplitPercentage:
		sum := decimal.Zero
		for _, p := range participants {
			sum = sum.Add(p.Percentage)
		}
		if !sum.Equal(hundred) {
			return nil, ErrInvalidSplit
		}
		for _, p := range participants {
			amount := total.Mul(p.Percentage).Div(hundred).Round(2)
			shares = append(shares, Share{UserID: p.UserID, Amount: amount})
		}

	default:
		return nil, ErrInvalidSplit
	}
	return shares, nil
}
