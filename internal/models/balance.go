package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SettledTolerance is the amount below which a pair counts as settled.
var SettledTolerance = decimal.RequireFromString("0.01")

var ErrSameUser = errors.New("payer and payee cannot be the same user")

// Balance is the running net amount for one unordered user pair.
// The pair is stored in canonical order (UserLow < UserHigh) and the sign of
// Amount is always read relative to that order: positive means UserLow owes
// UserHigh, negative means UserHigh owes UserLow. Call-site argument order
// never changes the interpretation.
type Balance struct {
	PairKey          string          `json:"pair_key"`
	UserLow          int64           `json:"user_low"`
	UserHigh         int64           `json:"user_high"`
	Amount           decimal.Decimal `json:"amount"`
	TransactionCount int64           `json:"transaction_count"`
	Version          int64           `json:"-"`
	CreatedAt        time.Time       `json:"created_at"`
	LastUpdated      time.Time       `json:"last_updated"`
}

// PairKey builds the canonical storage key for a user pair, lower id first.
func PairKey(userA, userB int64) (string, error) {
	if userA == userB {
		return "", ErrSameUser
	}
	if userA > userB {
		userA, userB = userB, userA
	}
	return fmt.Sprintf("%d_%d", userA, userB), nil
}

// NewBalance returns a zero balance for the pair in canonical order.
func NewBalance(userA, userB int64) (Balance, error) {
	key, err := PairKey(userA, userB)
	if err != nil {
		return Balance{}, err
	}
	if userA > userB {
		userA, userB = userB, userA
	}
	now := time.Now().UTC()
	return Balance{
		PairKey:     key,
		UserLow:     userA,
		UserHigh:    userB,
		Amount:      decimal.Zero,
		CreatedAt:   now,
		LastUpdated: now,
	}, nil
}

// Add applies a signed delta and bumps the transaction count.
func (b *Balance) Add(delta decimal.Decimal) {
	b.Amount = b.Amount.Add(delta)
	b.TransactionCount++
	b.LastUpdated = time.Now().UTC()
}

// AmountFor returns the balance from userID's perspective: positive means
// userID owes the other user.
func (b Balance) AmountFor(userID int64) (decimal.Decimal, error) {
	switch userID {
	case b.UserLow:
		return b.Amount, nil
	case b.UserHigh:
		return b.Amount.Neg(), nil
	}
	return decimal.Zero, fmt.Errorf("user %d is not part of balance %s", userID, b.PairKey)
}

// OtherUser returns the counterparty of userID in this pair.
func (b Balance) OtherUser(userID int64) (int64, error) {
	switch userID {
	case b.UserLow:
		return b.UserHigh, nil
	case b.UserHigh:
		return b.UserLow, nil
	}
	return 0, fmt.Errorf("user %d is not part of balance %s", userID, b.PairKey)
}

// Settled reports whether the pair is within the settled tolerance.
func (b Balance) Settled() bool {
	return b.Amount.Abs().LessThan(SettledTolerance)
}

// Description renders a human-readable summary of who owes whom.
func (b Balance) Description() string {
	switch {
	case b.Settled():
		return fmt.Sprintf("Users %d and %d are settled", b.UserLow, b.UserHigh)
	case b.Amount.IsPositive():
		return fmt.Sprintf("User %d owes User %d $%s", b.UserLow, b.UserHigh, b.Amount.StringFixed(2))
	default:
		return fmt.Sprintf("User %d owes User %d $%s", b.UserHigh, b.UserLow, b.Amount.Abs().StringFixed(2))
	}
}
