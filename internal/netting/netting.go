// Package netting computes a minimal set of direct payments that clears a
// group's net positions.
package netting

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"
)

// ErrTooFewUsers is returned when fewer than three users are supplied; two
// users already have a single direct balance, so there is nothing to net.
var ErrTooFewUsers = errors.New("optimization requires at least 3 users")

// Position is one user's net standing across the group: positive means the
// user is owed money overall, negative means the user owes.
type Position struct {
	UserID int64
	Net    decimal.Decimal
}

// Payment is one suggested transfer from a net debtor to a net creditor.
type Payment struct {
	FromUserID int64           `json:"from_user_id"`
	FromName   string          `json:"from_name,omitempty"`
	ToUserID   int64           `json:"to_user_id"`
	ToName     string          `json:"to_name,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
}

// Optimize matches debtors against creditors greedily by largest magnitude
// and returns the suggested payments. Users with equal magnitude keep their
// input order (stable sort). Payments at or below threshold are treated as
// noise and skipped. The result holds at most debtors+creditors-1 entries.
func Optimize(positions []Position, threshold decimal.Decimal) ([]Payment, error) {
	if len(positions) < 3 {
		return nil, ErrTooFewUsers
	}

	var debtors, creditors []Position
	for _, p := range positions {
		switch {
		case p.Net.IsNegative():
			debtors = append(debtors, p)
		case p.Net.IsPositive():
			creditors = append(creditors, p)
		}
	}
	// Most negative debtor first, largest creditor first.
	sort.SliceStable(debtors, func(i, j int) bool {
		return debtors[i].Net.LessThan(debtors[j].Net)
	})
	sort.SliceStable(creditors, func(i, j int) bool {
		return creditors[i].Net.GreaterThan(creditors[j].Net)
	})

	var payments []Payment
	di, ci := 0, 0
	for di < len(debtors) && ci < len(creditors) {
		debt := debtors[di].Net.Abs()
		credit := creditors[ci].Net
		payment := decimal.Min(debt, credit)

		if payment.GreaterThan(threshold) {
			payments = append(payments, Payment{
				FromUserID: debtors[di].UserID,
				ToUserID:   creditors[ci].UserID,
				Amount:     payment.Round(2),
			})
		}

		debtors[di].Net = debtors[di].Net.Add(payment)
		creditors[ci].Net = creditors[ci].Net.Sub(payment)

		if debtors[di].Net.Abs().LessThanOrEqual(threshold) {
			di++
		}
		if creditors[ci].Net.LessThanOrEqual(threshold) {
			ci++
		}
	}
	return payments, nil
}
