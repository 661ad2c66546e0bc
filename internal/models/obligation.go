package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type SplitType string

const (
	SplitEqual      SplitType = "EQUAL"
	SplitExact      SplitType = "EXACT"
	SplitPercentage SplitType = "PERCENTAGE"
)

type ObligationStatus string

const (
	ObligationActive    ObligationStatus = "ACTIVE"
	ObligationCancelled ObligationStatus = "CANCELLED"
	ObligationSettled   ObligationStatus = "SETTLED"
)

// Obligation is one participant's share of a recorded expense: OwedBy owes
// Amount to PaidBy. All obligations created from the same expense share a
// GroupID. Obligations are append-only facts; only Status ever changes.
type Obligation struct {
	ID              string           `json:"id"`
	PaidBy          int64            `json:"paid_by"`
	OwedBy          int64            `json:"owed_by"`
	Amount          decimal.Decimal  `json:"amount"`
	TotalAmount     decimal.Decimal  `json:"total_amount"`
	Description     string           `json:"description"`
	Category        string           `json:"category,omitempty"`
	GroupID         string           `json:"group_id"`
	SplitType       SplitType        `json:"split_type"`
	Status          ObligationStatus `json:"status"`
	Notes           string           `json:"notes,omitempty"`
	CreatedBy       int64            `json:"created_by"`
	TransactionDate time.Time        `json:"transaction_date"`
	CreatedAt       time.Time        `json:"created_at"`
}

// InvolvesUser reports whether userID is the payer or the ower.
func (o Obligation) InvolvesUser(userID int64) bool {
	return userID == o.PaidBy || userID == o.OwedBy
}

// CanModify reports whether userID may change this obligation: the creator,
// the payer, or the ower.
func (o Obligation) CanModify(userID int64) bool {
	return userID == o.CreatedBy || o.InvolvesUser(userID)
}
