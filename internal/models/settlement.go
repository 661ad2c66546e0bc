package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type SettlementMethod string

const (
	MethodCash         SettlementMethod = "CASH"
	MethodBankTransfer SettlementMethod = "BANK_TRANSFER"
	MethodOnline       SettlementMethod = "ONLINE"
	MethodOther        SettlementMethod = "OTHER"
)

// ValidMethod reports whether m is one of the supported payment methods.
func ValidMethod(m SettlementMethod) bool {
	switch m {
	case MethodCash, MethodBankTransfer, MethodOnline, MethodOther:
		return true
	}
	return false
}

type SettlementStatus string

const (
	SettlementPending   SettlementStatus = "PENDING"
	SettlementCompleted SettlementStatus = "COMPLETED"
	SettlementCancelled SettlementStatus = "CANCELLED"
	SettlementFailed    SettlementStatus = "FAILED"
)

// Settlement records a payment from PayerID to PayeeID that reduces the
// payer's debt. Amount is strictly positive and immutable once completed.
type Settlement struct {
	ID             string           `json:"id"`
	PayerID        int64            `json:"payer_id"`
	PayeeID        int64            `json:"payee_id"`
	Amount         decimal.Decimal  `json:"amount"`
	Description    string           `json:"description,omitempty"`
	BalanceKey     string           `json:"balance_key"`
	Method         SettlementMethod `json:"method"`
	Status         SettlementStatus `json:"status"`
	Notes          string           `json:"notes,omitempty"`
	ReferenceID    string           `json:"reference_id,omitempty"`
	CreatedBy      int64            `json:"created_by"`
	SettlementDate time.Time        `json:"settlement_date"`
	CreatedAt      time.Time        `json:"created_at"`
}

// InvolvesUser reports whether userID paid or was paid.
func (s Settlement) InvolvesUser(userID int64) bool {
	return userID == s.PayerID || userID == s.PayeeID
}
