package services

import "errors"

// Validation errors: rejected before any state mutation, safe to retry after
// fixing the input.
var (
	ErrBelowMinimum        = errors.New("amount is below the configured minimum")
	ErrAboveMaximum        = errors.New("amount exceeds the configured maximum")
	ErrTooManyParticipants = errors.New("too many participants")
	ErrPayerNotIncluded    = errors.New("the payer must be included in the participants")
	ErrInvalidMethod       = errors.New("unsupported settlement method")
	ErrNotParticipant      = errors.New("caller is not part of this transaction")
)

// State-conflict errors: reflect the ledger's current truth; callers must
// re-read before retrying.
var (
	ErrNoDebt      = errors.New("payer does not owe money to payee")
	ErrExceedsDebt = errors.New("settlement amount exceeds outstanding balance")
	ErrNotActive   = errors.New("obligation is not active")
)
