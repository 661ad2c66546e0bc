package repository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/burakozf/splitledger/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when an optimistic update lost the race; the
	// caller should re-read and retry a bounded number of times.
	ErrConflict = errors.New("concurrent update conflict")
)

// Balances owns the pairwise balance table. Update performs an optimistic
// compare-and-swap on Balance.Version and returns ErrConflict when the
// stored row moved on underneath the caller.
type Balances interface {
	Get(ctx context.Context, pairKey string) (models.Balance, error)
	Create(ctx context.Context, b models.Balance) error
	Update(ctx context.Context, b models.Balance) error
	ListByUser(ctx context.Context, userID int64, minAbsAmount decimal.Decimal) ([]models.Balance, error)
	ListByUserSet(ctx context.Context, userIDs []int64) ([]models.Balance, error)
	Stats(ctx context.Context) (activeCount int64, totalOutstanding decimal.Decimal, err error)
}

type Settlements interface {
	Create(ctx context.Context, s models.Settlement) (models.Settlement, error)
	GetByID(ctx context.Context, id string) (models.Settlement, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Settlement, error)
	ListBetween(ctx context.Context, userA, userB int64) ([]models.Settlement, error)
	Stats(ctx context.Context) (completedCount int64, totalVolume decimal.Decimal, err error)
	// Totals sums completed settlements paid and received by userID.
	Totals(ctx context.Context, userID int64) (paid, received decimal.Decimal, err error)
}

type Obligations interface {
	CreateBatch(ctx context.Context, obs []models.Obligation) ([]models.Obligation, error)
	GetByID(ctx context.Context, id string) (models.Obligation, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]models.Obligation, error)
	ListBetween(ctx context.Context, userA, userB int64) ([]models.Obligation, error)
	ListByGroup(ctx context.Context, groupID string) ([]models.Obligation, error)
	UpdateStatus(ctx context.Context, id string, status models.ObligationStatus) error
}

type AuditLogs interface {
	Create(ctx context.Context, l models.AuditLog) error
}

// Store bundles the repositories behind one backend. WithinTx runs fn with a
// Store whose repositories share a single database transaction; the
// transaction commits when fn returns nil and rolls back otherwise. Nested
// WithinTx calls are not supported.
type Store interface {
	Balances() Balances
	Settlements() Settlements
	Obligations() Obligations
	AuditLogs() AuditLogs
	WithinTx(ctx context.Context, fn func(tx Store) error) error
	Close() error
}
