// Package postgres provides the production repository.Store on pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/burakozf/splitledger/internal/repository"
)

var _ repository.Store = (*Store)(nil)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool *pgxpool.Pool // nil when this store is transaction-scoped
	q    querier
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, q: pool}
}

func (s *Store) Balances() repository.Balances       { return &balancesRepo{s.q} }
func (s *Store) Settlements() repository.Settlements { return &settlementsRepo{s.q} }
func (s *Store) Obligations() repository.Obligations { return &obligationsRepo{s.q} }
func (s *Store) AuditLogs() repository.AuditLogs     { return &auditLogsRepo{s.q} }

func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.pool == nil {
		return errors.New("nested store transaction")
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&Store{q: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", mapErr(err))
	}
	return nil
}

// mapErr translates serialization failures (40001) and deadlocks (40P01)
// into repository.ErrConflict so callers can restart the transaction.
// Statements issued after the failure see 25P02 (transaction aborted) and
// map the same way, since only a conflict retry reaches that state here.
func mapErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "25P02":
			return fmt.Errorf("sqlstate %s: %w", pgErr.Code, repository.ErrConflict)
		}
	}
	return err
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
