// Package sqlite provides a SQLite-backed repository.Store using the pure
// Go driver, suitable for local runs and tests. Pass ":memory:" as the DSN
// for an in-memory database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/burakozf/splitledger/internal/repository"
)

var _ repository.Store = (*Store)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx so the same repository
// code runs inside and outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db *sql.DB // nil when this store is transaction-scoped
	q  querier
}

// Open opens (or creates) the database at dsn and ensures the schema exists.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// A single connection keeps in-memory databases coherent and sidesteps
	// SQLITE_BUSY under concurrent writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &Store{db: db, q: db}, nil
}

func (s *Store) Balances() repository.Balances       { return &balancesRepo{s.q} }
func (s *Store) Settlements() repository.Settlements { return &settlementsRepo{s.q} }
func (s *Store) Obligations() repository.Obligations { return &obligationsRepo{s.q} }
func (s *Store) AuditLogs() repository.AuditLogs     { return &auditLogsRepo{s.q} }

func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.db == nil {
		return errors.New("nested store transaction")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&Store{q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS balances (
			pair_key TEXT PRIMARY KEY,
			user_low INTEGER NOT NULL,
			user_high INTEGER NOT NULL,
			amount TEXT NOT NULL,
			transaction_count INTEGER NOT NULL DEFAULT 0,
			version INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			last_updated DATETIME NOT NULL,
			CHECK (user_low < user_high)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_balances_user_low ON balances(user_low)`,
		`CREATE INDEX IF NOT EXISTS idx_balances_user_high ON balances(user_high)`,

		`CREATE TABLE IF NOT EXISTS settlements (
			id TEXT PRIMARY KEY,
			payer_id INTEGER NOT NULL,
			payee_id INTEGER NOT NULL,
			amount TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			balance_key TEXT NOT NULL,
			method TEXT NOT NULL,
			status TEXT NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			reference_id TEXT NOT NULL DEFAULT '',
			created_by INTEGER NOT NULL,
			settlement_date DATETIME NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_settlements_payer ON settlements(payer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_settlements_payee ON settlements(payee_id)`,
		`CREATE INDEX IF NOT EXISTS idx_settlements_balance_key ON settlements(balance_key)`,

		`CREATE TABLE IF NOT EXISTS obligations (
			id TEXT PRIMARY KEY,
			paid_by INTEGER NOT NULL,
			owed_by INTEGER NOT NULL,
			amount TEXT NOT NULL,
			total_amount TEXT NOT NULL,
			description TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			group_id TEXT NOT NULL,
			split_type TEXT NOT NULL,
			status TEXT NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			created_by INTEGER NOT NULL,
			transaction_date DATETIME NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_obligations_paid_by ON obligations(paid_by)`,
		`CREATE INDEX IF NOT EXISTS idx_obligations_owed_by ON obligations(owed_by)`,
		`CREATE INDEX IF NOT EXISTS idx_obligations_group ON obligations(group_id)`,

		`CREATE TABLE IF NOT EXISTS audit_logs (
			id TEXT PRIMARY KEY,
			entity_type TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			action TEXT NOT NULL,
			details TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
