package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/burakozf/splitledger/internal/models"
	"github.com/burakozf/splitledger/internal/repository"
)

type settlementsRepo struct{ q querier }

const settlementCols = `id, payer_id, payee_id, amount, description, balance_key, method, status,
	notes, reference_id, created_by, settlement_date, created_at`

func scanSettlement(row interface{ Scan(...any) error }) (models.Settlement, error) {
	var s models.Settlement
	var amount string
	err := row.Scan(&s.ID, &s.PayerID, &s.PayeeID, &amount, &s.Description, &s.BalanceKey,
		&s.Method, &s.Status, &s.Notes, &s.ReferenceID, &s.CreatedBy, &s.SettlementDate, &s.CreatedAt)
	if err != nil {
		return models.Settlement{}, err
	}
	s.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return models.Settlement{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	return s, nil
}

func (r *settlementsRepo) Create(ctx context.Context, s models.Settlement) (models.Settlement, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.SettlementDate.IsZero() {
		s.SettlementDate = now
	}
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO settlements (`+settlementCols+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		s.ID, s.PayerID, s.PayeeID, s.Amount.String(), s.Description, s.BalanceKey,
		s.Method, s.Status, s.Notes, s.ReferenceID, s.CreatedBy, s.SettlementDate, s.CreatedAt)
	return s, err
}

func (r *settlementsRepo) GetByID(ctx context.Context, id string) (models.Settlement, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+settlementCols+` FROM settlements WHERE id = ?`, id)
	s, err := scanSettlement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Settlement{}, repository.ErrNotFound
	}
	return s, err
}

func (r *settlementsRepo) ListByUser(ctx context.Context, userID int64) ([]models.Settlement, error) {
	return r.list(ctx,
		`SELECT `+settlementCols+` FROM settlements
		  WHERE payer_id = ? OR payee_id = ?
		  ORDER BY settlement_date DESC`, userID, userID)
}

func (r *settlementsRepo) ListBetween(ctx context.Context, userA, userB int64) ([]models.Settlement, error) {
	return r.list(ctx,
		`SELECT `+settlementCols+` FROM settlements
		  WHERE (payer_id = ? AND payee_id = ?) OR (payer_id = ? AND payee_id = ?)
		  ORDER BY settlement_date DESC`, userA, userB, userB, userA)
}

func (r *settlementsRepo) list(ctx context.Context, query string, args ...any) ([]models.Settlement, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Settlement
	for rows.Next() {
		s, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *settlementsRepo) Stats(ctx context.Context) (int64, decimal.Decimal, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT amount FROM settlements WHERE status = ?`, models.SettlementCompleted)
	if err != nil {
		return 0, decimal.Zero, err
	}
	defer rows.Close()

	var count int64
	total := decimal.Zero
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return 0, decimal.Zero, err
		}
		amount, err := decimal.NewFromString(s)
		if err != nil {
			return 0, decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
		}
		count++
		total = total.Add(amount)
	}
	return count, total, rows.Err()
}

func (r *settlementsRepo) Totals(ctx context.Context, userID int64) (decimal.Decimal, decimal.Decimal, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT payer_id, amount FROM settlements
		  WHERE status = ? AND (payer_id = ? OR payee_id = ?)`,
		models.SettlementCompleted, userID, userID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	defer rows.Close()

	paid, received := decimal.Zero, decimal.Zero
	for rows.Next() {
		var payer int64
		var s string
		if err := rows.Scan(&payer, &s); err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		amount, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
		}
		if payer == userID {
			paid = paid.Add(amount)
		} else {
			received = received.Add(amount)
		}
	}
	return paid, received, rows.Err()
}
