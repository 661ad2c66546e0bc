package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/burakozf/splitledger/internal/models"
	"github.com/burakozf/splitledger/internal/repository"
)

type settlementsRepo struct{ q querier }

const settlementCols = `id, payer_id, payee_id, amount::text, description, balance_key, method, status,
	notes, reference_id, created_by, settlement_date, created_at`

func scanSettlement(row pgx.Row) (models.Settlement, error) {
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
	_, err := r.q.Exec(ctx,
		`INSERT INTO settlements (id, payer_id, payee_id, amount, description, balance_key, method, status,
		                          notes, reference_id, created_by, settlement_date, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		s.ID, s.PayerID, s.PayeeID, s.Amount.String(), s.Description, s.BalanceKey,
		s.Method, s.Status, s.Notes, s.ReferenceID, s.CreatedBy, s.SettlementDate, s.CreatedAt)
	return s, mapErr(err)
}

func (r *settlementsRepo) GetByID(ctx context.Context, id string) (models.Settlement, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+settlementCols+` FROM settlements WHERE id = $1`, id)
	s, err := scanSettlement(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Settlement{}, repository.ErrNotFound
	}
	return s, err
}

func (r *settlementsRepo) ListByUser(ctx context.Context, userID int64) ([]models.Settlement, error) {
	return r.list(ctx,
		`SELECT `+settlementCols+` FROM settlements
		  WHERE payer_id = $1 OR payee_id = $1
		  ORDER BY settlement_date DESC`, userID)
}

func (r *settlementsRepo) ListBetween(ctx context.Context, userA, userB int64) ([]models.Settlement, error) {
	return r.list(ctx,
		`SELECT `+settlementCols+` FROM settlements
		  WHERE (payer_id = $1 AND payee_id = $2) OR (payer_id = $2 AND payee_id = $1)
		  ORDER BY settlement_date DESC`, userA, userB)
}

func (r *settlementsRepo) list(ctx context.Context, query string, args ...any) ([]models.Settlement, error) {
	rows, err := r.q.Query(ctx, query, args...)
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
	var count int64
	var total string
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(amount), 0)::text
		   FROM settlements WHERE status = $1`,
		models.SettlementCompleted).Scan(&count, &total)
	if err != nil {
		return 0, decimal.Zero, err
	}
	volume, err := decimal.NewFromString(total)
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("parse total %q: %w", total, err)
	}
	return count, volume, nil
}

func (r *settlementsRepo) Totals(ctx context.Context, userID int64) (decimal.Decimal, decimal.Decimal, error) {
	var paidStr, receivedStr string
	err := r.q.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount) FILTER (WHERE payer_id = $1), 0)::text,
		        COALESCE(SUM(amount) FILTER (WHERE payee_id = $1), 0)::text
		   FROM settlements
		  WHERE status = $2 AND (payer_id = $1 OR payee_id = $1)`,
		userID, models.SettlementCompleted).Scan(&paidStr, &receivedStr)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	paid, err := decimal.NewFromString(paidStr)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("parse paid %q: %w", paidStr, err)
	}
	received, err := decimal.NewFromString(receivedStr)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("parse received %q: %w", receivedStr, err)
	}
	return paid, received, nil
}
