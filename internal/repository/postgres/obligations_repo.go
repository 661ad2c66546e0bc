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

type obligationsRepo struct{ q querier }

const obligationCols = `id, paid_by, owed_by, amount::text, total_amount::text, description, category,
	group_id, split_type, status, notes, created_by, transaction_date, created_at`

func scanObligation(row pgx.Row) (models.Obligation, error) {
	var o models.Obligation
	var amount, total string
	err := row.Scan(&o.ID, &o.PaidBy, &o.OwedBy, &amount, &total, &o.Description, &o.Category,
		&o.GroupID, &o.SplitType, &o.Status, &o.Notes, &o.CreatedBy, &o.TransactionDate, &o.CreatedAt)
	if err != nil {
		return models.Obligation{}, err
	}
	if o.Amount, err = decimal.NewFromString(amount); err != nil {
		return models.Obligation{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	if o.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return models.Obligation{}, fmt.Errorf("parse total amount %q: %w", total, err)
	}
	return o, nil
}

func (r *obligationsRepo) CreateBatch(ctx context.Context, obs []models.Obligation) ([]models.Obligation, error) {
	now := time.Now().UTC()
	for i := range obs {
		if obs[i].ID == "" {
			obs[i].ID = uuid.NewString()
		}
		if obs[i].CreatedAt.IsZero() {
			obs[i].CreatedAt = now
		}
		if obs[i].TransactionDate.IsZero() {
			obs[i].TransactionDate = now
		}
		_, err := r.q.Exec(ctx,
			`INSERT INTO obligations (id, paid_by, owed_by, amount, total_amount, description, category,
			                          group_id, split_type, status, notes, created_by, transaction_date, created_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
			obs[i].ID, obs[i].PaidBy, obs[i].OwedBy, obs[i].Amount.String(), obs[i].TotalAmount.String(),
			obs[i].Description, obs[i].Category, obs[i].GroupID, obs[i].SplitType, obs[i].Status,
			obs[i].Notes, obs[i].CreatedBy, obs[i].TransactionDate, obs[i].CreatedAt)
		if err != nil {
			return nil, mapErr(err)
		}
	}
	return obs, nil
}

func (r *obligationsRepo) GetByID(ctx context.Context, id string) (models.Obligation, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+obligationCols+` FROM obligations WHERE id = $1`, id)
	o, err := scanObligation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Obligation{}, repository.ErrNotFound
	}
	return o, mapErr(err)
}

func (r *obligationsRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]models.Obligation, error) {
	query := `SELECT ` + obligationCols + ` FROM obligations
		  WHERE paid_by = $1 OR owed_by = $1
		  ORDER BY transaction_date DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	return r.list(ctx, query, args...)
}

func (r *obligationsRepo) ListBetween(ctx context.Context, userA, userB int64) ([]models.Obligation, error) {
	return r.list(ctx,
		`SELECT `+obligationCols+` FROM obligations
		  WHERE (paid_by = $1 AND owed_by = $2) OR (paid_by = $2 AND owed_by = $1)
		  ORDER BY transaction_date DESC`, userA, userB)
}

func (r *obligationsRepo) ListByGroup(ctx context.Context, groupID string) ([]models.Obligation, error) {
	return r.list(ctx,
		`SELECT `+obligationCols+` FROM obligations WHERE group_id = $1 ORDER BY owed_by`, groupID)
}

func (r *obligationsRepo) UpdateStatus(ctx context.Context, id string, status models.ObligationStatus) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE obligations SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *obligationsRepo) list(ctx context.Context, query string, args ...any) ([]models.Obligation, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Obligation
	for rows.Next() {
		o, err := scanObligation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
