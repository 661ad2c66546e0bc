package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/burakozf/splitledger/internal/models"
	"github.com/burakozf/splitledger/internal/repository"
)

type balancesRepo struct{ q querier }

const balanceCols = `pair_key, user_low, user_high, amount::text, transaction_count, version, created_at, last_updated`

func scanBalance(row pgx.Row) (models.Balance, error) {
	var b models.Balance
	var amount string
	err := row.Scan(&b.PairKey, &b.UserLow, &b.UserHigh, &amount,
		&b.TransactionCount, &b.Version, &b.CreatedAt, &b.LastUpdated)
	if err != nil {
		return models.Balance{}, err
	}
	b.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return models.Balance{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	return b, nil
}

func (r *balancesRepo) Get(ctx context.Context, pairKey string) (models.Balance, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+balanceCols+` FROM balances WHERE pair_key = $1`, pairKey)
	b, err := scanBalance(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Balance{}, repository.ErrNotFound
	}
	return b, mapErr(err)
}

func (r *balancesRepo) Create(ctx context.Context, b models.Balance) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO balances (pair_key, user_low, user_high, amount, transaction_count, version, created_at, last_updated)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		b.PairKey, b.UserLow, b.UserHigh, b.Amount.String(),
		b.TransactionCount, b.Version, b.CreatedAt, b.LastUpdated)
	return mapErr(err)
}

func (r *balancesRepo) Update(ctx context.Context, b models.Balance) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE balances
		    SET amount = $1, transaction_count = $2, version = version + 1, last_updated = $3
		  WHERE pair_key = $4 AND version = $5`,
		b.Amount.String(), b.TransactionCount, time.Now().UTC(), b.PairKey, b.Version)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrConflict
	}
	return nil
}

func (r *balancesRepo) ListByUser(ctx context.Context, userID int64, minAbsAmount decimal.Decimal) ([]models.Balance, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+balanceCols+` FROM balances
		  WHERE (user_low = $1 OR user_high = $1) AND abs(amount) > $2
		  ORDER BY pair_key`, userID, minAbsAmount.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBalances(rows)
}

func (r *balancesRepo) ListByUserSet(ctx context.Context, userIDs []int64) ([]models.Balance, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	rows, err := r.q.Query(ctx,
		`SELECT `+balanceCols+` FROM balances
		  WHERE user_low = ANY($1) AND user_high = ANY($1)
		  ORDER BY pair_key`, userIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBalances(rows)
}

func collectBalances(rows pgx.Rows) ([]models.Balance, error) {
	var out []models.Balance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *balancesRepo) Stats(ctx context.Context) (int64, decimal.Decimal, error) {
	var active int64
	var total string
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(abs(amount)), 0)::text
		   FROM balances WHERE abs(amount) > $1`,
		models.SettledTolerance.String()).Scan(&active, &total)
	if err != nil {
		return 0, decimal.Zero, err
	}
	outstanding, err := decimal.NewFromString(total)
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("parse total %q: %w", total, err)
	}
	return active, outstanding, nil
}
