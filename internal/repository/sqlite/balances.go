package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/burakozf/splitledger/internal/models"
	"github.com/burakozf/splitledger/internal/repository"
)

type balancesRepo struct{ q querier }

const balanceCols = `pair_key, user_low, user_high, amount, transaction_count, version, created_at, last_updated`

func scanBalance(row interface{ Scan(...any) error }) (models.Balance, error) {
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
	row := r.q.QueryRowContext(ctx,
		`SELECT `+balanceCols+` FROM balances WHERE pair_key = ?`, pairKey)
	b, err := scanBalance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Balance{}, repository.ErrNotFound
	}
	return b, err
}

func (r *balancesRepo) Create(ctx context.Context, b models.Balance) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO balances (`+balanceCols+`) VALUES (?,?,?,?,?,?,?,?)`,
		b.PairKey, b.UserLow, b.UserHigh, b.Amount.String(),
		b.TransactionCount, b.Version, b.CreatedAt, b.LastUpdated)
	return err
}

func (r *balancesRepo) Update(ctx context.Context, b models.Balance) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE balances
		    SET amount = ?, transaction_count = ?, version = version + 1, last_updated = ?
		  WHERE pair_key = ? AND version = ?`,
		b.Amount.String(), b.TransactionCount, time.Now().UTC(), b.PairKey, b.Version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrConflict
	}
	return nil
}

func (r *balancesRepo) ListByUser(ctx context.Context, userID int64, minAbsAmount decimal.Decimal) ([]models.Balance, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+balanceCols+` FROM balances
		  WHERE user_low = ? OR user_high = ?
		  ORDER BY pair_key`, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Balance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		// Numeric filtering happens here rather than in SQL: amounts are
		// stored as decimal strings, which do not compare numerically.
		if b.Amount.Abs().GreaterThan(minAbsAmount) {
			out = append(out, b)
		}
	}
	return out, rows.Err()
}

func (r *balancesRepo) ListByUserSet(ctx context.Context, userIDs []int64) ([]models.Balance, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(userIDs)), ",")
	args := make([]any, 0, 2*len(userIDs))
	for _, id := range userIDs {
		args = append(args, id)
	}
	args = append(args, args...)

	rows, err := r.q.QueryContext(ctx,
		`SELECT `+balanceCols+` FROM balances
		  WHERE user_low IN (`+placeholders+`) AND user_high IN (`+placeholders+`)
		  ORDER BY pair_key`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

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
	rows, err := r.q.QueryContext(ctx, `SELECT amount FROM balances`)
	if err != nil {
		return 0, decimal.Zero, err
	}
	defer rows.Close()

	var active int64
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
		if amount.Abs().GreaterThan(models.SettledTolerance) {
			active++
			total = total.Add(amount.Abs())
		}
	}
	return active, total, rows.Err()
}
