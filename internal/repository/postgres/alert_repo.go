package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/NordCoder/Ratewatch/internal/domain/alert"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var _ alert.Repo = (*AlertRepo)(nil)

type AlertRepo struct {
	db *DB
}

func NewAlertRepo(db *DB) *AlertRepo { return &AlertRepo{db: db} }

const alertCols = `id, owner_id, currency_code, target_rate::text, product, active, fired, fired_at, fired_rate::text, created_at, updated_at`

const (
	qAlertInsert = `
INSERT INTO alerts (owner_id, currency_code, target_rate, product, active)
VALUES ($1, $2, $3::numeric, $4, $5)
RETURNING ` + alertCols + `;`

	qAlertByID = `
SELECT ` + alertCols + `
FROM alerts
WHERE id = $1;`

	qAlertsByOwner = `
SELECT ` + alertCols + `
FROM alerts
WHERE owner_id = $1
ORDER BY id DESC;`

	qAlertUpdate = `
UPDATE alerts
SET target_rate = $2::numeric,
    product     = $3,
    active      = $4,
    updated_at  = NOW()
WHERE id = $1
RETURNING ` + alertCols + `;`

	qAlertDelete = `DELETE FROM alerts WHERE id = $1;`

	qAlertsPending = `
SELECT ` + alertCols + `
FROM alerts
WHERE active = TRUE AND fired = FALSE
ORDER BY id;`

	qAlertMarkFired = `
UPDATE alerts
SET fired      = TRUE,
    fired_at   = $2,
    fired_rate = $3::numeric,
    updated_at = NOW()
WHERE id = $1 AND fired = FALSE;`
)

func scanAlert(row pgx.Row, a *alert.Alert) error {
	var (
		target    string
		firedRate *string
	)
	if err := row.Scan(
		&a.ID,
		&a.OwnerID,
		&a.CurrencyCode,
		&target,
		&a.Product,
		&a.Active,
		&a.Fired,
		&a.FiredAt,
		&firedRate,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		if notFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("scan alert: %w", err)
	}

	var err error
	if a.TargetRate, err = parseDecimal(target); err != nil {
		return err
	}
	if a.FiredRate, err = parseNullDecimal(firedRate); err != nil {
		return err
	}
	return nil
}

func (r *AlertRepo) Create(ctx context.Context, a *alert.Alert) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	row := r.db.execQueryer(ctx).QueryRow(ctx, qAlertInsert,
		a.OwnerID, a.CurrencyCode, a.TargetRate.String(), a.Product, a.Active)
	return scanAlert(row, a)
}

func (r *AlertRepo) GetByID(ctx context.Context, id int64) (*alert.Alert, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var a alert.Alert
	if err := scanAlert(r.db.execQueryer(ctx).QueryRow(ctx, qAlertByID, id), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AlertRepo) ListByOwner(ctx context.Context, ownerID int64) ([]*alert.Alert, error) {
	return r.list(ctx, qAlertsByOwner, ownerID)
}

func (r *AlertRepo) ListPending(ctx context.Context) ([]*alert.Alert, error) {
	return r.list(ctx, qAlertsPending)
}

func (r *AlertRepo) list(ctx context.Context, q string, args ...any) ([]*alert.Alert, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.execQueryer(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var out []*alert.Alert
	for rows.Next() {
		var a alert.Alert
		if err := scanAlert(rows, &a); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *AlertRepo) Update(ctx context.Context, a *alert.Alert) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	row := r.db.execQueryer(ctx).QueryRow(ctx, qAlertUpdate,
		a.ID, a.TargetRate.String(), a.Product, a.Active)
	return scanAlert(row, a)
}

func (r *AlertRepo) Delete(ctx context.Context, id int64) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.execQueryer(ctx).Exec(ctx, qAlertDelete, id)
	if err != nil {
		return fmt.Errorf("delete alert: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AlertRepo) MarkFired(ctx context.Context, id int64, rate decimal.Decimal, at time.Time) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.execQueryer(ctx).Exec(ctx, qAlertMarkFired, id, at, rate.String())
	if err != nil {
		return false, fmt.Errorf("mark fired: %w", err)
	}
	return cmd.RowsAffected() == 1, nil
}
