package postgres

import (
	"context"
	"fmt"

	"github.com/NordCoder/Ratewatch/internal/domain/subscription"
	"github.com/jackc/pgx/v5"
)

var _ subscription.Repo = (*SubscriptionRepo)(nil)

type SubscriptionRepo struct{ db *DB }

func NewSubscriptionRepo(db *DB) *SubscriptionRepo { return &SubscriptionRepo{db: db} }

const subCols = `id, owner_id, url, events, secret, created_at, updated_at`

const (
	qSubInsert = `
INSERT INTO webhook_subscriptions (owner_id, url, events, secret)
VALUES ($1, $2, $3, $4)
RETURNING ` + subCols + `;`

	qSubByID = `
SELECT ` + subCols + `
FROM webhook_subscriptions
WHERE id = $1;`

	qSubsByOwner = `
SELECT ` + subCols + `
FROM webhook_subscriptions
WHERE owner_id = $1
ORDER BY id;`

	qSubsByOwnerEvent = `
SELECT ` + subCols + `
FROM webhook_subscriptions
WHERE owner_id = $1 AND $2 = ANY(events)
ORDER BY id;`

	qSubUpdate = `
UPDATE webhook_subscriptions
SET url = $2, events = $3, secret = $4, updated_at = NOW()
WHERE id = $1
RETURNING ` + subCols + `;`

	qSubDelete = `DELETE FROM webhook_subscriptions WHERE id = $1;`
)

func scanSubscription(row pgx.Row, s *subscription.Subscription) error {
	if err := row.Scan(&s.ID, &s.OwnerID, &s.URL, &s.Events, &s.Secret, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if notFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("scan subscription: %w", err)
	}
	return nil
}

func (r *SubscriptionRepo) Create(ctx context.Context, s *subscription.Subscription) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	return scanSubscription(r.db.execQueryer(ctx).QueryRow(ctx, qSubInsert, s.OwnerID, s.URL, s.Events, s.Secret), s)
}

func (r *SubscriptionRepo) GetByID(ctx context.Context, id int64) (*subscription.Subscription, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var s subscription.Subscription
	if err := scanSubscription(r.db.execQueryer(ctx).QueryRow(ctx, qSubByID, id), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SubscriptionRepo) ListByOwner(ctx context.Context, ownerID int64) ([]*subscription.Subscription, error) {
	return r.list(ctx, qSubsByOwner, ownerID)
}

func (r *SubscriptionRepo) ListByOwnerEvent(ctx context.Context, ownerID int64, event string) ([]*subscription.Subscription, error) {
	return r.list(ctx, qSubsByOwnerEvent, ownerID, event)
}

func (r *SubscriptionRepo) list(ctx context.Context, q string, args ...any) ([]*subscription.Subscription, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.execQueryer(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer rows.Close()

	var out []*subscription.Subscription
	for rows.Next() {
		var s subscription.Subscription
		if err := scanSubscription(rows, &s); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *SubscriptionRepo) Update(ctx context.Context, s *subscription.Subscription) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	return scanSubscription(r.db.execQueryer(ctx).QueryRow(ctx, qSubUpdate, s.ID, s.URL, s.Events, s.Secret), s)
}

func (r *SubscriptionRepo) Delete(ctx context.Context, id int64) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.execQueryer(ctx).Exec(ctx, qSubDelete, id)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
