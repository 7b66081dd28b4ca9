package postgres

import (
	"context"
	"fmt"

	"github.com/NordCoder/Ratewatch/internal/domain/delivery"
)

var _ delivery.Repo = (*DeliveryRepo)(nil)

type DeliveryRepo struct{ db *DB }

func NewDeliveryRepo(db *DB) *DeliveryRepo { return &DeliveryRepo{db: db} }

const (
	qDeliveryInsert = `
INSERT INTO webhook_deliveries (alert_id, subscription_id, url, event, status_code, ok, error, latency_ms, ts)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id;`

	qDeliveriesByAlert = `
SELECT id, alert_id, subscription_id, url, event, status_code, ok, error, latency_ms, ts
FROM webhook_deliveries
WHERE alert_id = $1
ORDER BY ts DESC
LIMIT $2;`
)

func (r *DeliveryRepo) Insert(ctx context.Context, d *delivery.Delivery) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	return r.db.execQueryer(ctx).QueryRow(ctx, qDeliveryInsert,
		d.AlertID, d.SubscriptionID, d.URL, d.Event, d.StatusCode, d.OK, d.Error, d.LatencyMS, d.At,
	).Scan(&d.ID)
}

func (r *DeliveryRepo) ListByAlert(ctx context.Context, alertID int64, limit int) ([]*delivery.Delivery, error) {
	if limit <= 0 {
		limit = 50
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.execQueryer(ctx).Query(ctx, qDeliveriesByAlert, alertID, limit)
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	defer rows.Close()

	out := make([]*delivery.Delivery, 0, limit)
	for rows.Next() {
		var d delivery.Delivery
		if err := rows.Scan(&d.ID, &d.AlertID, &d.SubscriptionID, &d.URL, &d.Event,
			&d.StatusCode, &d.OK, &d.Error, &d.LatencyMS, &d.At); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		out = append(out, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
