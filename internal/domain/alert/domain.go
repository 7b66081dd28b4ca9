package alert

import (
	"time"

	"github.com/shopspring/decimal"
)

type Alert struct {
	ID           int64            `json:"id"`
	OwnerID      int64            `json:"owner_id"`
	CurrencyCode string           `json:"currency_code"`
	TargetRate   decimal.Decimal  `json:"target_rate"`
	Product      string           `json:"product"`
	Active       bool             `json:"active"`
	Fired        bool             `json:"fired"`
	FiredAt      *time.Time       `json:"fired_at,omitempty"`
	FiredRate    *decimal.Decimal `json:"fired_rate,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// Pending reports whether the alert still takes part in evaluation.
func (a *Alert) Pending() bool { return a.Active && !a.Fired }

// Reached reports whether an adjusted rate satisfies the target. Equality counts.
func (a *Alert) Reached(adjusted decimal.Decimal) bool {
	return adjusted.LessThanOrEqual(a.TargetRate)
}

// FiredEvent is emitted once per firing and travels through the outbox to Kafka.
type FiredEvent struct {
	AlertID      int64     `json:"alert_id"`
	OwnerID      int64     `json:"owner_id"`
	CurrencyCode string    `json:"currency_code"`
	Rate         string    `json:"rate"`
	TargetRate   string    `json:"target_rate"`
	Product      string    `json:"product"`
	FiredAt      time.Time `json:"fired_at"`
}
