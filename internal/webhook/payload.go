package webhook

import (
	"fmt"
	"time"

	"github.com/NordCoder/Ratewatch/internal/domain/alert"
	"github.com/NordCoder/Ratewatch/internal/domain/subscription"
	"github.com/shopspring/decimal"
)

type AlertData struct {
	ID           int64  `json:"id"`
	OwnerID      int64  `json:"owner_id"`
	CurrencyCode string `json:"currency_code"`
	TargetRate   string `json:"target_rate"`
	Product      string `json:"product"`
}

type Payload struct {
	Event       string    `json:"event"`
	Alert       AlertData `json:"alert"`
	CurrentRate string    `json:"current_rate"`
	FiredAt     time.Time `json:"fired_at"`
	Message     string    `json:"message"`
}

func AlertTriggered(a *alert.Alert, rate decimal.Decimal, at time.Time) Payload {
	return Payload{
		Event: subscription.EventAlertTriggered,
		Alert: AlertData{
			ID:           a.ID,
			OwnerID:      a.OwnerID,
			CurrencyCode: a.CurrencyCode,
			TargetRate:   a.TargetRate.String(),
			Product:      a.Product,
		},
		CurrentRate: rate.String(),
		FiredAt:     at.UTC(),
		Message:     message(a, rate),
	}
}

func message(a *alert.Alert, rate decimal.Decimal) string {
	msg := fmt.Sprintf("%s reached %s (target %s)", a.CurrencyCode, rate.String(), a.TargetRate.String())
	if a.Product != "" {
		msg += " for " + a.Product
	}
	return msg
}
