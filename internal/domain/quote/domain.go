package quote

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is a point-in-time bid for one currency against the quote currency. Never persisted.
type Snapshot struct {
	CurrencyCode string
	Bid          decimal.Decimal
	Timestamp    time.Time
}

type Source interface {
	Fetch(ctx context.Context, codes []string) (map[string]Snapshot, error)
}
