package alert

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Repo interface {
	Create(ctx context.Context, a *Alert) error
	GetByID(ctx context.Context, id int64) (*Alert, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*Alert, error)
	Update(ctx context.Context, a *Alert) error
	Delete(ctx context.Context, id int64) error

	ListPending(ctx context.Context) ([]*Alert, error)
	// MarkFired flips fired only if it is still false; false means someone else won.
	MarkFired(ctx context.Context, id int64, rate decimal.Decimal, at time.Time) (bool, error)
}

type Events interface {
	PublishAlertFired(ctx context.Context, ev FiredEvent) error
}
