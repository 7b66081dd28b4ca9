package delivery

import "context"

type Repo interface {
	Insert(ctx context.Context, d *Delivery) error
	ListByAlert(ctx context.Context, alertID int64, limit int) ([]*Delivery, error)
}
