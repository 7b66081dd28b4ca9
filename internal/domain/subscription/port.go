package subscription

import "context"

type Repo interface {
	Create(ctx context.Context, s *Subscription) error
	GetByID(ctx context.Context, id int64) (*Subscription, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*Subscription, error)
	ListByOwnerEvent(ctx context.Context, ownerID int64, event string) ([]*Subscription, error)
	Update(ctx context.Context, s *Subscription) error
	Delete(ctx context.Context, id int64) error
}
