package repo

import (
	"context"

	"github.com/NordCoder/Ratewatch/internal/domain/alert"
	"github.com/NordCoder/Ratewatch/internal/domain/notification"
	"github.com/NordCoder/Ratewatch/internal/domain/user"
)

// The notifier only ever reads alerts and users and appends notifications.

type AlertReader interface {
	GetByID(ctx context.Context, id int64) (*alert.Alert, error)
}

type UserReader interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
}

type NotificationWriter interface {
	Create(ctx context.Context, n *notification.Notification) error
}

type Alerts struct{ R alert.Repo }
type Users struct{ R user.Repo }
type Notifications struct{ R notification.Repo }

func (a Alerts) GetByID(ctx context.Context, id int64) (*alert.Alert, error) {
	return a.R.GetByID(ctx, id)
}

func (a Users) GetByID(ctx context.Context, id int64) (*user.User, error) {
	u, err := a.R.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &user.User{ID: u.ID, Email: u.Email}, nil
}

func (a Notifications) Create(ctx context.Context, n *notification.Notification) error {
	return a.R.Create(ctx, n)
}
