package alerts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/NordCoder/Ratewatch/internal/domain/alert"
	"github.com/NordCoder/Ratewatch/internal/domain/delivery"
	"github.com/shopspring/decimal"
)

var (
	ErrForbidden = errors.New("forbidden")
	ErrInvalid   = errors.New("invalid alert")
)

const (
	maxProductLen        = 200
	defaultDeliveryLimit = 50
	maxDeliveryLimit     = 500
)

type Store interface {
	Create(ctx context.Context, a *alert.Alert) error
	GetByID(ctx context.Context, id int64) (*alert.Alert, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*alert.Alert, error)
	Update(ctx context.Context, a *alert.Alert) error
	Delete(ctx context.Context, id int64) error
}

type DeliveryReader interface {
	ListByAlert(ctx context.Context, alertID int64, limit int) ([]*delivery.Delivery, error)
}

// Patch carries the owner-editable fields; nil leaves a field unchanged.
// Firing state is never editable.
type Patch struct {
	TargetRate *decimal.Decimal
	Product    *string
	Active     *bool
}

type Usecase struct {
	repo       Store
	deliveries DeliveryReader
	quote      string
}

// New builds the alerts usecase. quoteCurrency is the currency rates are
// quoted in; an alert on it would ask for a pair like BRL-BRL and is rejected.
func New(repo Store, deliveries DeliveryReader, quoteCurrency string) *Usecase {
	return &Usecase{repo: repo, deliveries: deliveries, quote: strings.ToUpper(strings.TrimSpace(quoteCurrency))}
}

func (u *Usecase) Create(ctx context.Context, ownerID int64, code string, target decimal.Decimal, product string) (*alert.Alert, error) {
	code, err := normalizeCode(code)
	if err != nil {
		return nil, err
	}
	if code == u.quote {
		return nil, fmt.Errorf("%w: currency_code must differ from the quote currency %s", ErrInvalid, u.quote)
	}
	if err := validateTarget(target); err != nil {
		return nil, err
	}
	product = strings.TrimSpace(product)
	if len(product) > maxProductLen {
		return nil, fmt.Errorf("%w: product is longer than %d characters", ErrInvalid, maxProductLen)
	}
	a := &alert.Alert{
		OwnerID:      ownerID,
		CurrencyCode: code,
		TargetRate:   target,
		Product:      product,
		Active:       true,
	}
	if err := u.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (u *Usecase) Get(ctx context.Context, requesterID, id int64) (*alert.Alert, error) {
	a, err := u.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.OwnerID != requesterID {
		return nil, ErrForbidden
	}
	return a, nil
}

func (u *Usecase) Update(ctx context.Context, requesterID, id int64, p Patch) (*alert.Alert, error) {
	cur, err := u.Get(ctx, requesterID, id)
	if err != nil {
		return nil, err
	}
	if p.TargetRate != nil {
		if err := validateTarget(*p.TargetRate); err != nil {
			return nil, err
		}
		cur.TargetRate = *p.TargetRate
	}
	if p.Product != nil {
		prod := strings.TrimSpace(*p.Product)
		if len(prod) > maxProductLen {
			return nil, fmt.Errorf("%w: product is longer than %d characters", ErrInvalid, maxProductLen)
		}
		cur.Product = prod
	}
	if p.Active != nil {
		cur.Active = *p.Active
	}
	if err := u.repo.Update(ctx, cur); err != nil {
		return nil, err
	}
	return cur, nil
}

func (u *Usecase) Delete(ctx context.Context, requesterID, id int64) error {
	if _, err := u.Get(ctx, requesterID, id); err != nil {
		return err
	}
	return u.repo.Delete(ctx, id)
}

func (u *Usecase) ListByUser(ctx context.Context, requesterID int64) ([]*alert.Alert, error) {
	return u.repo.ListByOwner(ctx, requesterID)
}

// Deliveries returns the most recent webhook attempts recorded for the alert.
func (u *Usecase) Deliveries(ctx context.Context, requesterID, id int64, limit int) ([]*delivery.Delivery, error) {
	if _, err := u.Get(ctx, requesterID, id); err != nil {
		return nil, err
	}
	switch {
	case limit <= 0:
		limit = defaultDeliveryLimit
	case limit > maxDeliveryLimit:
		limit = maxDeliveryLimit
	}
	return u.deliveries.ListByAlert(ctx, id, limit)
}

func normalizeCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return "", fmt.Errorf("%w: currency_code must have 3 letters", ErrInvalid)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("%w: currency_code must have 3 letters", ErrInvalid)
		}
	}
	return code, nil
}

func validateTarget(t decimal.Decimal) error {
	if !t.IsPositive() {
		return fmt.Errorf("%w: target_rate must be positive", ErrInvalid)
	}
	return nil
}
