package webhooks

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/NordCoder/Ratewatch/internal/domain/subscription"
)

var (
	ErrForbidden = errors.New("forbidden")
	ErrInvalid   = errors.New("invalid webhook")
)

const maxEvents = 16

type Store interface {
	Create(ctx context.Context, s *subscription.Subscription) error
	GetByID(ctx context.Context, id int64) (*subscription.Subscription, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*subscription.Subscription, error)
	Update(ctx context.Context, s *subscription.Subscription) error
	Delete(ctx context.Context, id int64) error
}

// Patch carries editable fields; nil leaves a field unchanged.
type Patch struct {
	URL    *string
	Events []string
	Secret *string
}

type Usecase struct {
	repo Store
}

func New(repo Store) *Usecase { return &Usecase{repo: repo} }

func (u *Usecase) Create(ctx context.Context, ownerID int64, rawURL string, events []string, secret string) (*subscription.Subscription, error) {
	target, err := validateURL(rawURL)
	if err != nil {
		return nil, err
	}
	evs, err := normalizeEvents(events)
	if err != nil {
		return nil, err
	}
	s := &subscription.Subscription{OwnerID: ownerID, URL: target, Events: evs, Secret: secret}
	if err := u.repo.Create(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (u *Usecase) Get(ctx context.Context, requesterID, id int64) (*subscription.Subscription, error) {
	s, err := u.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.OwnerID != requesterID {
		return nil, ErrForbidden
	}
	return s, nil
}

func (u *Usecase) Update(ctx context.Context, requesterID, id int64, p Patch) (*subscription.Subscription, error) {
	cur, err := u.Get(ctx, requesterID, id)
	if err != nil {
		return nil, err
	}
	if p.URL != nil {
		if cur.URL, err = validateURL(*p.URL); err != nil {
			return nil, err
		}
	}
	if p.Events != nil {
		if cur.Events, err = normalizeEvents(p.Events); err != nil {
			return nil, err
		}
	}
	if p.Secret != nil {
		cur.Secret = *p.Secret
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

func (u *Usecase) ListByUser(ctx context.Context, requesterID int64) ([]*subscription.Subscription, error) {
	return u.repo.ListByOwner(ctx, requesterID)
}

func validateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return "", fmt.Errorf("%w: url must be absolute", ErrInvalid)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("%w: url scheme must be http or https", ErrInvalid)
	}
	return parsed.String(), nil
}

func normalizeEvents(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	for _, e := range in {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || slices.Contains(out, e) {
			continue
		}
		out = append(out, e)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: at least one event is required", ErrInvalid)
	}
	if len(out) > maxEvents {
		return nil, fmt.Errorf("%w: at most %d events", ErrInvalid, maxEvents)
	}
	return out, nil
}
