package webhooks

import (
	"context"
	"fmt"
	"testing"

	"github.com/NordCoder/Ratewatch/internal/domain/subscription"
	pg "github.com/NordCoder/Ratewatch/internal/repository/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	items map[int64]*subscription.Subscription
	next  int64
}

func (m *memStore) Create(_ context.Context, s *subscription.Subscription) error {
	m.next++
	s.ID = m.next
	m.items[s.ID] = s
	return nil
}

func (m *memStore) GetByID(_ context.Context, id int64) (*subscription.Subscription, error) {
	if s, ok := m.items[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, pg.ErrNotFound
}

func (m *memStore) ListByOwner(_ context.Context, owner int64) ([]*subscription.Subscription, error) {
	var out []*subscription.Subscription
	for _, s := range m.items {
		if s.OwnerID == owner {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) Update(_ context.Context, s *subscription.Subscription) error {
	m.items[s.ID] = s
	return nil
}

func (m *memStore) Delete(_ context.Context, id int64) error {
	delete(m.items, id)
	return nil
}

func TestCreate(t *testing.T) {
	uc := New(&memStore{items: map[int64]*subscription.Subscription{}})
	s, err := uc.Create(context.Background(), 3, " https://hooks.example.com/rw ", []string{"Alert.Triggered", "alert.triggered", " "}, "k")
	require.NoError(t, err)

	assert.Equal(t, "https://hooks.example.com/rw", s.URL)
	assert.Equal(t, []string{subscription.EventAlertTriggered}, s.Events)
	assert.True(t, s.Subscribes(subscription.EventAlertTriggered))
	assert.Equal(t, "k", s.Secret)
}

func TestCreate_Invalid(t *testing.T) {
	uc := New(&memStore{items: map[int64]*subscription.Subscription{}})
	ctx := context.Background()
	many := make([]string, maxEvents+1)
	for i := range many {
		many[i] = fmt.Sprintf("event.%d", i)
	}

	cases := map[string]struct {
		url    string
		events []string
	}{
		"relative url": {"/hook", []string{"alert.triggered"}},
		"ftp scheme":   {"ftp://example.com/x", []string{"alert.triggered"}},
		"no events":    {"https://example.com", nil},
		"blank events": {"https://example.com", []string{"  "}},
		"too many":     {"https://example.com", many},
		"garbage url":  {"http://[::1", []string{"alert.triggered"}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := uc.Create(ctx, 1, tc.url, tc.events, "")
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestUpdateAndOwnership(t *testing.T) {
	store := &memStore{items: map[int64]*subscription.Subscription{}}
	uc := New(store)
	ctx := context.Background()
	s, err := uc.Create(ctx, 1, "https://a.example.com", []string{"alert.triggered"}, "old")
	require.NoError(t, err)

	url := "http://b.example.com/x"
	secret := ""
	got, err := uc.Update(ctx, 1, s.ID, Patch{URL: &url, Secret: &secret})
	require.NoError(t, err)
	assert.Equal(t, url, got.URL)
	assert.Equal(t, []string{"alert.triggered"}, got.Events)
	assert.Empty(t, got.Secret)

	_, err = uc.Update(ctx, 1, s.ID, Patch{Events: []string{}})
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = uc.Get(ctx, 2, s.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, uc.Delete(ctx, 2, s.ID), ErrForbidden)

	list, err := uc.ListByUser(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, uc.Delete(ctx, 1, s.ID))
	_, err = uc.Get(ctx, 1, s.ID)
	assert.ErrorIs(t, err, pg.ErrNotFound)
}
