package alerts

import (
	"context"
	"strings"
	"testing"

	"github.com/NordCoder/Ratewatch/internal/domain/alert"
	"github.com/NordCoder/Ratewatch/internal/domain/delivery"
	pg "github.com/NordCoder/Ratewatch/internal/repository/postgres"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	items map[int64]*alert.Alert
	next  int64
}

func (m *memStore) Create(_ context.Context, a *alert.Alert) error {
	m.next++
	a.ID = m.next
	m.items[a.ID] = a
	return nil
}

func (m *memStore) GetByID(_ context.Context, id int64) (*alert.Alert, error) {
	if a, ok := m.items[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, pg.ErrNotFound
}

func (m *memStore) ListByOwner(_ context.Context, owner int64) ([]*alert.Alert, error) {
	var out []*alert.Alert
	for _, a := range m.items {
		if a.OwnerID == owner {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) Update(_ context.Context, a *alert.Alert) error {
	m.items[a.ID] = a
	return nil
}

func (m *memStore) Delete(_ context.Context, id int64) error {
	delete(m.items, id)
	return nil
}

type limitRecorder struct{ limit int }

func (l *limitRecorder) ListByAlert(_ context.Context, _ int64, limit int) ([]*delivery.Delivery, error) {
	l.limit = limit
	return nil, nil
}

func newUsecase() (*Usecase, *memStore, *limitRecorder) {
	s := &memStore{items: map[int64]*alert.Alert{}}
	d := &limitRecorder{}
	return New(s, d, "brl"), s, d
}

func TestCreate_Normalizes(t *testing.T) {
	uc, _, _ := newUsecase()
	a, err := uc.Create(context.Background(), 7, " eur ", decimal.RequireFromString("6.10"), "  Flight  ")
	require.NoError(t, err)

	assert.Equal(t, "EUR", a.CurrencyCode)
	assert.Equal(t, "Flight", a.Product)
	assert.True(t, a.Active)
	assert.False(t, a.Fired)
	assert.Equal(t, int64(7), a.OwnerID)
}

func TestCreate_Invalid(t *testing.T) {
	uc, _, _ := newUsecase()
	ctx := context.Background()
	five := decimal.NewFromInt(5)

	cases := map[string]struct {
		code    string
		target  decimal.Decimal
		product string
	}{
		"short code":     {"US", five, ""},
		"digits in code": {"U5D", five, ""},
		"zero target":    {"USD", decimal.Zero, ""},
		"negative":       {"USD", decimal.NewFromInt(-1), ""},
		"long product":   {"USD", five, strings.Repeat("x", maxProductLen+1)},
		"quote currency": {" brl ", five, ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := uc.Create(ctx, 1, tc.code, tc.target, tc.product)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestUpdate_KeepsFiringState(t *testing.T) {
	uc, store, _ := newUsecase()
	ctx := context.Background()
	a, err := uc.Create(ctx, 1, "USD", decimal.NewFromInt(5), "")
	require.NoError(t, err)
	store.items[a.ID].Fired = true

	target := decimal.RequireFromString("4.8")
	off := false
	got, err := uc.Update(ctx, 1, a.ID, Patch{TargetRate: &target, Active: &off})
	require.NoError(t, err)

	assert.True(t, got.TargetRate.Equal(target))
	assert.False(t, got.Active)
	assert.True(t, got.Fired)

	bad := decimal.Zero
	_, err = uc.Update(ctx, 1, a.ID, Patch{TargetRate: &bad})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestOwnerChecks(t *testing.T) {
	uc, store, _ := newUsecase()
	ctx := context.Background()
	a, err := uc.Create(ctx, 1, "USD", decimal.NewFromInt(5), "")
	require.NoError(t, err)

	_, err = uc.Get(ctx, 2, a.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = uc.Update(ctx, 2, a.ID, Patch{})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, uc.Delete(ctx, 2, a.ID), ErrForbidden)
	_, err = uc.Deliveries(ctx, 2, a.ID, 10)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Contains(t, store.items, a.ID)

	_, err = uc.Get(ctx, 1, 999)
	assert.ErrorIs(t, err, pg.ErrNotFound)

	require.NoError(t, uc.Delete(ctx, 1, a.ID))
	assert.NotContains(t, store.items, a.ID)
}

func TestDeliveries_Limit(t *testing.T) {
	uc, _, rec := newUsecase()
	ctx := context.Background()
	a, err := uc.Create(ctx, 1, "USD", decimal.NewFromInt(5), "")
	require.NoError(t, err)

	for in, want := range map[int]int{0: defaultDeliveryLimit, -3: defaultDeliveryLimit, 20: 20, 10_000: maxDeliveryLimit} {
		_, err := uc.Deliveries(ctx, 1, a.ID, in)
		require.NoError(t, err)
		assert.Equal(t, want, rec.limit, "limit %d", in)
	}
}
