package evaluator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/NordCoder/Ratewatch/internal/domain/alert"
	"github.com/NordCoder/Ratewatch/internal/domain/delivery"
	"github.com/NordCoder/Ratewatch/internal/domain/outbox"
	"github.com/NordCoder/Ratewatch/internal/domain/quote"
	"github.com/NordCoder/Ratewatch/internal/domain/subscription"
	"github.com/NordCoder/Ratewatch/internal/markup"
	"github.com/NordCoder/Ratewatch/internal/webhook"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memAlerts struct {
	mu     sync.Mutex
	alerts map[int64]*alert.Alert
}

func newMemAlerts(as ...*alert.Alert) *memAlerts {
	m := &memAlerts{alerts: map[int64]*alert.Alert{}}
	for _, a := range as {
		m.alerts[a.ID] = a
	}
	return m
}

func (m *memAlerts) ListPending(context.Context) ([]*alert.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*alert.Alert
	for _, a := range m.alerts {
		if a.Pending() {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memAlerts) MarkFired(_ context.Context, id int64, rate decimal.Decimal, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[id]
	if !ok || a.Fired {
		return false, nil
	}
	a.Fired = true
	a.FiredAt = &at
	a.FiredRate = &rate
	return true, nil
}

func (m *memAlerts) get(id int64) alert.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.alerts[id]
}

func (m *memAlerts) snapshot() map[int64]alert.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]alert.Alert, len(m.alerts))
	for id, a := range m.alerts {
		out[id] = *a
	}
	return out
}

func (m *memAlerts) restore(snap map[int64]alert.Alert) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, a := range snap {
		*m.alerts[id] = a
	}
}

type memSubs struct {
	subs []*subscription.Subscription
	err  error
}

// ListByOwnerEvent filters by owner only so the usecase's own event check is exercised.
func (m *memSubs) ListByOwnerEvent(_ context.Context, ownerID int64, _ string) ([]*subscription.Subscription, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []*subscription.Subscription
	for _, s := range m.subs {
		if s.OwnerID == ownerID {
			out = append(out, s)
		}
	}
	return out, nil
}

type memDeliveries struct {
	mu  sync.Mutex
	got []*delivery.Delivery
}

func (m *memDeliveries) Insert(_ context.Context, d *delivery.Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.got = append(m.got, d)
	return nil
}

type memOutbox struct {
	keys []string
	data [][]byte
	err  error
}

func (m *memOutbox) Enqueue(_ context.Context, key string, _ outbox.Kind, data []byte) error {
	if m.err != nil {
		return m.err
	}
	m.keys = append(m.keys, key)
	m.data = append(m.data, data)
	return nil
}

// memTx undoes alert and outbox writes when fn fails, nested calls included.
type memTx struct {
	alerts *memAlerts
	outbox *memOutbox
}

func (m memTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	snap := m.alerts.snapshot()
	n := len(m.outbox.keys)
	if err := fn(ctx); err != nil {
		m.alerts.restore(snap)
		m.outbox.keys = m.outbox.keys[:n]
		m.outbox.data = m.outbox.data[:n]
		return err
	}
	return nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type quoteMock struct{ mock.Mock }

func (m *quoteMock) Fetch(ctx context.Context, codes []string) (map[string]quote.Snapshot, error) {
	args := m.Called(ctx, codes)
	res, _ := args.Get(0).(map[string]quote.Snapshot)
	return res, args.Error(1)
}

type hook struct {
	srv   *httptest.Server
	mu    sync.Mutex
	calls []*http.Request
	body  [][]byte
}

func newHook(t *testing.T, status int) *hook {
	h := &hook{}
	h.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		h.mu.Lock()
		h.calls = append(h.calls, r)
		h.body = append(h.body, b)
		h.mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(h.srv.Close)
	return h
}

func (h *hook) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.calls)
}

var now = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func usd(id int64, target string) *alert.Alert {
	return &alert.Alert{
		ID: id, OwnerID: 7, CurrencyCode: "USD",
		TargetRate: decimal.RequireFromString(target), Product: "Trip", Active: true,
	}
}

func bids(pairs map[string]string) map[string]quote.Snapshot {
	out := map[string]quote.Snapshot{}
	for code, bid := range pairs {
		out[code] = quote.Snapshot{CurrencyCode: code, Bid: decimal.RequireFromString(bid), Timestamp: now}
	}
	return out
}

type fixture struct {
	alerts     *memAlerts
	subs       *memSubs
	quotes     *quoteMock
	deliveries *memDeliveries
	outbox     *memOutbox
	uc         *Usecase
}

func newFixture(t *testing.T, alerts []*alert.Alert, subs []*subscription.Subscription) *fixture {
	t.Helper()
	f := &fixture{
		alerts:     newMemAlerts(alerts...),
		subs:       &memSubs{subs: subs},
		quotes:     &quoteMock{},
		deliveries: &memDeliveries{},
		outbox:     &memOutbox{},
	}
	disp := webhook.NewDispatcher(&http.Client{}, webhook.Config{Timeout: 2 * time.Second}, zap.NewNop())
	f.uc = NewUC(Deps{
		Alerts:        f.alerts,
		Subscriptions: f.subs,
		Quotes:        f.quotes,
		Webhooks:      disp,
		Deliveries:    f.deliveries,
		Outbox:        f.outbox,
		Tx:            memTx{alerts: f.alerts, outbox: f.outbox},
		Clock:         fixedClock{t: now},
	}, markup.NewTable(1, nil), zap.NewNop())
	return f
}

func TestTick_FiresWhenAdjustedRateReachesTarget(t *testing.T) {
	h := newHook(t, http.StatusOK)
	f := newFixture(t,
		[]*alert.Alert{usd(1, "5.10")},
		[]*subscription.Subscription{{ID: 10, OwnerID: 7, URL: h.srv.URL, Events: []string{subscription.EventAlertTriggered}}},
	)
	f.quotes.On("Fetch", mock.Anything, []string{"USD"}).Return(bids(map[string]string{"USD": "5.00"}), nil).Once()

	st, err := f.uc.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, st.Fired)
	assert.Equal(t, 1, st.Deliveries)
	assert.Zero(t, st.DeliveryErrors)

	got := f.alerts.get(1)
	assert.True(t, got.Fired)
	require.NotNil(t, got.FiredRate)
	assert.Equal(t, "5.05", got.FiredRate.String())
	assert.Equal(t, now, *got.FiredAt)

	require.Equal(t, 1, h.count())
	req := h.calls[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Equal(t, subscription.EventAlertTriggered, req.Header.Get(webhook.HeaderEvent))

	var p webhook.Payload
	require.NoError(t, json.Unmarshal(h.body[0], &p))
	assert.Equal(t, subscription.EventAlertTriggered, p.Event)
	assert.Equal(t, int64(1), p.Alert.ID)
	assert.Equal(t, "5.05", p.CurrentRate)
	assert.Equal(t, "5.1", p.Alert.TargetRate)
	assert.Contains(t, p.Message, "USD")

	assert.Equal(t, []string{outbox.AlertFiredKey(1)}, f.outbox.keys)
	var ev alert.FiredEvent
	require.NoError(t, json.Unmarshal(f.outbox.data[0], &ev))
	assert.Equal(t, "5.05", ev.Rate)

	require.Len(t, f.deliveries.got, 1)
	assert.True(t, f.deliveries.got[0].OK)
	f.quotes.AssertExpectations(t)
}

func TestTick_DoesNotFireAboveTarget(t *testing.T) {
	h := newHook(t, http.StatusOK)
	f := newFixture(t,
		[]*alert.Alert{usd(1, "5.00")},
		[]*subscription.Subscription{{ID: 10, OwnerID: 7, URL: h.srv.URL, Events: []string{subscription.EventAlertTriggered}}},
	)
	f.quotes.On("Fetch", mock.Anything, []string{"USD"}).Return(bids(map[string]string{"USD": "5.00"}), nil)

	st, err := f.uc.Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, st.Fired)
	assert.False(t, f.alerts.get(1).Fired)
	assert.Zero(t, h.count())
	assert.Empty(t, f.outbox.keys)
}

func TestTick_EqualToTargetFires(t *testing.T) {
	f := newFixture(t, []*alert.Alert{usd(1, "5.05")}, nil)
	f.quotes.On("Fetch", mock.Anything, []string{"USD"}).Return(bids(map[string]string{"USD": "5.00"}), nil)

	st, err := f.uc.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, st.Fired)
	assert.True(t, f.alerts.get(1).Fired)
}

func TestTick_SecondRunDoesNotRefire(t *testing.T) {
	h := newHook(t, http.StatusOK)
	f := newFixture(t,
		[]*alert.Alert{usd(1, "5.10")},
		[]*subscription.Subscription{{ID: 10, OwnerID: 7, URL: h.srv.URL, Events: []string{subscription.EventAlertTriggered}}},
	)
	f.quotes.On("Fetch", mock.Anything, []string{"USD"}).Return(bids(map[string]string{"USD": "5.00"}), nil).Once()

	_, err := f.uc.Tick(context.Background())
	require.NoError(t, err)

	st, err := f.uc.Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, st.Pending)
	assert.Zero(t, st.Fired)
	assert.Equal(t, 1, h.count())
	assert.Len(t, f.outbox.keys, 1)
	f.quotes.AssertNumberOfCalls(t, "Fetch", 1)
}

func TestTick_SkipsSubscriptionsWithoutEvent(t *testing.T) {
	subscribed := newHook(t, http.StatusOK)
	other := newHook(t, http.StatusOK)
	foreign := newHook(t, http.StatusOK)
	f := newFixture(t,
		[]*alert.Alert{usd(1, "5.10")},
		[]*subscription.Subscription{
			{ID: 10, OwnerID: 7, URL: subscribed.srv.URL, Events: []string{"alert.created", subscription.EventAlertTriggered}},
			{ID: 11, OwnerID: 7, URL: other.srv.URL, Events: []string{"alert.created"}},
			{ID: 12, OwnerID: 8, URL: foreign.srv.URL, Events: []string{subscription.EventAlertTriggered}},
		},
	)
	f.quotes.On("Fetch", mock.Anything, []string{"USD"}).Return(bids(map[string]string{"USD": "5.00"}), nil)

	st, err := f.uc.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, st.Deliveries)
	assert.Equal(t, 1, subscribed.count())
	assert.Zero(t, other.count())
	assert.Zero(t, foreign.count())
}

func TestTick_DeadWebhookDoesNotBlockOthers(t *testing.T) {
	alive := newHook(t, http.StatusNoContent)
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	f := newFixture(t,
		[]*alert.Alert{usd(1, "5.10")},
		[]*subscription.Subscription{
			{ID: 10, OwnerID: 7, URL: deadURL, Events: []string{subscription.EventAlertTriggered}},
			{ID: 11, OwnerID: 7, URL: alive.srv.URL, Events: []string{subscription.EventAlertTriggered}},
		},
	)
	f.quotes.On("Fetch", mock.Anything, []string{"USD"}).Return(bids(map[string]string{"USD": "5.00"}), nil)

	st, err := f.uc.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, st.Fired)
	assert.Equal(t, 2, st.Deliveries)
	assert.Equal(t, 1, st.DeliveryErrors)
	assert.True(t, f.alerts.get(1).Fired)
	assert.Equal(t, 1, alive.count())
	require.Len(t, f.deliveries.got, 2)
}

func TestTick_QuoteFailureAbortsCycle(t *testing.T) {
	h := newHook(t, http.StatusOK)
	f := newFixture(t,
		[]*alert.Alert{usd(1, "5.10"), usd(2, "9.00")},
		[]*subscription.Subscription{{ID: 10, OwnerID: 7, URL: h.srv.URL, Events: []string{subscription.EventAlertTriggered}}},
	)
	f.quotes.On("Fetch", mock.Anything, []string{"USD"}).Return(nil, errors.New("upstream 503"))

	_, err := f.uc.Tick(context.Background())
	require.Error(t, err)
	assert.False(t, f.alerts.get(1).Fired)
	assert.False(t, f.alerts.get(2).Fired)
	assert.Zero(t, h.count())
}

func TestTick_MissingQuoteSkipsOnlyThatAlert(t *testing.T) {
	eur := &alert.Alert{ID: 2, OwnerID: 7, CurrencyCode: "EUR", TargetRate: decimal.RequireFromString("100"), Active: true}
	f := newFixture(t, []*alert.Alert{usd(1, "5.10"), eur}, nil)
	f.quotes.On("Fetch", mock.Anything, mock.MatchedBy(func(codes []string) bool { return len(codes) == 2 })).
		Return(bids(map[string]string{"USD": "5.00"}), nil)

	st, err := f.uc.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, st.Skipped)
	assert.Equal(t, 1, st.Fired)
	assert.True(t, f.alerts.get(1).Fired)
	assert.False(t, f.alerts.get(2).Fired)
}

func TestTick_SharedQuoteForSameCurrency(t *testing.T) {
	f := newFixture(t, []*alert.Alert{usd(1, "5.10"), usd(2, "5.20"), usd(3, "4.00")}, nil)
	f.quotes.On("Fetch", mock.Anything, []string{"USD"}).Return(bids(map[string]string{"USD": "5.00"}), nil).Once()

	st, err := f.uc.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, st.Pending)
	assert.Equal(t, 2, st.Fired)
	f.quotes.AssertExpectations(t)
}

func TestTick_InactiveAlertsIgnored(t *testing.T) {
	a := usd(1, "5.10")
	a.Active = false
	f := newFixture(t, []*alert.Alert{a}, nil)

	st, err := f.uc.Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, st.Pending)
	f.quotes.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestTick_OutboxFailureKeepsAlertFired(t *testing.T) {
	h := newHook(t, http.StatusOK)
	f := newFixture(t,
		[]*alert.Alert{usd(1, "5.10")},
		[]*subscription.Subscription{{ID: 10, OwnerID: 7, URL: h.srv.URL, Events: []string{subscription.EventAlertTriggered}}},
	)
	f.outbox.err = errors.New("outbox down")
	f.quotes.On("Fetch", mock.Anything, []string{"USD"}).Return(bids(map[string]string{"USD": "5.00"}), nil)

	st, err := f.uc.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, st.Fired)
	assert.Equal(t, 1, st.Errors)
	assert.True(t, f.alerts.get(1).Fired)

	for range 2 {
		st, err = f.uc.Tick(context.Background())
		require.NoError(t, err)
		assert.Zero(t, st.Pending)
	}
	assert.Equal(t, 1, h.count())
	assert.Empty(t, f.outbox.keys)
}

func TestTick_SubscriptionLookupFailureLeavesAlertPending(t *testing.T) {
	h := newHook(t, http.StatusOK)
	f := newFixture(t,
		[]*alert.Alert{usd(1, "5.10")},
		[]*subscription.Subscription{{ID: 10, OwnerID: 7, URL: h.srv.URL, Events: []string{subscription.EventAlertTriggered}}},
	)
	f.subs.err = errors.New("db down")
	f.quotes.On("Fetch", mock.Anything, []string{"USD"}).Return(bids(map[string]string{"USD": "5.00"}), nil)

	st, err := f.uc.Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, st.Fired)
	assert.Equal(t, 1, st.Errors)
	assert.False(t, f.alerts.get(1).Fired)
	assert.Zero(t, h.count())
	assert.Empty(t, f.outbox.keys)

	f.subs.err = nil
	st, err = f.uc.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, st.Fired)
	assert.True(t, f.alerts.get(1).Fired)
	assert.Equal(t, 1, h.count())
}

func TestTick_FailedMarkRollsBackEvent(t *testing.T) {
	f := newFixture(t, []*alert.Alert{usd(1, "5.10")}, nil)
	f.quotes.On("Fetch", mock.Anything, []string{"USD"}).Return(bids(map[string]string{"USD": "5.00"}), nil)
	f.uc.Tx = failingCommitTx{inner: memTx{alerts: f.alerts, outbox: f.outbox}}

	st, err := f.uc.Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, st.Fired)
	assert.Equal(t, 1, st.Errors)
	assert.False(t, f.alerts.get(1).Fired)
	assert.Empty(t, f.outbox.keys)
}

// failingCommitTx runs fn and then fails the outermost commit.
type failingCommitTx struct {
	inner memTx
}

type nestedKey struct{}

func (f failingCommitTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(nestedKey{}) != nil {
		return f.inner.WithTx(ctx, fn)
	}
	return f.inner.WithTx(context.WithValue(ctx, nestedKey{}, true), func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return err
		}
		return errors.New("commit: connection reset")
	})
}

func TestCurrencyCodes_Distinct(t *testing.T) {
	codes := currencyCodes([]*alert.Alert{
		{CurrencyCode: "USD"}, {CurrencyCode: "eur"}, {CurrencyCode: "USD"}, {CurrencyCode: "EUR"},
	})
	assert.Equal(t, []string{"USD", "EUR"}, codes)
}
