package evaluator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/NordCoder/Ratewatch/internal/domain/alert"
	"github.com/NordCoder/Ratewatch/internal/domain/delivery"
	"github.com/NordCoder/Ratewatch/internal/domain/outbox"
	"github.com/NordCoder/Ratewatch/internal/domain/quote"
	"github.com/NordCoder/Ratewatch/internal/domain/subscription"
	"github.com/NordCoder/Ratewatch/internal/markup"
	"github.com/NordCoder/Ratewatch/internal/obs"
	"github.com/NordCoder/Ratewatch/internal/webhook"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type AlertStore interface {
	ListPending(ctx context.Context) ([]*alert.Alert, error)
	MarkFired(ctx context.Context, id int64, rate decimal.Decimal, at time.Time) (bool, error)
}

type SubscriptionStore interface {
	ListByOwnerEvent(ctx context.Context, ownerID int64, event string) ([]*subscription.Subscription, error)
}

type Dispatcher interface {
	DeliverAll(ctx context.Context, subs []*subscription.Subscription, event string, body []byte) []webhook.Result
}

type DeliveryLog interface {
	Insert(ctx context.Context, d *delivery.Delivery) error
}

type Outbox interface {
	Enqueue(ctx context.Context, key string, kind outbox.Kind, data []byte) error
}

type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Clock interface {
	Now() time.Time
}

type Deps struct {
	Alerts        AlertStore
	Subscriptions SubscriptionStore
	Quotes        quote.Source
	Webhooks      Dispatcher
	Deliveries    DeliveryLog
	Outbox        Outbox
	Tx            Transactor
	Clock         Clock
}

type Usecase struct {
	Deps
	markup markup.Table
	log    *zap.Logger
}

func NewUC(deps Deps, table markup.Table, log *zap.Logger) *Usecase {
	return &Usecase{Deps: deps, markup: table, log: log.With(zap.String("component", "evaluator.uc"))}
}

// Stats summarises one cycle.
type Stats struct {
	Pending        int
	Quoted         int
	Fired          int
	Skipped        int
	AlreadyFired   int
	Deliveries     int
	DeliveryErrors int
	Errors         int
}

// Tick runs one evaluation cycle. A quote fetch failure aborts the whole
// cycle; anything that goes wrong with a single alert or webhook is logged
// and the cycle moves on.
func (u *Usecase) Tick(ctx context.Context) (Stats, error) {
	var st Stats

	tr := otel.Tracer("evaluator.uc")
	ctx, span := tr.Start(ctx, "evaluator.tick")
	defer span.End()
	log := obs.WithTrace(ctx, u.log)

	pending, err := u.Alerts.ListPending(ctx)
	if err != nil {
		span.RecordError(err)
		return st, fmt.Errorf("list pending alerts: %w", err)
	}
	st.Pending = len(pending)
	span.SetAttributes(attribute.Int("alerts.pending", st.Pending))
	if len(pending) == 0 {
		return st, nil
	}

	quotes, err := u.Quotes.Fetch(ctx, currencyCodes(pending))
	if err != nil {
		span.RecordError(err)
		return st, fmt.Errorf("fetch quotes: %w", err)
	}
	st.Quoted = len(quotes)

	for _, a := range pending {
		q, ok := quotes[strings.ToUpper(a.CurrencyCode)]
		if !ok {
			st.Skipped++
			log.Warn("no quote for alert currency, skipping",
				zap.Int64("alert_id", a.ID), zap.String("currency", a.CurrencyCode))
			continue
		}
		u.evaluate(ctx, a, q, &st)
	}

	span.SetAttributes(
		attribute.Int("alerts.fired", st.Fired),
		attribute.Int("alerts.skipped", st.Skipped),
		attribute.Int("webhooks.errors", st.DeliveryErrors),
	)
	return st, nil
}

func (u *Usecase) evaluate(ctx context.Context, a *alert.Alert, q quote.Snapshot, st *Stats) {
	tr := otel.Tracer("evaluator.uc")
	ctx, span := tr.Start(ctx, "evaluator.alert", trace.WithAttributes(
		attribute.Int64("alert.id", a.ID),
		attribute.String("alert.currency", a.CurrencyCode),
	))
	defer span.End()
	log := obs.WithTrace(ctx, u.log).With(zap.Int64("alert_id", a.ID), zap.String("currency", a.CurrencyCode))

	adjusted := u.markup.Adjust(a.CurrencyCode, q.Bid)
	span.SetAttributes(attribute.String("rate.adjusted", adjusted.String()))
	if !a.Reached(adjusted) {
		return
	}

	firedAt := u.Clock.Now().UTC()
	log.Info("alert reached target",
		zap.String("bid", q.Bid.String()),
		zap.String("adjusted", adjusted.String()),
		zap.String("target", a.TargetRate.String()))

	// nothing was attempted, so the alert stays pending for the next cycle
	if err := u.notify(ctx, a, adjusted, firedAt, st); err != nil {
		st.Errors++
		span.RecordError(err)
		log.Error("prepare webhook deliveries, alert left pending", zap.Error(err))
		return
	}

	won, err := u.markFired(ctx, a, adjusted, firedAt, st)
	switch {
	case err != nil:
		st.Errors++
		span.RecordError(err)
		log.Error("mark alert fired", zap.Error(err))
	case !won:
		st.AlreadyFired++
		log.Info("alert was fired concurrently, keeping existing state")
	default:
		st.Fired++
	}
}

// notify delivers the alert to every matching subscription. Failed
// deliveries are recorded, not returned; an error means no delivery was
// attempted at all.
func (u *Usecase) notify(ctx context.Context, a *alert.Alert, rate decimal.Decimal, at time.Time, st *Stats) error {
	log := obs.WithTrace(ctx, u.log).With(zap.Int64("alert_id", a.ID))

	subs, err := u.Subscriptions.ListByOwnerEvent(ctx, a.OwnerID, subscription.EventAlertTriggered)
	if err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}
	// the store filters already; this keeps a loose store from leaking other events
	subs = slices.DeleteFunc(subs, func(s *subscription.Subscription) bool {
		return !s.Subscribes(subscription.EventAlertTriggered)
	})
	if len(subs) == 0 {
		return nil
	}

	body, err := json.Marshal(webhook.AlertTriggered(a, rate, at))
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	results := u.Webhooks.DeliverAll(ctx, subs, subscription.EventAlertTriggered, body)
	for _, r := range results {
		st.Deliveries++
		if !r.OK {
			st.DeliveryErrors++
			log.Warn("webhook delivery failed",
				zap.Int64("subscription_id", r.SubscriptionID),
				zap.String("url", r.URL),
				zap.Int("status", r.StatusCode),
				zap.Error(r.Err))
		}
		u.record(ctx, a.ID, r, at)
	}
	return nil
}

func (u *Usecase) record(ctx context.Context, alertID int64, r webhook.Result, at time.Time) {
	if u.Deliveries == nil {
		return
	}
	d := &delivery.Delivery{
		AlertID:        alertID,
		SubscriptionID: r.SubscriptionID,
		URL:            r.URL,
		Event:          subscription.EventAlertTriggered,
		StatusCode:     r.StatusCode,
		OK:             r.OK,
		LatencyMS:      r.Latency.Milliseconds(),
		At:             at,
	}
	if r.Err != nil {
		d.Error = r.Err.Error()
	}
	if err := u.Deliveries.Insert(ctx, d); err != nil {
		obs.WithTrace(ctx, u.log).Warn("store delivery", zap.Int64("alert_id", alertID), zap.Error(err))
	}
}

var errLost = errors.New("alert already fired")

// markFired flips the alert to fired and enqueues the fired event in the same
// transaction. The enqueue runs in a nested transaction so that its failure
// rolls back only the event: webhooks were already delivered and the alert
// must not become pending again.
func (u *Usecase) markFired(ctx context.Context, a *alert.Alert, rate decimal.Decimal, at time.Time, st *Stats) (bool, error) {
	err := u.Tx.WithTx(ctx, func(ctx context.Context) error {
		won, err := u.Alerts.MarkFired(ctx, a.ID, rate, at)
		if err != nil {
			return err
		}
		if !won {
			return errLost
		}
		if u.Outbox == nil {
			return nil
		}
		if err := u.Tx.WithTx(ctx, func(ctx context.Context) error {
			return u.enqueueFired(ctx, a, rate, at)
		}); err != nil {
			st.Errors++
			obs.WithTrace(ctx, u.log).Error("enqueue fired event, alert stays fired",
				zap.Int64("alert_id", a.ID), zap.Error(err))
		}
		return nil
	})
	if errors.Is(err, errLost) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (u *Usecase) enqueueFired(ctx context.Context, a *alert.Alert, rate decimal.Decimal, at time.Time) error {
	data, err := json.Marshal(alert.FiredEvent{
		AlertID:      a.ID,
		OwnerID:      a.OwnerID,
		CurrencyCode: a.CurrencyCode,
		Rate:         rate.String(),
		TargetRate:   a.TargetRate.String(),
		Product:      a.Product,
		FiredAt:      at,
	})
	if err != nil {
		return fmt.Errorf("marshal fired event: %w", err)
	}
	return u.Outbox.Enqueue(ctx, outbox.AlertFiredKey(a.ID), outbox.KindAlertFired, data)
}

func currencyCodes(alerts []*alert.Alert) []string {
	codes := make([]string, 0, len(alerts))
	for _, a := range alerts {
		code := strings.ToUpper(a.CurrencyCode)
		if !slices.Contains(codes, code) {
			codes = append(codes, code)
		}
	}
	return codes
}
