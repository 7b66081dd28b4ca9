package notifier

import (
	"context"
	"errors"

	"github.com/NordCoder/Ratewatch/internal/domain/alert"
	kafkax "github.com/NordCoder/Ratewatch/internal/repository/kafka"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/structpb"
)

var (
	mConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "email_notifier_messages_consumed_total",
		Help: "Alert-fired events consumed",
	})
	mSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "email_notifier_emails_sent_total",
		Help: "Emails sent",
	})
	mErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "email_notifier_errors_total",
		Help: "Errors",
	})
)

type Subscriber interface {
	Consume(ctx context.Context, h kafkax.Handler) error
}

type Controller struct {
	Log *zap.Logger
	Sub Subscriber
	UC  *Handler
}

func (c *Controller) Run(ctx context.Context) error {
	err := c.Sub.Consume(ctx, c.Handler())
	if err != nil && !errors.Is(err, context.Canceled) {
		mErrors.Inc()
		c.Log.Warn("kafka consume", zap.Error(err))
		return err
	}
	return ctx.Err()
}

// Handler decodes one Kafka record and hands it to the usecase.
func (c *Controller) Handler() kafkax.Handler {
	return kafkax.ProtoHandler(
		func() *structpb.Struct { return &structpb.Struct{} },
		func(ctx context.Context, _ []byte, msg *structpb.Struct) error {
			mConsumed.Inc()
			ev, err := kafkax.DecodeFiredEvent(msg)
			if err != nil {
				mErrors.Inc()
				c.Log.Warn("alert-fired: undecodable event", zap.Error(err))
				return nil
			}
			if ev.AlertID <= 0 {
				c.Log.Warn("alert-fired: invalid alert_id", zap.Int64("alert_id", ev.AlertID))
				return nil
			}
			return c.handle(ctx, ev)
		},
	)
}

func (c *Controller) handle(ctx context.Context, ev alert.FiredEvent) error {
	if err := c.UC.HandleAlertFired(ctx, ev); err != nil {
		mErrors.Inc()
		return err
	}
	mSent.Inc()
	return nil
}
