package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NordCoder/Ratewatch/internal/domain/alert"
	"google.golang.org/protobuf/types/known/structpb"
)

// Fired alerts travel as google.protobuf.Struct so producer and consumer
// share a schema without generated code.

var ErrBadEvent = errors.New("malformed alert event")

type AlertEventsKafka struct {
	p *Producer
}

func NewAlertEventsKafka(p *Producer) *AlertEventsKafka { return &AlertEventsKafka{p: p} }

var _ alert.Events = (*AlertEventsKafka)(nil)

func (e *AlertEventsKafka) PublishAlertFired(ctx context.Context, ev alert.FiredEvent) error {
	msg, err := EncodeFiredEvent(ev)
	if err != nil {
		return err
	}
	return e.p.PublishProto(ctx, KeyFromInt64(ev.AlertID), msg)
}

func EncodeFiredEvent(ev alert.FiredEvent) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(map[string]any{
		"alert_id":      ev.AlertID,
		"owner_id":      ev.OwnerID,
		"currency_code": ev.CurrencyCode,
		"rate":          ev.Rate,
		"target_rate":   ev.TargetRate,
		"product":       ev.Product,
		"fired_at":      ev.FiredAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("encode fired event: %w", err)
	}
	return s, nil
}

func DecodeFiredEvent(s *structpb.Struct) (alert.FiredEvent, error) {
	f := s.GetFields()
	ev := alert.FiredEvent{
		AlertID:      int64(f["alert_id"].GetNumberValue()),
		OwnerID:      int64(f["owner_id"].GetNumberValue()),
		CurrencyCode: f["currency_code"].GetStringValue(),
		Rate:         f["rate"].GetStringValue(),
		TargetRate:   f["target_rate"].GetStringValue(),
		Product:      f["product"].GetStringValue(),
	}
	if raw := f["fired_at"].GetStringValue(); raw != "" {
		at, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return ev, fmt.Errorf("%w: fired_at: %v", ErrBadEvent, err)
		}
		ev.FiredAt = at
	}
	return ev, nil
}
