package notifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NordCoder/Ratewatch/internal/domain/alert"
	"github.com/NordCoder/Ratewatch/internal/domain/notification"
	"github.com/NordCoder/Ratewatch/internal/obs"
	"github.com/NordCoder/Ratewatch/internal/services/email-notifier/repo"
	"go.uber.org/zap"
)

type Handler struct {
	Alerts repo.AlertReader
	Users  repo.UserReader
	Store  repo.NotificationWriter
	Out    notification.EmailSender
	Clock  notification.Clock
	Log    *zap.Logger
}

// HandleAlertFired mails the alert owner and records the notification.
func (h *Handler) HandleAlertFired(ctx context.Context, ev alert.FiredEvent) error {
	a, err := h.Alerts.GetByID(ctx, ev.AlertID)
	if err != nil {
		return fmt.Errorf("get alert: %w", err)
	}

	u, err := h.Users.GetByID(ctx, a.OwnerID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	subject, body := render(a, ev)
	if err := h.Out.Send(ctx, u.Email, subject, body); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	if err := h.Store.Create(ctx, &notification.Notification{
		AlertID: a.ID,
		UserID:  u.ID,
		Type:    notification.TypeEmail,
		SentAt:  h.Clock.Now().UTC(),
		Payload: body,
	}); err != nil && h.Log != nil {
		// the mail is already out; redelivering the event would send it twice
		obs.WithTrace(ctx, h.Log).Warn("store notification", zap.Int64("alert_id", a.ID), zap.Error(err))
	}
	return nil
}

func render(a *alert.Alert, ev alert.FiredEvent) (string, string) {
	target := ev.TargetRate
	if target == "" {
		target = a.TargetRate.String()
	}
	subject := fmt.Sprintf("Alert fired: %s <= %s", a.CurrencyCode, target)

	var b strings.Builder
	b.WriteString("Hello!\n\n")
	fmt.Fprintf(&b, "Your %s alert reached its target: %s (target %s)", a.CurrencyCode, ev.Rate, target)
	if a.Product != "" {
		fmt.Fprintf(&b, " for %s", a.Product)
	}
	at := ev.FiredAt
	if at.IsZero() && a.FiredAt != nil {
		at = *a.FiredAt
	}
	if !at.IsZero() {
		fmt.Fprintf(&b, " at %s", at.UTC().Format(time.RFC3339))
	}
	b.WriteString(".\n\nRatewatch")
	return subject, b.String()
}
