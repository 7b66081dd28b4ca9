package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/NordCoder/Ratewatch/internal/domain/subscription"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const (
	HeaderEvent     = "X-Webhook-Event"
	HeaderSignature = "X-Webhook-Signature"
)

type Result struct {
	SubscriptionID int64
	URL            string
	StatusCode     int
	OK             bool
	Err            error
	Latency        time.Duration
}

type Config struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	Concurrency int           `mapstructure:"concurrency"`
	UserAgent   string        `mapstructure:"user_agent"`
}

// Dispatcher POSTs one event body to subscriber URLs. Each POST is tried once.
type Dispatcher struct {
	http *http.Client
	cfg  Config
	log  *zap.Logger
}

func NewDispatcher(hc *http.Client, cfg Config, log *zap.Logger) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 16
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "ratewatch-webhooks/1.0"
	}
	return &Dispatcher{http: hc, cfg: cfg, log: log.With(zap.String("component", "webhook.dispatcher"))}
}

// DeliverAll fans the body out to every subscription and waits for all of
// them. The result slice has one entry per subscription; failures never
// affect the other deliveries.
func (d *Dispatcher) DeliverAll(ctx context.Context, subs []*subscription.Subscription, event string, body []byte) []Result {
	if len(subs) == 0 {
		return nil
	}
	p := pool.NewWithResults[Result]().WithMaxGoroutines(d.cfg.Concurrency)
	for _, s := range subs {
		p.Go(func() Result {
			return d.Deliver(ctx, s, event, body)
		})
	}
	return p.Wait()
}

func (d *Dispatcher) Deliver(ctx context.Context, s *subscription.Subscription, event string, body []byte) Result {
	tr := otel.Tracer("webhook.dispatcher")
	ctx, span := tr.Start(ctx, "webhook.deliver")
	span.SetAttributes(
		attribute.Int64("subscription.id", s.ID),
		attribute.String("webhook.event", event),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	res := Result{SubscriptionID: s.ID, URL: s.URL}
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		res.Err = fmt.Errorf("build request: %w", err)
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, "build request")
		return res
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", d.cfg.UserAgent)
	req.Header.Set(HeaderEvent, event)
	if s.Secret != "" {
		req.Header.Set(HeaderSignature, Sign(s.Secret, body))
	}

	resp, err := d.http.Do(req)
	if err != nil {
		res.Err = fmt.Errorf("post: %w", err)
		res.Latency = time.Since(start)
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, "transport")
		return res
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()

	res.StatusCode = resp.StatusCode
	res.OK = resp.StatusCode >= 200 && resp.StatusCode <= 299
	res.Latency = time.Since(start)
	if !res.OK {
		res.Err = fmt.Errorf("unexpected status %d", resp.StatusCode)
		span.SetStatus(codes.Error, res.Err.Error())
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	return res
}

// Sign returns the value of the signature header: sha256=<hex hmac of body>.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
