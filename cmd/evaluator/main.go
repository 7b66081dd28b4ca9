package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/NordCoder/Ratewatch/internal/config/evaluator"
	"github.com/NordCoder/Ratewatch/internal/httpx"
	"github.com/NordCoder/Ratewatch/internal/obs"
	"github.com/NordCoder/Ratewatch/internal/obs/retry"
	"github.com/NordCoder/Ratewatch/internal/outbox"
	kafkaRepo "github.com/NordCoder/Ratewatch/internal/repository/kafka"
	pg "github.com/NordCoder/Ratewatch/internal/repository/postgres"
	"github.com/NordCoder/Ratewatch/internal/repository/quotes"
	"github.com/NordCoder/Ratewatch/internal/services/evaluator"
	"github.com/NordCoder/Ratewatch/internal/webhook"
	"golang.org/x/sync/errgroup"

	"go.uber.org/zap"
)

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

func main() {
	cfgPath := flag.String("config", envOr("CONFIG_PATH", "config/evaluator.yaml"), "path to config file")
	flag.Parse()

	// init
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	// logger
	l, err := obs.NewLogger(cfg.Log.AsLoggerConfig(cfg.App))
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Sync() }()
	l.Info("starting evaluator",
		zap.Any("kafka_out", cfg.Kafka),
		zap.Duration("tick", cfg.Eval.Tick),
		zap.String("quotes", cfg.Quotes.BaseURL),
		zap.String("metrics_addr", cfg.Eval.MetricsAddr),
	)

	// otel
	otelCloser, err := obs.SetupOTel(ctx, cfg.OTEL.AsOTELConfig(cfg.App))
	if err != nil {
		l.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	// db
	db, err := pg.NewDB(ctx, cfg.DB)
	if err != nil {
		l.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	// kafka
	kafkaProd := kafkaRepo.BootstrapProducer(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, l)
	defer func() { _ = kafkaProd.Close() }()
	publisher := kafkaRepo.NewAlertEventsKafka(kafkaProd)

	// metrics server
	ms := obs.BootstrapMetricsServer(cfg.Eval.MetricsAddr, db.Ping, l)

	// wiring
	hc := httpx.NewClient(cfg.HTTP)
	outboxRepo := pg.NewOutboxRepo(db)
	uc := evaluator.NewUC(evaluator.Deps{
		Alerts:        pg.NewAlertRepo(db),
		Subscriptions: pg.NewSubscriptionRepo(db),
		Quotes:        quotes.NewClient(cfg.Quotes, hc, l),
		Webhooks:      webhook.NewDispatcher(hc, cfg.Webhook, l),
		Deliveries:    pg.NewDeliveryRepo(db),
		Outbox:        outboxRepo,
		Tx:            pg.NewTransactor(db, l),
		Clock:         systemClock{},
	}, cfg.Markup.Table(), l)
	runner := evaluator.New(l, uc, pg.NewAdvisoryLocker(db, l), &cfg.Eval)

	outboxRunner := outbox.NewOutboxRunner(l, outboxRepo,
		outbox.MakeGlobalOutboxHandler(publisher, retry.DefaultKafkaPolicy(l)),
		outbox.Config{
			Workers:       cfg.Outbox.Workers,
			BatchSize:     cfg.Outbox.BatchSize,
			WaitTime:      cfg.Outbox.Wait,
			InProgressTTL: cfg.Outbox.InProgressTTL,
		})

	// run
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return runner.Run(gctx) })
	g.Go(func() error { return outboxRunner.Run(gctx) })
	l.Info("evaluator started")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		l.Error("runner error", zap.Error(err))
	}

	// graceful shutdown
	shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
