package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/NordCoder/Ratewatch/internal/config/api-gateway"
	"github.com/NordCoder/Ratewatch/internal/obs"
	pg "github.com/NordCoder/Ratewatch/internal/repository/postgres"
	"github.com/NordCoder/Ratewatch/internal/services/api-gateway/alerts"
	"github.com/NordCoder/Ratewatch/internal/services/api-gateway/auth"
	"github.com/NordCoder/Ratewatch/internal/services/api-gateway/httpapi"
	"github.com/NordCoder/Ratewatch/internal/services/api-gateway/webhooks"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfgPath := flag.String("config", envOr("CONFIG_PATH", "config/api-gateway.yaml"), "path to config file")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	logger, err := obs.NewLogger(cfg.Log.AsLoggerConfig(cfg.App))
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting api-gateway", zap.String("env", cfg.App.Env), zap.String("ver", cfg.App.Version))

	otelCloser, err := obs.SetupOTel(rootCtx, cfg.OTEL.AsOTELConfig(cfg.App))
	if err != nil {
		logger.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	db, err := initDB(rootCtx, cfg.DB, logger)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	// wiring
	if cfg.App.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	userRepo := pg.NewUserRepo(db)
	authUC := auth.NewUseCase(userRepo, pg.NewRefreshTokenRepo(db), auth.Config{
		Secret:     []byte(cfg.Auth.JWTSecret),
		AccessTTL:  cfg.Auth.AccessTTL,
		RefreshTTL: cfg.Auth.RefreshTTL,
	})
	api, err := httpapi.NewRouter(httpapi.Deps{
		Log:      logger,
		Auth:     authUC,
		Users:    userRepo,
		Alerts:   alerts.New(pg.NewAlertRepo(db), pg.NewDeliveryRepo(db), cfg.Alerts.QuoteCurrency),
		Webhooks: webhooks.New(pg.NewSubscriptionRepo(db)),

		Notifications: pg.NewNotificationRepo(db),
		Cookie: httpapi.CookieOpts{
			Name:   cfg.Auth.CookieName,
			Domain: cfg.Auth.CookieDomain,
			Path:   cfg.Auth.CookiePath,
			Secure: cfg.Auth.CookieSecure,
		},
		CORSOrigins:   cfg.Server.CORSOrigins,
		AuthRateLimit: cfg.Server.AuthRateLimit,
	})
	if err != nil {
		logger.Fatal("build api", zap.Error(err))
	}

	grpcServer, hs, grpcLn, err := buildGRPCServer(cfg)
	if err != nil {
		logger.Fatal("build grpc", zap.Error(err))
	}
	go watchDB(rootCtx, db, hs, 10*time.Second, logger.With(zap.String("component", "health")))

	grpcErrCh := make(chan error, 1)
	go func() { grpcErrCh <- serveGRPC(grpcServer, grpcLn, logger) }()

	httpSrv, healthConn, err := buildHTTPServer(cfg, api)
	if err != nil {
		logger.Fatal("build http", zap.Error(err))
	}
	defer func() { _ = healthConn.Close() }()

	httpErrCh := make(chan error, 1)
	go func() { httpErrCh <- serveHTTP(httpSrv, logger) }()

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal")
	case err := <-grpcErrCh:
		logger.Error("grpc serve", zap.Error(err))
	case err := <-httpErrCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", zap.Error(err))
		}
	}

	hs.Shutdown()
	if err := shutdownHTTP(httpSrv, cfg.Server.GracefulTimeout); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()
	logger.Info("bye")
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
