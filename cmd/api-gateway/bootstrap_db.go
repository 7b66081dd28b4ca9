package main

import (
	"context"
	"time"

	pg "github.com/NordCoder/Ratewatch/internal/repository/postgres"
	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func initDB(ctx context.Context, cfg pg.Config, logger *zap.Logger) (*pg.DB, error) {
	db, err := pg.NewDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("db connected", zap.Int32("max_conns", cfg.MaxConns))
	return db, nil
}

// watchDB flips the gRPC health status with the database reachability.
func watchDB(ctx context.Context, db *pg.DB, hs *health.Server, every time.Duration, logger *zap.Logger) {
	t := time.NewTicker(every)
	defer t.Stop()
	last := healthpb.HealthCheckResponse_SERVING
	for {
		status := healthpb.HealthCheckResponse_SERVING
		if err := db.Ping(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			status = healthpb.HealthCheckResponse_NOT_SERVING
			logger.Warn("db ping failed", zap.Error(err))
		}
		if status != last {
			logger.Info("health status changed", zap.String("status", status.String()))
			last = status
		}
		hs.SetServingStatus("", status)
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
