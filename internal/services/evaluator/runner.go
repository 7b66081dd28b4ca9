package evaluator

import (
	"context"
	"errors"
	"time"

	config "github.com/NordCoder/Ratewatch/internal/config/evaluator"
	pg "github.com/NordCoder/Ratewatch/internal/repository/postgres"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

type Locker interface {
	WithLock(ctx context.Context, key int64, fn func(ctx context.Context) error) error
}

type Runner struct {
	Log  *zap.Logger
	UC   *Usecase
	Lock Locker
	Cfg  *config.EvalCfg

	mCycles     *prometheus.CounterVec
	mFired      prometheus.Counter
	mSkipped    prometheus.Counter
	mDeliveries *prometheus.CounterVec
	mErr        prometheus.Counter
	mLoopDur    prometheus.Histogram
	mPending    prometheus.Gauge
}

func New(log *zap.Logger, uc *Usecase, lock Locker, cfg *config.EvalCfg) *Runner {
	return &Runner{
		Log:  log.With(zap.String("component", "evaluator.runner")),
		UC:   uc,
		Lock: lock,
		Cfg:  cfg,
		mCycles: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "evaluator_cycles_total", Help: "Evaluation cycles by outcome",
		}, []string{"outcome"}),
		mFired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "evaluator_alerts_fired_total", Help: "Alerts marked fired",
		}),
		mSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "evaluator_alerts_skipped_total", Help: "Alerts skipped for a missing quote",
		}),
		mDeliveries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "evaluator_webhook_deliveries_total", Help: "Webhook POSTs by result",
		}, []string{"result"}),
		mErr: promauto.NewCounter(prometheus.CounterOpts{
			Name: "evaluator_errors_total", Help: "Errors in evaluator loop",
		}),
		mLoopDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "evaluator_cycle_duration_seconds", Help: "Evaluation cycle duration",
			Buckets: prometheus.DefBuckets,
		}),
		mPending: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "evaluator_pending_alerts", Help: "Pending alerts seen by the last cycle",
		}),
	}
}

func (r *Runner) tick(ctx context.Context) {
	start := time.Now()
	defer func() { r.mLoopDur.Observe(time.Since(start).Seconds()) }()

	var st Stats
	err := r.Lock.WithLock(ctx, r.Cfg.LockKey, func(ctx context.Context) error {
		var err error
		st, err = r.UC.Tick(ctx)
		return err
	})

	switch {
	case errors.Is(err, pg.ErrLockBusy):
		r.mCycles.WithLabelValues("locked").Inc()
		r.Log.Debug("another evaluator holds the lock, skipping cycle")
		return
	case err != nil:
		r.mCycles.WithLabelValues("error").Inc()
		r.mErr.Inc()
		r.Log.Warn("cycle aborted", zap.Error(err))
		return
	}

	r.mCycles.WithLabelValues("ok").Inc()
	r.mPending.Set(float64(st.Pending))
	r.mFired.Add(float64(st.Fired))
	r.mSkipped.Add(float64(st.Skipped))
	r.mDeliveries.WithLabelValues("ok").Add(float64(st.Deliveries - st.DeliveryErrors))
	r.mDeliveries.WithLabelValues("error").Add(float64(st.DeliveryErrors))
	if st.Errors > 0 {
		r.mErr.Add(float64(st.Errors))
	}
	if st.Pending > 0 {
		r.Log.Debug("cycle done",
			zap.Int("pending", st.Pending),
			zap.Int("quoted", st.Quoted),
			zap.Int("fired", st.Fired),
			zap.Int("skipped", st.Skipped),
			zap.Int("deliveries", st.Deliveries),
			zap.Int("delivery_errors", st.DeliveryErrors),
		)
	}
}

// Run evaluates once immediately and then on every tick until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.Cfg.Tick)
	defer ticker.Stop()

	r.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}
