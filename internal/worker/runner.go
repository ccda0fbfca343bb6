package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"booking-engine/internal/pkg/config"
	"booking-engine/internal/usecase/commands"
)

// Runner drives the periodic background jobs: the hold sweeper and the
// payment reconciler. Each job runs on at most one instance at a time.
type Runner struct {
	reservations commands.ReservationCommands
	payments     commands.PaymentCommands
	leader       Leader
	cfg          config.WorkerConfig
	logger       *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRunner(
	reservations commands.ReservationCommands,
	payments commands.PaymentCommands,
	leader Leader,
	cfg config.WorkerConfig,
	logger *slog.Logger,
) *Runner {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Runner{
		reservations: reservations,
		payments:     payments,
		leader:       leader,
		cfg:          cfg,
		logger:       logger.With("component", "worker"),
	}
}

func (r *Runner) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(context.WithoutCancel(ctx))
	r.loop(ctx, "hold_sweeper", r.cfg.SweepInterval, r.cfg.LeaderLockKey, r.Sweep)
	r.loop(ctx, "payment_reconciler", r.cfg.ReconcileInterval, r.cfg.LeaderLockKey+1, r.Reconcile)
}

func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

func (r *Runner) loop(ctx context.Context, name string, every time.Duration, key int64, job func(context.Context) error) {
	if every <= 0 {
		r.logger.Warn("background job disabled", "job", name)
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				ran, err := r.leader.RunIfLeader(ctx, key, job)
				if err != nil {
					r.logger.Error("background job failed", "job", name, "error", err.Error())
				} else if !ran {
					r.logger.Debug("background job skipped, not leader", "job", name)
				}
			}
		}
	}()
}

func (r *Runner) Sweep(ctx context.Context) error {
	n, err := r.reservations.SweepExpiredHolds(ctx, r.cfg.BatchSize)
	if err != nil {
		return err
	}
	if n > 0 {
		r.logger.Info("expired elapsed holds", "count", n)
	}
	return nil
}

func (r *Runner) Reconcile(ctx context.Context) error {
	report, err := r.payments.Reconcile(ctx, r.cfg.BatchSize)
	if err != nil {
		return err
	}
	r.logger.Info("payment reconciliation finished",
		"confirmed", report.Confirmed,
		"failed", report.Failed,
		"expired", report.Expired,
		"refunded", report.Refunded,
		"skipped", report.Skipped,
		"errors", report.Errors)
	return nil
}
