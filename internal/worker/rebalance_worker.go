package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/service"
)

// SystemActor is recorded as changed_by for reassignments made by the worker.
const SystemActor = "system"

// Balancer is the part of the workload service the worker drives.
type Balancer interface {
	BalanceWorkload(ctx context.Context, changedBy string) (service.BalanceResult, error)
}

// RebalanceWorker runs BalanceWorkload on a fixed interval.
type RebalanceWorker struct {
	balancer Balancer
	interval time.Duration
	logger   *zap.Logger
}

// NewRebalanceWorker creates the worker. A non-positive interval yields a
// worker whose Run returns immediately.
func NewRebalanceWorker(balancer Balancer, interval time.Duration, logger *zap.Logger) *RebalanceWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RebalanceWorker{balancer: balancer, interval: interval, logger: logger}
}

// Run blocks until ctx is done. Failed passes are logged and retried on the
// next tick.
func (w *RebalanceWorker) Run(ctx context.Context) {
	if w.balancer == nil || w.interval <= 0 {
		return
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("rebalance worker started", zap.Duration("interval", w.interval))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("rebalance worker stopped")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *RebalanceWorker) runOnce(ctx context.Context) {
	result, err := w.balancer.BalanceWorkload(ctx, SystemActor)
	if err != nil {
		w.logger.Warn("rebalance pass failed", zap.Error(err))
		return
	}
	if result.Reassigned > 0 {
		w.logger.Info("rebalance pass completed",
			zap.Int("reassigned", result.Reassigned),
			zap.Float64("average_load", result.AverageLoad))
	}
}
