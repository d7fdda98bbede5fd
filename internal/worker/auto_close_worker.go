package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/service"
)

// Sweeper runs one auto-close pass.
type Sweeper interface {
	Sweep(ctx context.Context) (service.SweepResult, error)
}

// AutoCloseWorker runs the auto-close sweep on a cron schedule. Overlapping
// runs are skipped rather than queued.
type AutoCloseWorker struct {
	sweeper  Sweeper
	schedule string
	logger   *zap.Logger
	cron     *cron.Cron

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewAutoCloseWorker creates the worker. schedule accepts standard cron
// expressions and descriptors such as "@every 5m".
func NewAutoCloseWorker(sweeper Sweeper, schedule string, logger *zap.Logger) *AutoCloseWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AutoCloseWorker{
		sweeper:  sweeper,
		schedule: schedule,
		logger:   logger,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
}

// Start schedules the sweep and starts the cron loop.
func (w *AutoCloseWorker) Start(parent context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return fmt.Errorf("auto-close worker already started")
	}
	if _, err := w.cron.AddFunc(w.schedule, func() { w.RunOnce(w.ctx) }); err != nil {
		return fmt.Errorf("schedule auto-close sweep %q: %w", w.schedule, err)
	}
	w.ctx, w.cancel = context.WithCancel(parent)
	w.cron.Start()
	w.logger.Info("auto-close worker started", zap.String("schedule", w.schedule))
	return nil
}

// RunOnce performs a single sweep and logs its outcome.
func (w *AutoCloseWorker) RunOnce(ctx context.Context) {
	result, err := w.sweeper.Sweep(ctx)
	if err != nil {
		w.logger.Error("auto-close sweep failed", zap.Error(err))
		return
	}
	w.logger.Debug("auto-close sweep finished",
		zap.Int("closed", len(result.Closed)),
		zap.Time("cutoff", result.Cutoff))
}

// Stop cancels in-flight sweeps and waits for the cron loop to finish.
func (w *AutoCloseWorker) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-w.cron.Stop().Done()
	w.logger.Info("auto-close worker stopped")
}
