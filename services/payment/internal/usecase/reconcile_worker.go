package usecase

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Reconciler runs one reconciliation pass
type Reconciler interface {
	Reconcile(ctx context.Context) (*ReconcileReport, error)
}

// ReconcileWorker runs Reconcile on a fixed interval until stopped
type ReconcileWorker struct {
	reconciler Reconciler
	interval   time.Duration
	logger     *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewReconcileWorker creates a new reconcile worker
func NewReconcileWorker(reconciler Reconciler, interval time.Duration, logger *zap.Logger) *ReconcileWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &ReconcileWorker{
		reconciler: reconciler,
		interval:   interval,
		logger:     logger,
	}
}

// Start launches the worker. The first pass runs immediately.
func (w *ReconcileWorker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		return
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})

	go w.run(ctx, w.done)

	w.logger.Info("Reconcile worker started", zap.Duration("interval", w.interval))
}

// Stop stops the worker and waits for a running pass to finish
func (w *ReconcileWorker) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	w.logger.Info("Reconcile worker stopped")
}

func (w *ReconcileWorker) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.runOnce(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *ReconcileWorker) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := w.reconciler.Reconcile(ctx); err != nil && ctx.Err() == nil {
		w.logger.Error("Reconciliation pass failed", zap.Error(err))
	}
}
