package worker

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ReconcilerConfig holds configuration for the periodic reconciler
type ReconcilerConfig struct {
	// Interval is how often to reconcile (default: 10m)
	Interval time.Duration
}

func DefaultReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{Interval: 10 * time.Minute}
}

// Reconciler runs SyncWorker.Reconcile on startup and then on every tick.
type Reconciler struct {
	worker *SyncWorker
	config ReconcilerConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewReconciler(worker *SyncWorker, config ReconcilerConfig) *Reconciler {
	if config.Interval <= 0 {
		config.Interval = DefaultReconcilerConfig().Interval
	}
	return &Reconciler{worker: worker, config: config}
}

// Start begins the reconcile loop. Returns an error if already running.
func (r *Reconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("reconciler is already running")
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	stopCh, doneCh := r.stopCh, r.doneCh
	r.mu.Unlock()

	go r.runLoop(ctx, stopCh, doneCh)

	r.worker.logger.InfoContext(ctx, "Reconciler started", "interval", r.config.Interval)
	return nil
}

// Stop signals the loop and waits for the pass in flight to finish.
func (r *Reconciler) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	stopCh, doneCh := r.stopCh, r.doneCh
	r.running = false
	r.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		r.worker.logger.InfoContext(ctx, "Reconciler stopped gracefully")
		return nil
	case <-ctx.Done():
		r.worker.logger.WarnContext(ctx, "Reconciler stop timed out")
		return ctx.Err()
	}
}

func (r *Reconciler) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Reconciler) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	r.pass(ctx)

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.pass(ctx)
		}
	}
}

func (r *Reconciler) pass(ctx context.Context) {
	if _, err := r.worker.Reconcile(ctx); err != nil {
		r.worker.logger.ErrorContext(ctx, "Reconcile failed", "error", err)
	}
}
