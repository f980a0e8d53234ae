package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Reconciler brings a downstream copy in line with the store.
type Reconciler interface {
	Reconcile(ctx context.Context) error
}

type SyncProcessorConfig struct {
	// PollInterval between reconcile passes. Zero means 5m.
	PollInterval time.Duration

	// RunOnStart runs one pass before the first tick.
	RunOnStart bool
}

func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{PollInterval: 5 * time.Minute, RunOnStart: true}
}

var (
	errSyncRunning      = errors.New("sync processor is already running")
	errSyncNoReconciler = errors.New("sync processor has no reconciler")
)

// SyncProcessor periodically reconciles the spreadsheet mirror so that
// completions whose events were lost still reach it.
type SyncProcessor struct {
	reconciler Reconciler
	config     SyncProcessorConfig

	mu     sync.Mutex
	cancel context.CancelFunc // nil while stopped
	done   chan struct{}
	runs   int
}

func NewSyncProcessor(reconciler Reconciler, config SyncProcessorConfig) *SyncProcessor {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultSyncProcessorConfig().PollInterval
	}
	return &SyncProcessor{reconciler: reconciler, config: config}
}

// Start launches the polling loop. The loop ends when ctx is cancelled or
// Stop is called.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case p.cancel != nil:
		return errSyncRunning
	case p.reconciler == nil:
		return errSyncNoReconciler
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(loopCtx, p.done)

	slog.InfoContext(ctx, "Sync processor started", "poll_interval", p.config.PollInterval)
	return nil
}

// Stop ends the loop and waits for an in-flight pass, bounded by ctx.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel = nil
	p.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		slog.InfoContext(ctx, "Sync processor stopped")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}
}

func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Runs reports how many reconcile passes have finished.
func (p *SyncProcessor) Runs() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runs
}

func (p *SyncProcessor) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	tick := time.NewTicker(p.config.PollInterval)
	defer tick.Stop()

	if p.config.RunOnStart {
		p.pass(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			p.pass(ctx)
		}
	}
}

func (p *SyncProcessor) pass(ctx context.Context) {
	if err := p.reconciler.Reconcile(ctx); err != nil {
		slog.ErrorContext(ctx, "Periodic reconcile failed", "error", err)
	}
	p.mu.Lock()
	p.runs++
	p.mu.Unlock()
}
