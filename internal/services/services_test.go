package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"inorbit/internal/core"
	"inorbit/internal/memory"
)

// countingStore counts reads that reach the backing store.
type countingStore struct {
	*memory.Store
	goals, completions, categories atomic.Int64
}

func newCountingStore() *countingStore { return &countingStore{Store: memory.New()} }

func (s *countingStore) Goals(ctx context.Context, p core.Period, from, to time.Time) ([]core.Goal, error) {
	s.goals.Add(1)
	return s.Store.Goals(ctx, p, from, to)
}

func (s *countingStore) Completions(ctx context.Context, p core.Period, from, to time.Time) ([]core.Completion, error) {
	s.completions.Add(1)
	return s.Store.Completions(ctx, p, from, to)
}

func (s *countingStore) Categories(ctx context.Context) ([]core.Category, error) {
	s.categories.Add(1)
	return s.Store.Categories(ctx)
}

type recordingInvalidator struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, partitions ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, append([]string(nil), partitions...))
}

func (r *recordingInvalidator) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, c := range r.calls {
		out = append(out, c...)
	}
	return out
}

type recordingNotifier struct {
	mu               sync.Mutex
	success, failure []string
}

func (n *recordingNotifier) Success(_ context.Context, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.success = append(n.success, msg)
}

func (n *recordingNotifier) Error(_ context.Context, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failure = append(n.failure, msg)
}

func (n *recordingNotifier) counts() (int, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.success), len(n.failure)
}

type recordingPublisher struct {
	mu      sync.Mutex
	created []core.Completion
	undone  []core.Completion
	err     error
}

func (p *recordingPublisher) PublishCompletionCreated(_ context.Context, c core.Completion) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, c)
	return p.err
}

func (p *recordingPublisher) PublishCompletionUndone(_ context.Context, c core.Completion) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.undone = append(p.undone, c)
	return p.err
}
