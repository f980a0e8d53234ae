package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"inorbit/internal/cache"
	"inorbit/internal/core"
)

type stubDeleter struct {
	calls   atomic.Int64
	err     error
	entered chan struct{}
	release chan struct{}
}

func (d *stubDeleter) DeleteCompletion(ctx context.Context, id string) (core.Completion, error) {
	d.calls.Add(1)
	if d.entered != nil {
		d.entered <- struct{}{}
	}
	if d.release != nil {
		select {
		case <-d.release:
		case <-ctx.Done():
			return core.Completion{}, ctx.Err()
		}
	}
	if d.err != nil {
		return core.Completion{}, d.err
	}
	return core.Completion{ID: id, GoalID: "g1", CompletedAt: time.Now()}, nil
}

func TestUndoCompletion_Success(t *testing.T) {
	del := &stubDeleter{}
	n := &recordingNotifier{}
	inv := &recordingInvalidator{}
	u := NewUndoCompletion(del, n, inv)

	out := u.Run(context.Background(), "c1")

	require.True(t, out.OK())
	require.Equal(t, "c1", out.Completion.ID)
	succ, fail := n.counts()
	require.Equal(t, 1, succ)
	require.Equal(t, 0, fail)
	require.Equal(t, []string{"pending-goals-month", "summary-week", "pending-goals", "summary-month"}, inv.all())
	require.Len(t, inv.calls, 1)
}

func TestUndoCompletion_Failure(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		notFound bool
	}{
		{"backend error", errors.New("disk I/O error"), false},
		{"not found", core.ErrNotFound, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &recordingNotifier{}
			inv := &recordingInvalidator{}
			u := NewUndoCompletion(&stubDeleter{err: tt.err}, n, inv)

			out := u.Run(context.Background(), "c1")

			require.False(t, out.OK())
			require.Equal(t, tt.notFound, out.NotFound())
			succ, fail := n.counts()
			require.Equal(t, 0, succ)
			require.Equal(t, 1, fail)
			require.Empty(t, inv.all())
		})
	}
}

func TestUndoCompletion_EmptyID(t *testing.T) {
	del := &stubDeleter{}
	n := &recordingNotifier{}
	inv := &recordingInvalidator{}

	out := NewUndoCompletion(del, n, inv).Run(context.Background(), "  ")

	require.ErrorIs(t, out.Err, core.ErrEmptyID)
	require.EqualValues(t, 0, del.calls.Load())
	_, fail := n.counts()
	require.Equal(t, 1, fail)
	require.Empty(t, inv.all())
}

func TestUndoCompletion_ConcurrentSameIDShareOneDeletion(t *testing.T) {
	del := &stubDeleter{entered: make(chan struct{}, 2), release: make(chan struct{})}
	n := &recordingNotifier{}
	inv := &recordingInvalidator{}
	u := NewUndoCompletion(del, n, inv)

	var wg sync.WaitGroup
	outcomes := make([]Outcome, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		outcomes[0] = u.Run(context.Background(), "c1")
	}()
	<-del.entered

	wg.Add(1)
	go func() {
		defer wg.Done()
		outcomes[1] = u.Run(context.Background(), "c1")
	}()
	// let the second caller join the in-flight deletion
	time.Sleep(50 * time.Millisecond)
	close(del.release)
	wg.Wait()

	require.EqualValues(t, 1, del.calls.Load())
	require.True(t, outcomes[0].OK())
	require.True(t, outcomes[1].OK())
	require.Equal(t, outcomes[0].Completion.ID, outcomes[1].Completion.ID)
	succ, fail := n.counts()
	require.Equal(t, 2, succ, "each caller is notified once")
	require.Equal(t, 0, fail)
	require.Len(t, inv.calls, 2)
}

func TestUndoCompletion_JoinedCallerIgnoresFirstCallerCancel(t *testing.T) {
	del := &stubDeleter{entered: make(chan struct{}, 2), release: make(chan struct{})}
	n := &recordingNotifier{}
	inv := &recordingInvalidator{}
	u := NewUndoCompletion(del, n, inv)

	ctxA, cancelA := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	outcomes := make([]Outcome, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		outcomes[0] = u.Run(ctxA, "c1")
	}()
	<-del.entered

	wg.Add(1)
	go func() {
		defer wg.Done()
		outcomes[1] = u.Run(context.Background(), "c1")
	}()
	time.Sleep(50 * time.Millisecond)
	cancelA()
	time.Sleep(20 * time.Millisecond)
	close(del.release)
	wg.Wait()

	require.EqualValues(t, 1, del.calls.Load())
	require.NoError(t, outcomes[0].Err)
	require.NoError(t, outcomes[1].Err)
	require.True(t, outcomes[1].Shared)
	succ, fail := n.counts()
	require.Equal(t, 2, succ)
	require.Equal(t, 0, fail)
}

func TestUndoCompletion_DifferentIDsRunIndependently(t *testing.T) {
	del := &stubDeleter{}
	u := NewUndoCompletion(del, &recordingNotifier{}, &recordingInvalidator{})

	require.True(t, u.Run(context.Background(), "a").OK())
	require.True(t, u.Run(context.Background(), "b").OK())
	require.EqualValues(t, 2, del.calls.Load())
}

func TestInvalidators_FanOut(t *testing.T) {
	a, b := &recordingInvalidator{}, &recordingInvalidator{}
	Invalidators{a, nil, b}.Invalidate(context.Background(), cache.PartitionCategories)
	require.Equal(t, []string{cache.PartitionCategories}, a.all())
	require.Equal(t, []string{cache.PartitionCategories}, b.all())
}
