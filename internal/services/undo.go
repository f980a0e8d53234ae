package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"

	"inorbit/internal/cache"
	"inorbit/internal/core"
	"inorbit/internal/ports"
)

const (
	UndoSuccessMessage = "Conclusão desfeita."
	UndoErrorMessage   = "Não foi possível desfazer a conclusão."
)

// Notifier shows a transient message to whoever triggered an action.
type Notifier interface {
	Success(ctx context.Context, message string)
	Error(ctx context.Context, message string)
}

// Invalidators fans an invalidation out to several targets in order.
type Invalidators []Invalidator

func (is Invalidators) Invalidate(ctx context.Context, partitions ...string) {
	for _, i := range is {
		if i != nil {
			i.Invalidate(ctx, partitions...)
		}
	}
}

// Outcome is the settled result of one undo request.
type Outcome struct {
	Completion core.Completion
	Err        error
	// Shared is set when the deletion was performed on behalf of a
	// concurrent request for the same id.
	Shared bool
}

func (o Outcome) OK() bool { return o.Err == nil }

// NotFound reports whether the completion did not exist.
func (o Outcome) NotFound() bool { return errors.Is(o.Err, core.ErrNotFound) }

// UndoCompletion removes a completion on the user's behalf. Each call
// notifies exactly once; only a successful call invalidates, and it
// invalidates cache.CompletionPartitions. Concurrent calls for the same id
// share one deletion.
type UndoCompletion struct {
	deleter     ports.CompletionDeleter
	notifier    Notifier
	invalidator Invalidator
	group       singleflight.Group
}

func NewUndoCompletion(deleter ports.CompletionDeleter, notifier Notifier, invalidator Invalidator) *UndoCompletion {
	return &UndoCompletion{deleter: deleter, notifier: notifier, invalidator: invalidator}
}

// Run blocks until the deletion settles. It never retries.
func (u *UndoCompletion) Run(ctx context.Context, id string) Outcome {
	id = strings.TrimSpace(id)
	if id == "" {
		u.notifier.Error(ctx, UndoErrorMessage)
		return Outcome{Err: core.ErrEmptyID}
	}

	// Joined callers must not inherit the first caller's cancellation.
	deleteCtx := context.WithoutCancel(ctx)
	v, err, shared := u.group.Do(id, func() (any, error) {
		return u.deleter.DeleteCompletion(deleteCtx, id)
	})
	if err != nil {
		slog.WarnContext(ctx, "Undo completion failed",
			"component", "undo", "completion_id", id, "shared", shared, "error", err)
		u.notifier.Error(ctx, UndoErrorMessage)
		return Outcome{Err: err, Shared: shared}
	}

	c, _ := v.(core.Completion)
	u.notifier.Success(ctx, UndoSuccessMessage)
	u.invalidator.Invalidate(ctx, cache.CompletionPartitions...)

	slog.InfoContext(ctx, "Completion undone",
		"component", "undo", "completion_id", id, "goal_id", c.GoalID, "shared", shared)
	return Outcome{Completion: c, Shared: shared}
}
