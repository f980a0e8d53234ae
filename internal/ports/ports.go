package ports

import (
	"context"
	"time"

	"inorbit/internal/core"
)

// Ports for the goal data layer. Time windows are half-open: [from, to).
type (
	CategoryReader interface {
		Categories(ctx context.Context) ([]core.Category, error)
	}

	CategoryWriter interface {
		CreateCategory(ctx context.Context, name string) (core.Category, error)
	}

	// GoalReader returns goals of a period with CompletionCount counted
	// inside the window. Goals created after the window are excluded.
	GoalReader interface {
		Goals(ctx context.Context, period core.Period, from, to time.Time) ([]core.Goal, error)
		Goal(ctx context.Context, id string, from, to time.Time) (core.Goal, error)
	}

	GoalWriter interface {
		CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error)
	}

	// CompletionReader lists completions of goals with the given period,
	// newest first.
	CompletionReader interface {
		Completions(ctx context.Context, period core.Period, from, to time.Time) ([]core.Completion, error)
	}

	CompletionWriter interface {
		CreateCompletion(ctx context.Context, goalID string, at time.Time) (core.Completion, error)
		// CreateCompletionWithin inserts only while the goal has fewer than
		// its desired frequency of completions in [from, to). A full goal
		// yields core.ErrGoalAlreadyDone.
		CreateCompletionWithin(ctx context.Context, goalID string, at, from, to time.Time) (core.Completion, error)
	}

	// CompletionDeleter removes a completion and returns what was removed.
	// A missing id yields core.ErrNotFound.
	CompletionDeleter interface {
		DeleteCompletion(ctx context.Context, id string) (core.Completion, error)
	}

	// Store is everything a data backend provides.
	Store interface {
		CategoryReader
		CategoryWriter
		GoalReader
		GoalWriter
		CompletionReader
		CompletionWriter
		CompletionDeleter
		Ping(ctx context.Context) error
	}

	// EventPublisher announces completion changes to other processes.
	EventPublisher interface {
		PublishCompletionCreated(ctx context.Context, c core.Completion) error
		PublishCompletionUndone(ctx context.Context, c core.Completion) error
	}
)
