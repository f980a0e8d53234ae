package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"inorbit/internal/cache"
	"inorbit/internal/core"
	"inorbit/internal/locale"
	"inorbit/internal/ports"
)

// Invalidator drops cached query results by partition.
type Invalidator interface {
	Invalidate(ctx context.Context, partitions ...string)
}

// GoalStore is the write side of a data backend.
type GoalStore interface {
	ports.CategoryWriter
	ports.GoalReader
	ports.GoalWriter
	ports.CompletionWriter
	ports.CompletionDeleter
}

// GoalService orchestrates goal writes across the store, the query cache and AMQP.
type GoalService struct {
	store       GoalStore
	publisher   ports.EventPublisher
	invalidator Invalidator
	fmt         *locale.Formatter
	now         func() time.Time
}

var _ ports.CompletionDeleter = (*GoalService)(nil)

func NewGoalService(store GoalStore, publisher ports.EventPublisher, invalidator Invalidator, f *locale.Formatter) *GoalService {
	return &GoalService{
		store:       store,
		publisher:   publisher,
		invalidator: invalidator,
		fmt:         f,
		now:         time.Now,
	}
}

// CreateGoal saves a goal, creating its category on first use.
func (s *GoalService) CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	g.Title = strings.TrimSpace(g.Title)
	g.Category = strings.TrimSpace(g.Category)
	if err := g.Validate(); err != nil {
		return core.Goal{}, fmt.Errorf("validation failed: %w", err)
	}

	if g.Category != "" {
		if _, err := s.CreateCategory(ctx, g.Category); err != nil {
			return core.Goal{}, err
		}
	}

	saved, err := s.store.CreateGoal(ctx, g)
	if err != nil {
		return core.Goal{}, fmt.Errorf("save goal: %w", err)
	}
	s.invalidate(ctx, cache.CompletionPartitions...)
	return saved, nil
}

// CreateCategory returns the category named name, creating it if needed.
func (s *GoalService) CreateCategory(ctx context.Context, name string) (core.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Category{}, core.ErrEmptyCategoryName
	}
	if strings.EqualFold(name, core.AllCategories) {
		return core.Category{}, fmt.Errorf("%w: %q", core.ErrReservedCategory, core.AllCategories)
	}
	c, err := s.store.CreateCategory(ctx, name)
	if err != nil {
		return core.Category{}, fmt.Errorf("save category: %w", err)
	}
	s.invalidate(ctx, cache.PartitionCategories)
	return c, nil
}

// CompleteGoal records one completion of goalID now. A goal that already
// reached its desired frequency in the current window is rejected with
// core.ErrGoalAlreadyDone.
func (s *GoalService) CompleteGoal(ctx context.Context, goalID string) (core.Completion, error) {
	if strings.TrimSpace(goalID) == "" {
		return core.Completion{}, core.ErrEmptyID
	}
	now := s.fmt.In(s.now())

	g, from, to, err := s.goalInWindow(ctx, goalID, now)
	if err != nil {
		return core.Completion{}, err
	}
	if g.Done() {
		return core.Completion{}, core.ErrGoalAlreadyDone
	}

	// The store rechecks the count; a concurrent complete may have filled the goal.
	c, err := s.store.CreateCompletionWithin(ctx, goalID, now, from, to)
	if err != nil {
		return core.Completion{}, fmt.Errorf("save completion: %w", err)
	}

	if err := s.publishCreated(ctx, c); err != nil {
		slog.ErrorContext(ctx, "Failed to publish completion event",
			"completion_id", c.ID, "error", err)
	}
	s.invalidate(ctx, cache.CompletionPartitions...)
	return c, nil
}

// DeleteCompletion removes a completion and announces it. Cache
// invalidation is left to the caller.
func (s *GoalService) DeleteCompletion(ctx context.Context, id string) (core.Completion, error) {
	c, err := s.store.DeleteCompletion(ctx, id)
	if err != nil {
		return core.Completion{}, fmt.Errorf("delete completion: %w", err)
	}
	if err := s.publishUndone(ctx, c); err != nil {
		slog.ErrorContext(ctx, "Failed to publish completion event",
			"completion_id", c.ID, "error", err)
	}
	return c, nil
}

// goalInWindow loads the goal with its count over the window of its period
// and returns that window.
func (s *GoalService) goalInWindow(ctx context.Context, id string, now time.Time) (core.Goal, time.Time, time.Time, error) {
	from, to := WeekWindow{}.Bounds(s.fmt, now)
	g, err := s.store.Goal(ctx, id, from, to)
	if err != nil {
		return core.Goal{}, from, to, fmt.Errorf("get goal: %w", err)
	}
	if g.Period == core.PeriodWeek {
		return g, from, to, nil
	}
	w, err := GetPeriodWindow(g.Period)
	if err != nil {
		return core.Goal{}, from, to, err
	}
	from, to = w.Bounds(s.fmt, now)
	g, err = s.store.Goal(ctx, id, from, to)
	if err != nil {
		return core.Goal{}, from, to, fmt.Errorf("get goal: %w", err)
	}
	return g, from, to, nil
}

func (s *GoalService) invalidate(ctx context.Context, partitions ...string) {
	if s.invalidator == nil {
		return
	}
	s.invalidator.Invalidate(ctx, partitions...)
}

func (s *GoalService) publishCreated(ctx context.Context, c core.Completion) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping completion event")
		return nil
	}
	return s.publisher.PublishCompletionCreated(ctx, c)
}

func (s *GoalService) publishUndone(ctx context.Context, c core.Completion) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping completion event")
		return nil
	}
	return s.publisher.PublishCompletionUndone(ctx, c)
}
