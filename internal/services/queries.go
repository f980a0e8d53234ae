package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"inorbit/internal/cache"
	"inorbit/internal/core"
	"inorbit/internal/locale"
	"inorbit/internal/ports"
)

// QueryStore is the read side of a data backend.
type QueryStore interface {
	ports.CategoryReader
	ports.GoalReader
	ports.CompletionReader
}

// Queries serves the read models behind the summary and pending-goal views.
// Results are cached per partition and keyed by the window they cover.
type Queries struct {
	store QueryStore
	cache *cache.QueryCache
	fmt   *locale.Formatter
}

// WeekData is everything the weekly page renders.
type WeekData struct {
	Summary    core.WeekSummary
	Categories core.CategoryList
}

type MonthData struct {
	Summary    core.MonthSummary
	Categories core.CategoryList
}

// NewQueries wires the read side. A nil cache disables caching.
func NewQueries(store QueryStore, c *cache.QueryCache, f *locale.Formatter) *Queries {
	return &Queries{store: store, cache: c, fmt: f}
}

func (q *Queries) Formatter() *locale.Formatter { return q.fmt }

// WeekSummary returns the summary of the week holding now.
func (q *Queries) WeekSummary(ctx context.Context, now time.Time) (core.WeekSummary, error) {
	w := WeekWindow{}
	return load(ctx, q, cache.PartitionSummaryWeek, w.Key(q.fmt, now), func(ctx context.Context) (core.WeekSummary, error) {
		from, to := w.Bounds(q.fmt, now)
		goals, comps, err := q.window(ctx, core.PeriodWeek, from, to)
		if err != nil {
			return core.WeekSummary{}, err
		}
		s := SummarizeWeek(q.fmt, goals, comps)
		if err := s.Validate(); err != nil {
			return core.WeekSummary{}, err
		}
		if s.Overflows() {
			slog.WarnContext(ctx, "Week summary completed exceeds total",
				"component", "summary", "completed", s.Completed, "total", s.Total)
		}
		return s, nil
	})
}

// MonthSummary returns the summary of the month holding now.
func (q *Queries) MonthSummary(ctx context.Context, now time.Time) (core.MonthSummary, error) {
	w := MonthWindow{}
	return load(ctx, q, cache.PartitionSummaryMonth, w.Key(q.fmt, now), func(ctx context.Context) (core.MonthSummary, error) {
		from, to := w.Bounds(q.fmt, now)
		goals, comps, err := q.window(ctx, core.PeriodMonth, from, to)
		if err != nil {
			return core.MonthSummary{}, err
		}
		s := SummarizeMonth(q.fmt, goals, comps)
		if err := s.Validate(); err != nil {
			return core.MonthSummary{}, err
		}
		if s.Overflows() {
			slog.WarnContext(ctx, "Month summary completed exceeds total",
				"component", "summary", "completed", s.Completed, "total", s.Total)
		}
		return s, nil
	})
}

// PendingGoals lists the goals of period with their completion count in
// the window holding now.
func (q *Queries) PendingGoals(ctx context.Context, period core.Period, now time.Time) ([]core.Goal, error) {
	w, err := GetPeriodWindow(period)
	if err != nil {
		return nil, err
	}
	partition := cache.PartitionPendingGoals
	if period == core.PeriodMonth {
		partition = cache.PartitionPendingGoalsMonth
	}
	return load(ctx, q, partition, w.Key(q.fmt, now), func(ctx context.Context) ([]core.Goal, error) {
		from, to := w.Bounds(q.fmt, now)
		goals, err := q.store.Goals(ctx, period, from, to)
		if err != nil {
			return nil, fmt.Errorf("list %s goals: %w", period, err)
		}
		return goals, nil
	})
}

// Categories returns the user categories, validated.
func (q *Queries) Categories(ctx context.Context) (core.CategoryList, error) {
	return load(ctx, q, cache.PartitionCategories, "all", func(ctx context.Context) (core.CategoryList, error) {
		cats, err := q.store.Categories(ctx)
		if err != nil {
			return core.CategoryList{}, fmt.Errorf("list categories: %w", err)
		}
		list := core.CategoryList{UserCategories: cats}
		if list.UserCategories == nil {
			list.UserCategories = []core.Category{}
		}
		if err := list.Validate(); err != nil {
			return core.CategoryList{}, err
		}
		return list, nil
	})
}

// Week loads the weekly summary and the categories in parallel.
func (q *Queries) Week(ctx context.Context, now time.Time) (WeekData, error) {
	var d WeekData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		d.Summary, err = q.WeekSummary(gctx, now)
		return err
	})
	g.Go(func() error {
		var err error
		d.Categories, err = q.Categories(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return WeekData{}, err
	}
	return d, nil
}

// Month loads the monthly summary and the categories in parallel.
func (q *Queries) Month(ctx context.Context, now time.Time) (MonthData, error) {
	var d MonthData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		d.Summary, err = q.MonthSummary(gctx, now)
		return err
	})
	g.Go(func() error {
		var err error
		d.Categories, err = q.Categories(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return MonthData{}, err
	}
	return d, nil
}

func (q *Queries) window(ctx context.Context, period core.Period, from, to time.Time) ([]core.Goal, []core.Completion, error) {
	var (
		goals []core.Goal
		comps []core.Completion
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		goals, err = q.store.Goals(gctx, period, from, to)
		if err != nil {
			return fmt.Errorf("list %s goals: %w", period, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		comps, err = q.store.Completions(gctx, period, from, to)
		if err != nil {
			return fmt.Errorf("list %s completions: %w", period, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return goals, comps, nil
}

func load[T any](ctx context.Context, q *Queries, partition, key string, fn func(context.Context) (T, error)) (T, error) {
	if q.cache == nil {
		return fn(ctx)
	}
	return cache.GetOrLoad(ctx, q.cache, partition, key, fn)
}
