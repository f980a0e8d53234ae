package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"inorbit/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "db", "inorbit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

var (
	weekFrom = time.Date(2024, 10, 6, 3, 0, 0, 0, time.UTC)
	weekTo   = weekFrom.AddDate(0, 0, 7)
)

func TestMigrationsAreApplied(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()

	v, dirty, err := MigrationVersion(path)
	require.NoError(t, err)
	require.False(t, dirty)
	require.Equal(t, uint(1), v)

	// Re-running is a no-op.
	require.NoError(t, RunMigrations(path))
}

func TestCategories(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	work, err := repo.CreateCategory(ctx, " work ")
	require.NoError(t, err)
	require.Equal(t, "work", work.Name)

	again, err := repo.CreateCategory(ctx, "WORK")
	require.NoError(t, err)
	require.Equal(t, work.ID, again.ID, "names are unique case-insensitively")

	_, err = repo.CreateCategory(ctx, "all")
	require.Error(t, err)

	_, err = repo.CreateCategory(ctx, "health")
	require.NoError(t, err)

	cats, err := repo.Categories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 2)
}

func TestGoalsAndCompletions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	repo.now = func() time.Time { return weekFrom.Add(time.Hour) }

	_, err := repo.CreateCategory(ctx, "health")
	require.NoError(t, err)

	run, err := repo.CreateGoal(ctx, core.Goal{Title: "Correr", Category: "health", Period: core.PeriodWeek, DesiredFrequency: 3})
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)

	read, err := repo.CreateGoal(ctx, core.Goal{Title: "Ler", Period: core.PeriodWeek, DesiredFrequency: 1})
	require.NoError(t, err)

	_, err = repo.CreateGoal(ctx, core.Goal{Title: "Viajar", Period: core.PeriodMonth, DesiredFrequency: 1})
	require.NoError(t, err)

	_, err = repo.CreateGoal(ctx, core.Goal{Title: "X", Category: "missing", Period: core.PeriodWeek, DesiredFrequency: 1})
	require.True(t, errors.Is(err, core.ErrNotFound))

	first, err := repo.CreateCompletion(ctx, run.ID, weekFrom.Add(26*time.Hour))
	require.NoError(t, err)
	require.Equal(t, "Correr", first.Title)
	require.Equal(t, "health", first.Category)

	_, err = repo.CreateCompletion(ctx, run.ID, weekFrom.Add(50*time.Hour))
	require.NoError(t, err)
	_, err = repo.CreateCompletion(ctx, read.ID, weekFrom.Add(-time.Hour))
	require.NoError(t, err, "completion outside the window")

	_, err = repo.CreateCompletion(ctx, "nope", weekFrom)
	require.True(t, errors.Is(err, core.ErrNotFound))

	goals, err := repo.Goals(ctx, core.PeriodWeek, weekFrom, weekTo)
	require.NoError(t, err)
	require.Len(t, goals, 2)
	require.Equal(t, "Correr", goals[0].Title)
	require.Equal(t, 2, goals[0].CompletionCount)
	require.Equal(t, 0, goals[1].CompletionCount)
	require.Equal(t, "", goals[1].Category)

	completions, err := repo.Completions(ctx, core.PeriodWeek, weekFrom, weekTo)
	require.NoError(t, err)
	require.Len(t, completions, 2)
	require.True(t, completions[0].CompletedAt.After(completions[1].CompletedAt), "newest first")

	monthly, err := repo.Completions(ctx, core.PeriodMonth, weekFrom, weekTo)
	require.NoError(t, err)
	require.Empty(t, monthly)

	g, err := repo.Goal(ctx, run.ID, weekFrom, weekTo)
	require.NoError(t, err)
	require.Equal(t, 2, g.CompletionCount)
}

func TestDeleteCompletion(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	goal, err := repo.CreateGoal(ctx, core.Goal{Title: "Meditar", Period: core.PeriodWeek, DesiredFrequency: 2})
	require.NoError(t, err)
	c, err := repo.CreateCompletion(ctx, goal.ID, time.Now())
	require.NoError(t, err)

	deleted, err := repo.DeleteCompletion(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, c.ID, deleted.ID)
	require.Equal(t, goal.ID, deleted.GoalID)

	_, err = repo.DeleteCompletion(ctx, c.ID)
	require.True(t, errors.Is(err, core.ErrNotFound), "second delete must report not found, got %v", err)
}

func TestPing(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.Ping(context.Background()))
}

func TestCreateCompletionWithin(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	goal, err := repo.CreateGoal(ctx, core.Goal{Title: "Correr", Period: core.PeriodWeek, DesiredFrequency: 2})
	require.NoError(t, err)

	_, err = repo.CreateCompletion(ctx, goal.ID, weekFrom.Add(-time.Hour))
	require.NoError(t, err, "completion before the window")

	at := weekFrom.Add(time.Hour)
	first, err := repo.CreateCompletionWithin(ctx, goal.ID, at, weekFrom, weekTo)
	require.NoError(t, err)
	require.Equal(t, "Correr", first.Title)
	_, err = repo.CreateCompletionWithin(ctx, goal.ID, at, weekFrom, weekTo)
	require.NoError(t, err)

	_, err = repo.CreateCompletionWithin(ctx, goal.ID, at, weekFrom, weekTo)
	require.True(t, errors.Is(err, core.ErrGoalAlreadyDone))

	_, err = repo.CreateCompletionWithin(ctx, "nope", at, weekFrom, weekTo)
	require.True(t, errors.Is(err, core.ErrNotFound))
}

func TestCreateCompletionWithinConcurrent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	goal, err := repo.CreateGoal(ctx, core.Goal{Title: "Meditar", Period: core.PeriodWeek, DesiredFrequency: 1})
	require.NoError(t, err)

	errs := make([]error, 4)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.CreateCompletionWithin(ctx, goal.ID, weekFrom.Add(time.Hour), weekFrom, weekTo)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		require.ErrorIs(t, err, core.ErrGoalAlreadyDone)
	}
	require.Equal(t, 1, ok)

	g, err := repo.Goal(ctx, goal.ID, weekFrom, weekTo)
	require.NoError(t, err)
	require.Equal(t, 1, g.CompletionCount)
}
