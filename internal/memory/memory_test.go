package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"inorbit/internal/core"
)

const fixture = `
categories: [work, health]
goals:
  - title: Correr
    category: health
    period: week
    desired_frequency: 3
    completions: ["-1h", "-2h"]
  - title: Viajar
    period: month
    desired_frequency: 1
`

func writeFixture(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func window() (time.Time, time.Time) {
	now := time.Now()
	return now.Add(-24 * time.Hour), now.Add(time.Hour)
}

func TestNewFromFile(t *testing.T) {
	ctx := context.Background()
	s, err := NewFromFile(ctx, writeFixture(t, t.TempDir(), fixture))
	require.NoError(t, err)

	cats, err := s.Categories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 2)

	from, to := window()
	goals, err := s.Goals(ctx, core.PeriodWeek, from, to)
	require.NoError(t, err)
	require.Len(t, goals, 1)
	require.Equal(t, 2, goals[0].CompletionCount)

	completions, err := s.Completions(ctx, core.PeriodWeek, from, to)
	require.NoError(t, err)
	require.Len(t, completions, 2)
	require.Equal(t, "health", completions[0].Category)
	require.True(t, completions[0].CompletedAt.After(completions[1].CompletedAt))

	monthly, err := s.Goals(ctx, core.PeriodMonth, from, to)
	require.NoError(t, err)
	require.Len(t, monthly, 1)
}

func TestEmptyPath(t *testing.T) {
	s, err := NewFromFile(context.Background(), "")
	require.NoError(t, err)
	cats, _ := s.Categories(context.Background())
	require.Empty(t, cats)
}

func TestCompletionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.CreateGoal(ctx, core.Goal{Title: "Ler", Category: "nope", Period: core.PeriodWeek, DesiredFrequency: 1})
	require.True(t, errors.Is(err, core.ErrNotFound))

	g, err := s.CreateGoal(ctx, core.Goal{Title: "Ler", Period: core.PeriodWeek, DesiredFrequency: 1})
	require.NoError(t, err)

	c, err := s.CreateCompletion(ctx, g.ID, time.Now())
	require.NoError(t, err)

	from, to := window()
	got, err := s.Goal(ctx, g.ID, from, to)
	require.NoError(t, err)
	require.True(t, got.Done())

	deleted, err := s.DeleteCompletion(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, "Ler", deleted.Title)

	_, err = s.DeleteCompletion(ctx, c.ID)
	require.True(t, errors.Is(err, core.ErrNotFound))

	_, err = s.CreateCompletion(ctx, "missing", time.Now())
	require.True(t, errors.Is(err, core.ErrNotFound))
}

func TestReloadKeepsContentOnError(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := writeFixture(t, dir, fixture)
	s, err := NewFromFile(ctx, path)
	require.NoError(t, err)

	writeFixture(t, dir, "goals: [{title: x, period: week, desired_frequency: 99}]")
	require.Error(t, s.Reload(ctx, path))

	cats, _ := s.Categories(ctx)
	require.Len(t, cats, 2)
}

func TestWatchReloadsOnWrite(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := t.TempDir()
	path := writeFixture(t, dir, fixture)
	s, err := NewFromFile(ctx, path)
	require.NoError(t, err)

	var reloads atomic.Int32
	require.NoError(t, s.Watch(ctx, path, func() { reloads.Add(1) }))

	writeFixture(t, dir, "categories: [only]\n")

	require.Eventually(t, func() bool {
		cats, _ := s.Categories(ctx)
		return reloads.Load() > 0 && len(cats) == 1 && cats[0].Name == "only"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCreateCompletionWithin(t *testing.T) {
	ctx := context.Background()
	s := New()
	g, err := s.CreateGoal(ctx, core.Goal{Title: "Ler", Period: core.PeriodWeek, DesiredFrequency: 1})
	require.NoError(t, err)
	from, to := window()

	_, err = s.CreateCompletion(ctx, g.ID, from.Add(-time.Hour))
	require.NoError(t, err, "completion before the window")

	_, err = s.CreateCompletionWithin(ctx, g.ID, time.Now(), from, to)
	require.NoError(t, err)

	_, err = s.CreateCompletionWithin(ctx, g.ID, time.Now(), from, to)
	require.True(t, errors.Is(err, core.ErrGoalAlreadyDone))

	_, err = s.CreateCompletionWithin(ctx, "missing", time.Now(), from, to)
	require.True(t, errors.Is(err, core.ErrNotFound))
}
