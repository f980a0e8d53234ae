package memory

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"inorbit/internal/core"
	"inorbit/internal/ports"
	"inorbit/internal/seed"
)

var _ ports.Store = (*Store)(nil)

type goalRow struct {
	core.Goal
	seq int
}

// Store keeps categories, goals and completions in memory.
type Store struct {
	mu          sync.RWMutex
	categories  []core.Category
	goals       map[string]*goalRow
	completions map[string]core.Completion
	seq         int
	now         func() time.Time
}

func New() *Store {
	return &Store{
		goals:       make(map[string]*goalRow),
		completions: make(map[string]core.Completion),
		now:         time.Now,
	}
}

// NewFromFile builds a store seeded from a YAML fixture. An empty path
// yields an empty store.
func NewFromFile(ctx context.Context, path string) (*Store, error) {
	s := New()
	if path == "" {
		return s, nil
	}
	if err := s.Reload(ctx, path); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload replaces the store content with the fixture at path. On error
// the previous content is kept.
func (s *Store) Reload(ctx context.Context, path string) error {
	f, err := seed.LoadFile(path)
	if err != nil {
		return err
	}
	fresh := New()
	fresh.now = s.now
	if _, err := seed.Apply(ctx, fresh, f, s.now()); err != nil {
		return fmt.Errorf("apply fixture %s: %w", path, err)
	}

	fresh.mu.Lock()
	s.mu.Lock()
	s.categories, s.goals, s.completions, s.seq = fresh.categories, fresh.goals, fresh.completions, fresh.seq
	s.mu.Unlock()
	fresh.mu.Unlock()
	return nil
}

// Watch reloads the fixture whenever the file changes until ctx is done.
// onReload runs after every successful reload.
func (s *Store) Watch(ctx context.Context, path string, onReload func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Editors replace files on save, so watch the directory.
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", path, err)
	}

	go func() {
		defer w.Close()
		target := filepath.Clean(path)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				if err := s.Reload(ctx, path); err != nil {
					slog.WarnContext(ctx, "Seed reload failed", "component", "storage", "path", path, "error", err)
					continue
				}
				slog.InfoContext(ctx, "Seed reloaded", "component", "storage", "path", path)
				if onReload != nil {
					onReload()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Seed watcher error", "component", "storage", "error", err)
			}
		}
	}()
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Categories(context.Context) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Category{}, s.categories...), nil
}

func (s *Store) CreateCategory(_ context.Context, name string) (core.Category, error) {
	c := core.Category{ID: uuid.NewString(), Name: strings.TrimSpace(name)}
	if err := c.Validate(); err != nil {
		return core.Category{}, fmt.Errorf("validate category: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.categoryLocked(c.Name); ok {
		return existing, nil
	}
	s.categories = append(s.categories, c)
	return c, nil
}

func (s *Store) categoryLocked(name string) (core.Category, bool) {
	for _, c := range s.categories {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return core.Category{}, false
}

func (s *Store) countLocked(goalID string, from, to time.Time) int {
	n := 0
	for _, c := range s.completions {
		if c.GoalID == goalID && !c.CompletedAt.Before(from) && c.CompletedAt.Before(to) {
			n++
		}
	}
	return n
}

func (s *Store) Goals(_ context.Context, period core.Period, from, to time.Time) ([]core.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]*goalRow, 0, len(s.goals))
	for _, g := range s.goals {
		if g.Period == period && g.CreatedAt.Before(to) {
			rows = append(rows, g)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	out := make([]core.Goal, 0, len(rows))
	for _, r := range rows {
		g := r.Goal
		g.CompletionCount = s.countLocked(g.ID, from, to)
		out = append(out, g)
	}
	return out, nil
}

func (s *Store) Goal(_ context.Context, id string, from, to time.Time) (core.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.goals[id]
	if !ok {
		return core.Goal{}, fmt.Errorf("goal %s: %w", id, core.ErrNotFound)
	}
	g := r.Goal
	g.CompletionCount = s.countLocked(id, from, to)
	return g, nil
}

func (s *Store) CreateGoal(_ context.Context, g core.Goal) (core.Goal, error) {
	if err := g.Validate(); err != nil {
		return core.Goal{}, fmt.Errorf("validate goal: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if name := strings.TrimSpace(g.Category); name != "" {
		c, ok := s.categoryLocked(name)
		if !ok {
			return core.Goal{}, fmt.Errorf("category %q: %w", name, core.ErrNotFound)
		}
		g.Category = c.Name
	}
	g.ID = uuid.NewString()
	g.Title = strings.TrimSpace(g.Title)
	g.CreatedAt = s.now().UTC()
	g.CompletionCount = 0

	s.seq++
	s.goals[g.ID] = &goalRow{Goal: g, seq: s.seq}
	return g, nil
}

func (s *Store) Completions(_ context.Context, period core.Period, from, to time.Time) ([]core.Completion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Completion, 0)
	for _, c := range s.completions {
		g, ok := s.goals[c.GoalID]
		if !ok || g.Period != period || c.CompletedAt.Before(from) || !c.CompletedAt.Before(to) {
			continue
		}
		c.Title, c.Category = g.Title, g.Category
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CompletedAt.Equal(out[j].CompletedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CompletedAt.After(out[j].CompletedAt)
	})
	return out, nil
}

func (s *Store) CreateCompletion(_ context.Context, goalID string, at time.Time) (core.Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[goalID]
	if !ok {
		return core.Completion{}, fmt.Errorf("goal %s: %w", goalID, core.ErrNotFound)
	}
	c := core.Completion{
		ID:          uuid.NewString(),
		GoalID:      goalID,
		Title:       g.Title,
		Category:    g.Category,
		CompletedAt: at.UTC(),
	}
	s.completions[c.ID] = c
	return c, nil
}

func (s *Store) CreateCompletionWithin(_ context.Context, goalID string, at, from, to time.Time) (core.Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[goalID]
	if !ok {
		return core.Completion{}, fmt.Errorf("goal %s: %w", goalID, core.ErrNotFound)
	}
	n := 0
	for _, c := range s.completions {
		if c.GoalID == goalID && !c.CompletedAt.Before(from) && c.CompletedAt.Before(to) {
			n++
		}
	}
	if n >= g.DesiredFrequency {
		return core.Completion{}, fmt.Errorf("goal %s: %w", goalID, core.ErrGoalAlreadyDone)
	}
	c := core.Completion{
		ID:          uuid.NewString(),
		GoalID:      goalID,
		Title:       g.Title,
		Category:    g.Category,
		CompletedAt: at.UTC(),
	}
	s.completions[c.ID] = c
	return c, nil
}

func (s *Store) DeleteCompletion(_ context.Context, id string) (core.Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.completions[id]
	if !ok {
		return core.Completion{}, fmt.Errorf("completion %s: %w", id, core.ErrNotFound)
	}
	delete(s.completions, id)
	if g, ok := s.goals[c.GoalID]; ok {
		c.Title, c.Category = g.Title, g.Category
	}
	return c, nil
}
