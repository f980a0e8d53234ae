// Package seed loads YAML fixtures of categories, goals and completions.
package seed

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"inorbit/internal/core"
)

// Fixture is the YAML document:
//
//	categories: [work, health]
//	goals:
//	  - title: Correr
//	    category: health
//	    period: week
//	    desired_frequency: 3
//	    completions: ["-1d", "-2d3h", "2024-10-07T09:00:00-03:00"]
//
// Completion times are RFC 3339 or offsets from the load time. An offset
// is an optional "<n>d" day count followed by a Go duration.
type Fixture struct {
	Categories []string      `yaml:"categories"`
	Goals      []GoalFixture `yaml:"goals"`
}

type GoalFixture struct {
	Title            string   `yaml:"title"`
	Category         string   `yaml:"category"`
	Period           string   `yaml:"period"`
	DesiredFrequency int      `yaml:"desired_frequency"`
	Completions      []string `yaml:"completions"`
}

// Writer is the subset of the store a fixture is applied through.
type Writer interface {
	CreateCategory(ctx context.Context, name string) (core.Category, error)
	CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error)
	CreateCompletion(ctx context.Context, goalID string, at time.Time) (core.Completion, error)
}

type Result struct {
	Categories  int
	Goals       int
	Completions int
}

func Load(r io.Reader) (Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return Fixture{}, fmt.Errorf("decode fixture: %w", err)
	}
	return f, nil
}

func LoadFile(path string) (Fixture, error) {
	fh, err := os.Open(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("open fixture: %w", err)
	}
	defer fh.Close()
	return Load(fh)
}

// Validate checks every goal and completion time against now.
func (f Fixture) Validate(now time.Time) error {
	for i, g := range f.Goals {
		period, err := core.ParsePeriod(g.Period)
		if err != nil {
			return fmt.Errorf("goal %d: %w", i, err)
		}
		goal := core.Goal{Title: g.Title, Category: g.Category, Period: period, DesiredFrequency: g.DesiredFrequency}
		if err := goal.Validate(); err != nil {
			return fmt.Errorf("goal %d (%s): %w", i, g.Title, err)
		}
		for j, when := range g.Completions {
			if _, err := ParseWhen(when, now); err != nil {
				return fmt.Errorf("goal %d completion %d: %w", i, j, err)
			}
		}
	}
	return nil
}

// Apply writes the fixture through w. Categories referenced by goals are
// created even when not listed.
func Apply(ctx context.Context, w Writer, f Fixture, now time.Time) (Result, error) {
	var res Result
	if err := f.Validate(now); err != nil {
		return res, err
	}

	names := append([]string(nil), f.Categories...)
	for _, g := range f.Goals {
		if strings.TrimSpace(g.Category) != "" {
			names = append(names, g.Category)
		}
	}
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		if _, err := w.CreateCategory(ctx, name); err != nil {
			return res, fmt.Errorf("create category %q: %w", name, err)
		}
		res.Categories++
	}

	for _, g := range f.Goals {
		period, _ := core.ParsePeriod(g.Period)
		goal, err := w.CreateGoal(ctx, core.Goal{
			Title:            g.Title,
			Category:         g.Category,
			Period:           period,
			DesiredFrequency: g.DesiredFrequency,
		})
		if err != nil {
			return res, fmt.Errorf("create goal %q: %w", g.Title, err)
		}
		res.Goals++

		for _, when := range g.Completions {
			at, _ := ParseWhen(when, now)
			if _, err := w.CreateCompletion(ctx, goal.ID, at); err != nil {
				return res, fmt.Errorf("complete goal %q: %w", g.Title, err)
			}
			res.Completions++
		}
	}
	return res, nil
}

// ParseWhen resolves an RFC 3339 timestamp or an offset such as "-2d3h".
func ParseWhen(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}

	sign := 1
	rest := s
	switch rest[0] {
	case '-':
		sign, rest = -1, rest[1:]
	case '+':
		rest = rest[1:]
	}

	var offset time.Duration
	if i := strings.IndexByte(rest, 'd'); i > 0 {
		days, err := strconv.Atoi(rest[:i])
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid time %q", s)
		}
		offset = time.Duration(days) * 24 * time.Hour
		rest = rest[i+1:]
	}
	if rest != "" {
		d, err := time.ParseDuration(rest)
		if err != nil || d < 0 {
			return time.Time{}, fmt.Errorf("invalid time %q", s)
		}
		offset += d
	}
	if offset == 0 && s != "0" && s != "0d" {
		return time.Time{}, fmt.Errorf("invalid time %q", s)
	}
	return now.Add(time.Duration(sign) * offset), nil
}
