package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"

	// AllCategories is the synthetic selection that disables category filtering.
	AllCategories = "all"

	MaxTitleLength        = 200
	MaxCategoryNameLength = 50
	MinDesiredFrequency   = 1
	MaxDesiredFrequency   = 7
)

type (
	Period string

	Category struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	// CategoryList is the categories DTO handed to the views.
	CategoryList struct {
		UserCategories []Category `json:"userCategories"`
	}

	Goal struct {
		ID               string    `json:"id"`
		Title            string    `json:"title"`
		Category         string    `json:"category"`
		Period           Period    `json:"period"`
		DesiredFrequency int       `json:"desiredFrequency"`
		CompletionCount  int       `json:"completionCount"`
		CreatedAt        time.Time `json:"createdAt"`
	}

	Completion struct {
		ID          string    `json:"id"`
		GoalID      string    `json:"goalId,omitempty"`
		Title       string    `json:"title"`
		Category    string    `json:"category"`
		CompletedAt time.Time `json:"completedAt"`
	}
)

var (
	ErrNotFound          = errors.New("not found")
	ErrEmptyID           = errors.New("empty id")
	ErrEmptyTitle        = errors.New("empty title")
	ErrEmptyCategoryName = errors.New("empty category name")
	ErrInvalidPeriod     = errors.New("invalid period")
	ErrInvalidFrequency  = errors.New("invalid desired frequency")
	ErrGoalAlreadyDone   = errors.New("goal already completed for the period")
	ErrZeroCompletedAt   = errors.New("completion time cannot be zero")
	ErrReservedCategory  = errors.New("reserved category name")
)

// ParsePeriod accepts "week"/"month" plus the "weekly"/"monthly" spellings.
func ParsePeriod(s string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "week", "weekly":
		return PeriodWeek, nil
	case "month", "monthly":
		return PeriodMonth, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
}

func (p Period) Validate() error {
	if p != PeriodWeek && p != PeriodMonth {
		return fmt.Errorf("%w: %q", ErrInvalidPeriod, string(p))
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return ErrEmptyID
	}
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return ErrEmptyCategoryName
	}
	if len(name) > MaxCategoryNameLength {
		return fmt.Errorf("category name too long (max %d characters)", MaxCategoryNameLength)
	}
	if strings.EqualFold(name, AllCategories) {
		return fmt.Errorf("%w: %q", ErrReservedCategory, AllCategories)
	}
	return nil
}

func (l CategoryList) Validate() error {
	seen := make(map[string]struct{}, len(l.UserCategories))
	for i, c := range l.UserCategories {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("category %d: %w", i, err)
		}
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("category %d: duplicate id %q", i, c.ID)
		}
		seen[c.ID] = struct{}{}
	}
	return nil
}

// Names returns the category names in input order.
func (l CategoryList) Names() []string {
	out := make([]string, 0, len(l.UserCategories))
	for _, c := range l.UserCategories {
		out = append(out, c.Name)
	}
	return out
}

// Validate checks a goal before it is persisted. ID is assigned by storage.
func (g Goal) Validate() error {
	title := strings.TrimSpace(g.Title)
	if title == "" {
		return ErrEmptyTitle
	}
	if len(title) > MaxTitleLength {
		return fmt.Errorf("title too long (max %d characters)", MaxTitleLength)
	}
	if err := g.Period.Validate(); err != nil {
		return err
	}
	if g.DesiredFrequency < MinDesiredFrequency || g.DesiredFrequency > MaxDesiredFrequency {
		return fmt.Errorf("%w: %d (must be between %d and %d)", ErrInvalidFrequency,
			g.DesiredFrequency, MinDesiredFrequency, MaxDesiredFrequency)
	}
	return nil
}

// Done reports whether the goal reached its desired frequency for the period.
func (g Goal) Done() bool {
	return g.CompletionCount >= g.DesiredFrequency
}

func (c Completion) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return ErrEmptyID
	}
	if c.CompletedAt.IsZero() {
		return ErrZeroCompletedAt
	}
	return nil
}

// MatchesCategory reports whether the completion is visible under selection.
// Completions without a category only match AllCategories.
func (c Completion) MatchesCategory(selection string) bool {
	return matchCategory(c.Category, selection)
}

// MatchesCategory applies the same rule as Completion.MatchesCategory.
func (g Goal) MatchesCategory(selection string) bool {
	return matchCategory(g.Category, selection)
}

func matchCategory(category, selection string) bool {
	if selection == AllCategories {
		return true
	}
	return category != "" && category == selection
}
