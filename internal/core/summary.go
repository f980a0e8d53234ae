package core

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidSummary = errors.New("invalid summary")

type (
	// DayBucket groups the completions of one calendar day.
	DayBucket struct {
		Date        time.Time    `json:"completedAtDate"`
		Completions []Completion `json:"completions"`
	}

	// WeekBucket groups the completions of one week of the month (1-based).
	WeekBucket struct {
		WeekOfMonth int          `json:"weekOfMonth"`
		Completions []Completion `json:"completions"`
	}

	WeekSummary struct {
		Completed   int         `json:"completed"`
		Total       int         `json:"total"`
		GoalsPerDay []DayBucket `json:"goalsPerDay"`
	}

	MonthSummary struct {
		Completed    int          `json:"completed"`
		Total        int          `json:"total"`
		GoalsPerWeek []WeekBucket `json:"goalsPerWeek"`
	}
)

// Percent returns floor(completed*100/total) clamped to [0,100].
// A zero or negative total yields 0.
func Percent(completed, total int) int {
	if total <= 0 || completed <= 0 {
		return 0
	}
	if completed >= total {
		return 100
	}
	return completed * 100 / total
}

func (s WeekSummary) Percent() int { return Percent(s.Completed, s.Total) }

func (s MonthSummary) Percent() int { return Percent(s.Completed, s.Total) }

// Validate rejects summaries whose shape the views cannot render.
// Completed > Total is tolerated; Percent clamps it.
func (s WeekSummary) Validate() error {
	if err := validateCounts(s.Completed, s.Total); err != nil {
		return err
	}
	for i, b := range s.GoalsPerDay {
		if b.Date.IsZero() {
			return fmt.Errorf("%w: day bucket %d has zero date", ErrInvalidSummary, i)
		}
		if err := validateCompletions(b.Completions); err != nil {
			return fmt.Errorf("%w: day bucket %d: %v", ErrInvalidSummary, i, err)
		}
	}
	return nil
}

func (s MonthSummary) Validate() error {
	if err := validateCounts(s.Completed, s.Total); err != nil {
		return err
	}
	for i, b := range s.GoalsPerWeek {
		if b.WeekOfMonth < 1 || b.WeekOfMonth > 6 {
			return fmt.Errorf("%w: week bucket %d has week of month %d", ErrInvalidSummary, i, b.WeekOfMonth)
		}
		if err := validateCompletions(b.Completions); err != nil {
			return fmt.Errorf("%w: week bucket %d: %v", ErrInvalidSummary, i, err)
		}
	}
	return nil
}

// Overflows reports completed > total, which the data layer does not guard.
func (s WeekSummary) Overflows() bool { return s.Completed > s.Total }

func (s MonthSummary) Overflows() bool { return s.Completed > s.Total }

func validateCounts(completed, total int) error {
	if completed < 0 {
		return fmt.Errorf("%w: negative completed count %d", ErrInvalidSummary, completed)
	}
	if total < 0 {
		return fmt.Errorf("%w: negative total count %d", ErrInvalidSummary, total)
	}
	return nil
}

func validateCompletions(cs []Completion) error {
	for j, c := range cs {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("completion %d: %w", j, err)
		}
	}
	return nil
}
