// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for goal periods. Each period
// (week, month) has a window strategy that decides which completions count
// toward it and how its cache entries are keyed.

package services

import (
	"fmt"
	"sync"
	"time"

	"inorbit/internal/core"
	"inorbit/internal/locale"
)

// PeriodWindow is the strategy interface for a goal period.
type PeriodWindow interface {
	// Bounds returns the half-open window [from, to) holding now.
	Bounds(f *locale.Formatter, now time.Time) (from, to time.Time)
	// Key identifies the window holding now; two instants in the same
	// window share a key.
	Key(f *locale.Formatter, now time.Time) string
}

// WeekWindow spans Sunday 00:00 to the next Sunday 00:00.
type WeekWindow struct{}

func (WeekWindow) Bounds(f *locale.Formatter, now time.Time) (time.Time, time.Time) {
	from := f.StartOfWeek(now)
	return from, from.AddDate(0, 0, 7)
}

func (WeekWindow) Key(f *locale.Formatter, now time.Time) string {
	return f.StartOfWeek(now).Format(time.DateOnly)
}

// MonthWindow spans the first of the month to the first of the next month.
type MonthWindow struct{}

func (MonthWindow) Bounds(f *locale.Formatter, now time.Time) (time.Time, time.Time) {
	from := f.StartOfMonth(now)
	return from, from.AddDate(0, 1, 0)
}

func (MonthWindow) Key(f *locale.Formatter, now time.Time) string {
	return f.StartOfMonth(now).Format("2006-01")
}

var (
	windowsMu sync.RWMutex
	windows   = map[core.Period]PeriodWindow{
		core.PeriodWeek:  WeekWindow{},
		core.PeriodMonth: MonthWindow{},
	}
)

// GetPeriodWindow returns the window strategy for a period.
func GetPeriodWindow(period core.Period) (PeriodWindow, error) {
	windowsMu.RLock()
	defer windowsMu.RUnlock()
	w, ok := windows[period]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidPeriod, string(period))
	}
	return w, nil
}

// RegisterPeriodWindow installs or replaces the strategy for a period.
func RegisterPeriodWindow(period core.Period, w PeriodWindow) {
	windowsMu.Lock()
	defer windowsMu.Unlock()
	windows[period] = w
}
