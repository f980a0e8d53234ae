// Package locale formats dates the way the UI shows them: Brazilian
// Portuguese names, Sunday-first weeks and a fixed set of patterns.
package locale

import (
	"fmt"
	"strings"
	"time"

	"github.com/goodsign/monday"
)

const (
	DefaultLocale   = monday.LocalePtBR
	DefaultTimezone = "America/Sao_Paulo"
)

// Formatter renders the date patterns used by the summary views.
// The zero value is not usable; build it with New.
type Formatter struct {
	loc       *time.Location
	locale    monday.Locale
	weekStart time.Weekday
}

// New returns a pt-BR formatter in loc. A nil loc means UTC.
func New(loc *time.Location) *Formatter {
	if loc == nil {
		loc = time.UTC
	}
	return &Formatter{loc: loc, locale: DefaultLocale, weekStart: time.Sunday}
}

// Load resolves an IANA zone name and builds a formatter for it.
func Load(tz string) (*Formatter, error) {
	if strings.TrimSpace(tz) == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	return New(loc), nil
}

func (f *Formatter) Location() *time.Location { return f.loc }

// In converts t to the formatter's location.
func (f *Formatter) In(t time.Time) time.Time { return t.In(f.loc) }

// MonthName renders "MMMM", e.g. "outubro".
func (f *Formatter) MonthName(t time.Time) string {
	return normalize(monday.Format(f.In(t), "January", f.locale))
}

// Weekday renders "dddd", e.g. "terça-feira".
func (f *Formatter) Weekday(t time.Time) string {
	return normalize(monday.Format(f.In(t), "Monday", f.locale))
}

// Day renders "D".
func (f *Formatter) Day(t time.Time) string {
	return fmt.Sprintf("%d", f.In(t).Day())
}

// DayMonth renders "D[ de ]MMM", e.g. "8 de out".
func (f *Formatter) DayMonth(t time.Time) string {
	t = f.In(t)
	return fmt.Sprintf("%d de %s", t.Day(), f.shortMonth(t))
}

// Clock renders "HH:mm[h]", e.g. "09:30h".
func (f *Formatter) Clock(t time.Time) string {
	return f.In(t).Format("15:04") + "h"
}

// DayMonthClock renders "D[ de ]MMM HH:mm[h]".
func (f *Formatter) DayMonthClock(t time.Time) string {
	return f.DayMonth(t) + " " + f.Clock(t)
}

func (f *Formatter) shortMonth(t time.Time) string {
	return strings.TrimSuffix(normalize(monday.Format(t, "Jan", f.locale)), ".")
}

// StartOfDay truncates t to midnight in the formatter's location.
func (f *Formatter) StartOfDay(t time.Time) time.Time {
	t = f.In(t)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, f.loc)
}

// StartOfWeek floors t to the first day of its week.
func (f *Formatter) StartOfWeek(t time.Time) time.Time {
	day := f.StartOfDay(t)
	offset := (int(day.Weekday()) - int(f.weekStart) + 7) % 7
	return day.AddDate(0, 0, -offset)
}

// EndOfWeek is the last representable instant of t's week.
func (f *Formatter) EndOfWeek(t time.Time) time.Time {
	return f.StartOfWeek(t).AddDate(0, 0, 7).Add(-time.Millisecond)
}

// StartOfMonth returns midnight of the first day of t's month.
func (f *Formatter) StartOfMonth(t time.Time) time.Time {
	t = f.In(t)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, f.loc)
}

// EndOfMonth is the last representable instant of t's month.
func (f *Formatter) EndOfMonth(t time.Time) time.Time {
	return f.StartOfMonth(t).AddDate(0, 1, 0).Add(-time.Millisecond)
}

// MonthWeekRange returns the bounds of week n (1-based) of now's month:
// the first of the month advanced n-1 weeks and floored to the week start.
func (f *Formatter) MonthWeekRange(now time.Time, n int) (time.Time, time.Time) {
	if n < 1 {
		n = 1
	}
	start := f.StartOfWeek(f.StartOfMonth(now).AddDate(0, 0, 7*(n-1)))
	return start, f.EndOfWeek(start)
}

// WeekOfMonth is the inverse of MonthWeekRange: the n whose range holds t.
func (f *Formatter) WeekOfMonth(t time.Time) int {
	t = f.In(t)
	first := f.StartOfMonth(t)
	lead := (int(first.Weekday()) - int(f.weekStart) + 7) % 7
	return (t.Day()-1+lead)/7 + 1
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
