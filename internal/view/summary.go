package view

import (
	"fmt"
	"time"

	"inorbit/internal/core"
	"inorbit/internal/locale"
)

const (
	CurrentWeekLabel = "Semana Atual"
	weekLabelFormat  = "Semana %d"
)

// CompletionRow is one "Você completou ..." line.
type CompletionRow struct {
	ID       string
	Title    string
	Category string
	Time     string
}

// DayGroup is a weekly bucket. It is rendered even when Rows is empty.
type DayGroup struct {
	Key     string
	Weekday string
	Date    string
	Rows    []CompletionRow
}

// WeekGroup is a monthly bucket. It is rendered even when Rows is empty.
type WeekGroup struct {
	WeekOfMonth int
	Label       string
	From        string
	To          string
	Rows        []CompletionRow
}

type Progress struct {
	Completed int
	Total     int
	Percent   int
}

type WeekSummary struct {
	From     string
	To       string
	Progress Progress
	Filter   CategoryFilter
	Days     []DayGroup
}

type MonthSummary struct {
	Month    string
	Progress Progress
	Filter   CategoryFilter
	Weeks    []WeekGroup
}

// RangeLabel is the weekly header, "D de MMM - D de MMM".
func (w WeekSummary) RangeLabel() string { return w.From + " - " + w.To }

// VisibleRows counts rendered completion rows across all buckets.
func (w WeekSummary) VisibleRows() int {
	n := 0
	for _, d := range w.Days {
		n += len(d.Rows)
	}
	return n
}

func (m MonthSummary) VisibleRows() int {
	n := 0
	for _, w := range m.Weeks {
		n += len(w.Rows)
	}
	return n
}

func newProgress(completed, total int) Progress {
	return Progress{Completed: completed, Total: total, Percent: core.Percent(completed, total)}
}

// BuildWeekSummary derives the weekly view from a summary, keeping bucket
// and row order as supplied.
func BuildWeekSummary(f *locale.Formatter, now time.Time, s core.WeekSummary, cats core.CategoryList, sel Selection) WeekSummary {
	v := WeekSummary{
		From:     f.DayMonth(f.StartOfWeek(now)),
		To:       f.DayMonth(f.EndOfWeek(now)),
		Progress: newProgress(s.Completed, s.Total),
		Filter:   BuildCategoryFilter(core.PeriodWeek, cats, sel),
		Days:     make([]DayGroup, 0, len(s.GoalsPerDay)),
	}
	for _, b := range s.GoalsPerDay {
		v.Days = append(v.Days, DayGroup{
			Key:     f.In(b.Date).Format(time.DateOnly),
			Weekday: f.Weekday(b.Date),
			Date:    f.DayMonth(b.Date),
			Rows:    filterRows(b.Completions, sel, f.Clock),
		})
	}
	return v
}

// BuildMonthSummary derives the monthly view. The first bucket in input
// order is the current week; the others are labeled by week number.
func BuildMonthSummary(f *locale.Formatter, now time.Time, s core.MonthSummary, cats core.CategoryList, sel Selection) MonthSummary {
	v := MonthSummary{
		Month:    f.MonthName(f.StartOfMonth(now)),
		Progress: newProgress(s.Completed, s.Total),
		Filter:   BuildCategoryFilter(core.PeriodMonth, cats, sel),
		Weeks:    make([]WeekGroup, 0, len(s.GoalsPerWeek)),
	}
	for i, b := range s.GoalsPerWeek {
		start, end := f.MonthWeekRange(now, b.WeekOfMonth)
		label := CurrentWeekLabel
		if i > 0 {
			label = fmt.Sprintf(weekLabelFormat, b.WeekOfMonth)
		}
		v.Weeks = append(v.Weeks, WeekGroup{
			WeekOfMonth: b.WeekOfMonth,
			Label:       label,
			From:        f.Day(start),
			To:          f.DayMonth(end),
			Rows:        filterRows(b.Completions, sel, f.DayMonthClock),
		})
	}
	return v
}

func filterRows(cs []core.Completion, sel Selection, stamp func(time.Time) string) []CompletionRow {
	rows := make([]CompletionRow, 0, len(cs))
	for _, c := range cs {
		if !c.MatchesCategory(sel.String()) {
			continue
		}
		rows = append(rows, CompletionRow{
			ID:       c.ID,
			Title:    c.Title,
			Category: c.Category,
			Time:     stamp(c.CompletedAt),
		})
	}
	return rows
}
