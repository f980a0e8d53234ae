package services

import (
	"sort"

	"inorbit/internal/core"
	"inorbit/internal/locale"
)

// SummarizeWeek builds the weekly summary DTO. Total is the sum of desired
// frequencies; Completed counts the completions in the window. Day buckets
// are newest first and keep the completion order they were given.
func SummarizeWeek(f *locale.Formatter, goals []core.Goal, completions []core.Completion) core.WeekSummary {
	s := core.WeekSummary{
		Completed:   len(completions),
		Total:       totalFrequency(goals),
		GoalsPerDay: []core.DayBucket{},
	}
	index := make(map[int64]int)
	for _, c := range completions {
		day := f.StartOfDay(c.CompletedAt)
		i, ok := index[day.Unix()]
		if !ok {
			i = len(s.GoalsPerDay)
			index[day.Unix()] = i
			s.GoalsPerDay = append(s.GoalsPerDay, core.DayBucket{Date: day})
		}
		s.GoalsPerDay[i].Completions = append(s.GoalsPerDay[i].Completions, c)
	}
	sort.SliceStable(s.GoalsPerDay, func(i, j int) bool {
		return s.GoalsPerDay[i].Date.After(s.GoalsPerDay[j].Date)
	})
	return s
}

// SummarizeMonth buckets completions by week of month, newest week first.
func SummarizeMonth(f *locale.Formatter, goals []core.Goal, completions []core.Completion) core.MonthSummary {
	s := core.MonthSummary{
		Completed:    len(completions),
		Total:        totalFrequency(goals),
		GoalsPerWeek: []core.WeekBucket{},
	}
	index := make(map[int]int)
	for _, c := range completions {
		week := f.WeekOfMonth(c.CompletedAt)
		i, ok := index[week]
		if !ok {
			i = len(s.GoalsPerWeek)
			index[week] = i
			s.GoalsPerWeek = append(s.GoalsPerWeek, core.WeekBucket{WeekOfMonth: week})
		}
		s.GoalsPerWeek[i].Completions = append(s.GoalsPerWeek[i].Completions, c)
	}
	sort.SliceStable(s.GoalsPerWeek, func(i, j int) bool {
		return s.GoalsPerWeek[i].WeekOfMonth > s.GoalsPerWeek[j].WeekOfMonth
	})
	return s
}

func totalFrequency(goals []core.Goal) int {
	total := 0
	for _, g := range goals {
		total += g.DesiredFrequency
	}
	return total
}
