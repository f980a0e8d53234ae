package core

import (
	"errors"
	"testing"
	"time"
)

func TestPercent(t *testing.T) {
	cases := []struct {
		completed, total, want int
	}{
		{0, 0, 0},
		{3, 0, 0},
		{0, 5, 0},
		{3, 5, 60},
		{1, 3, 33},
		{2, 3, 66},
		{5, 5, 100},
		{7, 5, 100},
		{-1, 5, 0},
	}
	for _, tc := range cases {
		if got := Percent(tc.completed, tc.total); got != tc.want {
			t.Errorf("Percent(%d, %d) = %d, want %d", tc.completed, tc.total, got, tc.want)
		}
	}
}

func TestPercentFloorWithinRange(t *testing.T) {
	for total := 1; total <= 40; total++ {
		for completed := 0; completed <= total; completed++ {
			got := Percent(completed, total)
			if got < 0 || got > 100 {
				t.Fatalf("Percent(%d, %d) = %d out of range", completed, total, got)
			}
			if got != completed*100/total {
				t.Fatalf("Percent(%d, %d) = %d, want floor %d", completed, total, got, completed*100/total)
			}
		}
	}
}

func TestWeekSummaryValidate(t *testing.T) {
	at := time.Date(2024, 10, 8, 9, 30, 0, 0, time.UTC)
	good := WeekSummary{
		Completed: 1,
		Total:     2,
		GoalsPerDay: []DayBucket{
			{Date: at, Completions: []Completion{{ID: "c1", Title: "Ler", Category: "work", CompletedAt: at}}},
		},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []WeekSummary{
		{Completed: -1, Total: 1},
		{Completed: 0, Total: -1},
		{Total: 1, GoalsPerDay: []DayBucket{{}}},
		{Total: 1, GoalsPerDay: []DayBucket{{Date: at, Completions: []Completion{{ID: "", CompletedAt: at}}}}},
	}
	for i, s := range bads {
		if err := s.Validate(); !errors.Is(err, ErrInvalidSummary) {
			t.Fatalf("case %d expected ErrInvalidSummary, got %v", i, err)
		}
	}
}

func TestMonthSummaryValidate(t *testing.T) {
	at := time.Date(2024, 10, 8, 9, 30, 0, 0, time.UTC)
	good := MonthSummary{
		Completed:    3,
		Total:        2,
		GoalsPerWeek: []WeekBucket{{WeekOfMonth: 2, Completions: []Completion{{ID: "c1", CompletedAt: at}}}},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("completed > total must be tolerated, got %v", err)
	}
	if !good.Overflows() {
		t.Fatalf("expected Overflows for 3/2")
	}
	if good.Percent() != 100 {
		t.Fatalf("Percent() = %d, want clamp to 100", good.Percent())
	}

	bad := MonthSummary{Total: 1, GoalsPerWeek: []WeekBucket{{WeekOfMonth: 0}}}
	if err := bad.Validate(); !errors.Is(err, ErrInvalidSummary) {
		t.Fatalf("expected ErrInvalidSummary, got %v", err)
	}
}
