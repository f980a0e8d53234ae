package services

import (
	"errors"
	"testing"
	"time"

	"inorbit/internal/core"
	"inorbit/internal/locale"
)

func TestWeekWindow_Bounds(t *testing.T) {
	f := locale.New(time.UTC)
	tests := []struct {
		name     string
		now      time.Time
		wantFrom time.Time
	}{
		{"wednesday", time.Date(2024, 10, 9, 15, 0, 0, 0, time.UTC), time.Date(2024, 10, 6, 0, 0, 0, 0, time.UTC)},
		{"sunday midnight", time.Date(2024, 10, 6, 0, 0, 0, 0, time.UTC), time.Date(2024, 10, 6, 0, 0, 0, 0, time.UTC)},
		{"saturday late", time.Date(2024, 10, 12, 23, 59, 0, 0, time.UTC), time.Date(2024, 10, 6, 0, 0, 0, 0, time.UTC)},
		{"crosses month", time.Date(2024, 11, 1, 8, 0, 0, 0, time.UTC), time.Date(2024, 10, 27, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to := WeekWindow{}.Bounds(f, tt.now)
			if !from.Equal(tt.wantFrom) {
				t.Errorf("from = %v, want %v", from, tt.wantFrom)
			}
			if !to.Equal(tt.wantFrom.AddDate(0, 0, 7)) {
				t.Errorf("to = %v, want %v", to, tt.wantFrom.AddDate(0, 0, 7))
			}
		})
	}
}

func TestMonthWindow_Bounds(t *testing.T) {
	f := locale.New(time.UTC)
	from, to := MonthWindow{}.Bounds(f, time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC))
	if !from.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("from = %v", from)
	}
	if !to.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("to = %v", to)
	}
}

func TestWindowKeys(t *testing.T) {
	f := locale.New(time.UTC)
	mon := time.Date(2024, 10, 7, 9, 0, 0, 0, time.UTC)
	sat := time.Date(2024, 10, 12, 22, 0, 0, 0, time.UTC)
	nextSun := time.Date(2024, 10, 13, 0, 0, 0, 0, time.UTC)

	week := WeekWindow{}
	if week.Key(f, mon) != week.Key(f, sat) {
		t.Error("same week should share a key")
	}
	if week.Key(f, sat) == week.Key(f, nextSun) {
		t.Error("next week should have its own key")
	}
	if got := (MonthWindow{}).Key(f, sat); got != "2024-10" {
		t.Errorf("month key = %q", got)
	}
}

func TestGetPeriodWindow(t *testing.T) {
	if _, err := GetPeriodWindow(core.PeriodWeek); err != nil {
		t.Fatalf("week: %v", err)
	}
	if _, err := GetPeriodWindow(core.PeriodMonth); err != nil {
		t.Fatalf("month: %v", err)
	}
	if _, err := GetPeriodWindow("year"); !errors.Is(err, core.ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}

type fixedWindow struct{ from, to time.Time }

func (w fixedWindow) Bounds(*locale.Formatter, time.Time) (time.Time, time.Time) { return w.from, w.to }
func (w fixedWindow) Key(*locale.Formatter, time.Time) string { return "fixed" }

func TestRegisterPeriodWindow(t *testing.T) {
	orig, _ := GetPeriodWindow(core.PeriodWeek)
	t.Cleanup(func() { RegisterPeriodWindow(core.PeriodWeek, orig) })

	RegisterPeriodWindow(core.PeriodWeek, fixedWindow{})
	w, err := GetPeriodWindow(core.PeriodWeek)
	if err != nil {
		t.Fatal(err)
	}
	if w.Key(nil, time.Now()) != "fixed" {
		t.Error("registered window not returned")
	}
}
