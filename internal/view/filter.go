package view

import (
	"inorbit/internal/core"
)

// AllLabel is the caption of the synthetic "all" option.
const AllLabel = "Todas"

type FilterOption struct {
	Value    string
	Label    string
	Selected bool
}

// CategoryFilter is the toggle group shown above a summary.
type CategoryFilter struct {
	Period   core.Period
	Selected string
	Options  []FilterOption
}

// BuildCategoryFilter lists the user categories in input order followed
// by the synthetic "all" option.
func BuildCategoryFilter(period core.Period, cats core.CategoryList, sel Selection) CategoryFilter {
	current := sel.String()
	opts := make([]FilterOption, 0, len(cats.UserCategories)+1)
	for _, c := range cats.UserCategories {
		opts = append(opts, FilterOption{Value: c.Name, Label: c.Name, Selected: c.Name == current})
	}
	opts = append(opts, FilterOption{Value: core.AllCategories, Label: AllLabel, Selected: sel.IsAll()})
	return CategoryFilter{Period: period, Selected: current, Options: opts}
}
