package view

import (
	"inorbit/internal/core"
)

type PendingGoal struct {
	ID               string
	Title            string
	Category         string
	CompletionCount  int
	DesiredFrequency int
	Done             bool
}

// PendingGoals lists the goals of a period under the current selection.
type PendingGoals struct {
	Period    core.Period
	Selection string
	Goals     []PendingGoal
}

func (p PendingGoals) Empty() bool { return len(p.Goals) == 0 }

// BuildPendingGoals filters goals by selection, preserving input order.
func BuildPendingGoals(period core.Period, goals []core.Goal, sel Selection) PendingGoals {
	v := PendingGoals{Period: period, Selection: sel.String(), Goals: make([]PendingGoal, 0, len(goals))}
	for _, g := range goals {
		if !g.MatchesCategory(sel.String()) {
			continue
		}
		v.Goals = append(v.Goals, PendingGoal{
			ID:               g.ID,
			Title:            g.Title,
			Category:         g.Category,
			CompletionCount:  g.CompletionCount,
			DesiredFrequency: g.DesiredFrequency,
			Done:             g.Done(),
		})
	}
	return v
}
