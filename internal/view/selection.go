package view

import (
	"strings"

	"inorbit/internal/core"
)

// Selection is the active category filter. It is never empty.
type Selection string

// DefaultSelection is the initial state of every filter.
const DefaultSelection = Selection(core.AllCategories)

// Apply returns the selection after a toggle. An empty value is a
// deselect attempt and keeps the previous selection.
func (s Selection) Apply(next string) Selection {
	next = strings.TrimSpace(next)
	if next == "" {
		return s.orDefault()
	}
	return Selection(next)
}

func (s Selection) String() string { return string(s.orDefault()) }

func (s Selection) IsAll() bool { return s.orDefault() == DefaultSelection }

func (s Selection) orDefault() Selection {
	if strings.TrimSpace(string(s)) == "" {
		return DefaultSelection
	}
	return s
}

// ResolveSelection applies the requested toggle value on top of the
// selection the client currently shows.
func ResolveSelection(requested, current string) Selection {
	return Selection(strings.TrimSpace(current)).Apply(requested)
}
