package view

import (
	"strconv"

	"inorbit/internal/core"
)

// Fixed class rules of the dialog primitives.
const (
	DialogOverlayClass     = "fixed inset-0 z-40 bg-black/40 backdrop-blur-sm"
	DialogContentClass     = "fixed z-50 right-0 top-0 bottom-0 w-full md:w-[400px] h-full md:h-screen border-l border-zinc-900 bg-zinc-950 px-4 md:px-8 py-8"
	DialogTitleClass       = "text-lg font-semibold"
	DialogDescriptionClass = "text-zinc-400 text-sm leading-relaxed"
)

// Dialog carries the text of a side-panel dialog.
type Dialog struct {
	ID          string
	Title       string
	Description string
}

type FrequencyOption struct {
	Value int
	Label string
}

type PeriodOption struct {
	Value core.Period
	Label string
}

// CreateGoalForm backs the create-goal dialog.
type CreateGoalForm struct {
	Dialog      Dialog
	Categories  []core.Category
	Periods     []PeriodOption
	Frequencies []FrequencyOption
	Error       string
}

var frequencyEmoji = [...]string{"🥱", "🙂", "😎", "😜", "🤨", "🤯", "🔥"}

func NewCreateGoalForm(cats core.CategoryList) CreateGoalForm {
	freqs := make([]FrequencyOption, 0, core.MaxDesiredFrequency)
	for n := core.MinDesiredFrequency; n <= core.MaxDesiredFrequency; n++ {
		label := "1x na semana"
		if n > 1 {
			label = strconv.Itoa(n) + "x na semana"
		}
		if n == core.MaxDesiredFrequency {
			label = "Todos dias da semana"
		}
		freqs = append(freqs, FrequencyOption{Value: n, Label: label + " " + frequencyEmoji[n-1]})
	}
	return CreateGoalForm{
		Dialog: Dialog{
			ID:          "create-goal",
			Title:       "Cadastrar meta",
			Description: "Adicione atividades que te fazem bem e que você quer continuar praticando toda semana.",
		},
		Categories: cats.UserCategories,
		Periods: []PeriodOption{
			{Value: core.PeriodWeek, Label: "Semanal"},
			{Value: core.PeriodMonth, Label: "Mensal"},
		},
		Frequencies: freqs,
	}
}
