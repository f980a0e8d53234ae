package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"inorbit/internal/core"
	"inorbit/internal/log"
)

const (
	goalCreatedMessage     = "Meta cadastrada!"
	goalCompletedMessage   = "Meta concluída!"
	goalAlreadyDoneMessage = "Essa meta já foi concluída no período."
	goalNotFoundMessage    = "Meta não encontrada."
	goalCompleteFailed     = "Não foi possível concluir a meta."
	goalCreateFailed       = "Não foi possível cadastrar a meta."
)

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body := NewRequestBodyParser(r)
	g, err := ParseGoalForm(body)
	if err != nil {
		s.renderGoalFormError(w, r, body, err)
		return
	}

	saved, err := s.goals.CreateGoal(ctx, g)
	switch {
	case errors.Is(err, core.ErrReservedCategory):
		s.renderGoalFormError(w, r, body, &FormError{Message: "Escolha outro nome de categoria.", Err: err})
		return
	case err != nil:
		s.logError(r, "Create goal failed", err, log.ComponentGoal, log.OpCreate)
		NewHTMXResponse().
			Status(http.StatusBadGateway).
			TriggerErrorNotification(goalCreateFailed).
			Write(w)
		return
	}

	s.count(&s.metrics.goalsCreated)
	log.FromContext(ctx).WithComponent(log.ComponentGoal).InfoContext(ctx, "Goal created",
		log.FieldGoalID, saved.ID, log.FieldPeriod, string(saved.Period), log.FieldCategory, saved.Category)

	NewHTMXResponse().
		Signals(signalsFrom(ctx)).
		TriggerSuccessNotification(goalCreatedMessage).
		TriggerCloseDialog().
		Write(w)
}

// renderGoalFormError answers 422 with the form and its message so htmx
// swaps it in place. JSON clients get the message alone.
func (s *Server) renderGoalFormError(w http.ResponseWriter, r *http.Request, body *RequestBodyParser, err error) {
	msg := "Dados inválidos."
	var fe *FormError
	if errors.As(err, &fe) {
		msg = fe.Message
	}
	log.FromContext(r.Context()).WithComponent(log.ComponentGoal).
		WarnContext(r.Context(), "Invalid goal form", log.FieldError, err)

	if body.IsJSON() {
		UnprocessableEntityError(msg).Write(w)
		return
	}
	form := s.loadCreateGoalForm(r)
	form.Error = msg
	s.render(w, r, http.StatusUnprocessableEntity, "create_goal_form", form)
}

func (s *Server) handleCompleteGoal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	c, err := s.goals.CompleteGoal(ctx, id)
	b := NewHTMXResponse().Signals(signalsFrom(ctx))
	switch {
	case err == nil:
		s.count(&s.metrics.completions)
		log.NewStructuredLogger(log.FromContext(ctx)).LogCompletion(ctx, log.OpComplete, c.ID, c.GoalID, c.Category)
		b.TriggerSuccessNotification(goalCompletedMessage)
	case errors.Is(err, core.ErrEmptyID):
		b.Status(http.StatusBadRequest).TriggerErrorNotification(goalNotFoundMessage)
	case errors.Is(err, core.ErrNotFound):
		b.Status(http.StatusNotFound).TriggerErrorNotification(goalNotFoundMessage)
	case errors.Is(err, core.ErrGoalAlreadyDone):
		b.Status(http.StatusConflict).TriggerErrorNotification(goalAlreadyDoneMessage)
	default:
		s.logError(r, "Complete goal failed", err, log.ComponentGoal, log.OpComplete)
		b.Status(http.StatusBadGateway).TriggerErrorNotification(goalCompleteFailed)
	}
	b.Write(w)
}

// handleUndoCompletion answers every outcome through the htmx builder:
// 200 on success, 400 without an id, 404 for an unknown id and 502 when
// the deletion fails. The notification and partition events come from
// the undo action itself.
func (s *Server) handleUndoCompletion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	out := s.undo.Run(ctx, chi.URLParam(r, "id"))

	b := NewHTMXResponse().Signals(signalsFrom(ctx))
	switch {
	case out.OK():
		s.count(&s.metrics.undos)
		log.NewStructuredLogger(log.FromContext(ctx)).
			LogCompletion(ctx, log.OpUndo, out.Completion.ID, out.Completion.GoalID, out.Completion.Category)
	case errors.Is(out.Err, core.ErrEmptyID):
		s.count(&s.metrics.undoFailures)
		b.Status(http.StatusBadRequest)
	case out.NotFound():
		s.count(&s.metrics.undoFailures)
		b.Status(http.StatusNotFound)
	default:
		s.count(&s.metrics.undoFailures)
		b.Status(http.StatusBadGateway)
	}
	b.Write(w)
}
