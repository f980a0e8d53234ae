package http

import (
	"bytes"
	"net/http"

	"github.com/go-chi/chi/v5"

	"inorbit/internal/core"
	"inorbit/internal/log"
	"inorbit/internal/view"
)

type pageData struct {
	Title  string
	Active core.Period
	Week   *view.WeekSummary
	Month  *view.MonthSummary
}

func (s *Server) handleWeekPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f := s.queries.Formatter()
	now := f.In(s.now())

	d, err := s.queries.Week(ctx, now)
	if err != nil {
		s.logError(r, "Week summary error", err, log.ComponentSummary, log.OpRender)
		s.renderError(w, http.StatusBadGateway, "Não foi possível carregar o resumo da semana.")
		return
	}
	v := view.BuildWeekSummary(f, now, d.Summary, d.Categories, view.DefaultSelection)
	s.render(w, r, http.StatusOK, "index.html", pageData{Title: "Resumo da semana", Active: core.PeriodWeek, Week: &v})
}

func (s *Server) handleMonthPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f := s.queries.Formatter()
	now := f.In(s.now())

	d, err := s.queries.Month(ctx, now)
	if err != nil {
		s.logError(r, "Month summary error", err, log.ComponentSummary, log.OpRender)
		s.renderError(w, http.StatusBadGateway, "Não foi possível carregar o resumo do mês.")
		return
	}
	v := view.BuildMonthSummary(f, now, d.Summary, d.Categories, view.DefaultSelection)
	s.render(w, r, http.StatusOK, "month.html", pageData{Title: "Resumo do mês", Active: core.PeriodMonth, Month: &v})
}

// handleWeekSummary re-renders the weekly partial for the resolved
// selection. A warm cache serves it without touching the store.
func (s *Server) handleWeekSummary(w http.ResponseWriter, r *http.Request) {
	sel := ParseSelection(r.URL.Query())
	f := s.queries.Formatter()
	now := f.In(s.now())

	d, err := s.queries.Week(r.Context(), now)
	if err != nil {
		s.logError(r, "Week summary partial error", err, log.ComponentSummary, log.OpRender)
		s.renderError(w, http.StatusBadGateway, "Erro carregando o resumo.")
		return
	}
	s.render(w, r, http.StatusOK, "week_summary", view.BuildWeekSummary(f, now, d.Summary, d.Categories, sel))
}

func (s *Server) handleMonthSummary(w http.ResponseWriter, r *http.Request) {
	sel := ParseSelection(r.URL.Query())
	f := s.queries.Formatter()
	now := f.In(s.now())

	d, err := s.queries.Month(r.Context(), now)
	if err != nil {
		s.logError(r, "Month summary partial error", err, log.ComponentSummary, log.OpRender)
		s.renderError(w, http.StatusBadGateway, "Erro carregando o resumo.")
		return
	}
	s.render(w, r, http.StatusOK, "month_summary", view.BuildMonthSummary(f, now, d.Summary, d.Categories, sel))
}

func (s *Server) handlePendingGoals(w http.ResponseWriter, r *http.Request) {
	period, err := core.ParsePeriod(chi.URLParam(r, "period"))
	if err != nil {
		BadRequestError("Período desconhecido.").Write(w)
		return
	}
	sel := view.Selection(sanitizeInput(r.URL.Query().Get("category")))
	now := s.queries.Formatter().In(s.now())

	goals, err := s.queries.PendingGoals(r.Context(), period, now)
	if err != nil {
		s.logError(r, "Pending goals error", err, log.ComponentGoal, log.OpRender)
		s.renderError(w, http.StatusBadGateway, "Erro carregando as metas.")
		return
	}
	s.render(w, r, http.StatusOK, "pending_goals", view.BuildPendingGoals(period, goals, sel))
}

// loadCreateGoalForm fetches the categories offered by the dialog.
func (s *Server) loadCreateGoalForm(r *http.Request) view.CreateGoalForm {
	cats, err := s.queries.Categories(r.Context())
	if err != nil {
		s.logError(r, "Categories error", err, log.ComponentGoal, log.OpList)
	}
	return view.NewCreateGoalForm(cats)
}

func (s *Server) handleNewGoal(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "create_goal", s.loadCreateGoalForm(r))
}

// render executes name into a buffer first so a failing template never
// leaves a half-written response.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if s.templates == nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentTemplate).
			ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		InternalServerError("Templates não carregados.").Write(w)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.count(&s.metrics.renderFailure)
		s.logError(r, "Template execution failed", err, log.ComponentTemplate, log.OpRender)
		InternalServerError("Falha ao renderizar a página.").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderError(w http.ResponseWriter, status int, message string) {
	ErrorResponse(status, message).Write(w)
}

func (s *Server) logError(r *http.Request, msg string, err error, component, op string) {
	fields := log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent(), r.Referer())
	log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), msg, err, component, op, fields)
}
