package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/require"

	"inorbit/internal/cache"
	"inorbit/internal/core"
	"inorbit/internal/locale"
	"inorbit/internal/log"
	"inorbit/internal/memory"
	"inorbit/internal/middleware/ratelimit"
	"inorbit/internal/services"
)

type testEnv struct {
	srv   *Server
	store *memory.Store
	goals *services.GoalService
	cache *cache.QueryCache
}

func newTestEnv(t *testing.T, mutate ...func(*Deps)) *testEnv {
	t.Helper()
	store := memory.New()
	f := locale.New(time.UTC)
	qc := cache.NewQueryCache(16, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
	goals := services.NewGoalService(store, nil, services.Invalidators{qc, ClientInvalidator()}, f)

	deps := Deps{
		Queries:   services.NewQueries(store, qc, f),
		Goals:     goals,
		Cache:     qc,
		Backend:   store,
		Logger:    log.New(log.Config{Level: slog.LevelError, Output: io.Discard}),
		RateLimit: ratelimit.Config{RequestsPerMinute: 1000},
	}
	for _, m := range mutate {
		m(&deps)
	}
	srv := NewServer(":0", deps)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testEnv{srv: srv, store: store, goals: goals, cache: qc}
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	w := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(w, req)
	return w
}

func (e *testEnv) seedCompletion(t *testing.T, title, category string) core.Completion {
	t.Helper()
	ctx := context.Background()
	g, err := e.goals.CreateGoal(ctx, core.Goal{Title: title, Category: category, Period: core.PeriodWeek, DesiredFrequency: 3})
	require.NoError(t, err)
	c, err := e.goals.CompleteGoal(ctx, g.ID)
	require.NoError(t, err)
	return c
}

func triggers(t *testing.T, w *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	raw := w.Header().Get("HX-Trigger")
	if raw == "" {
		return map[string]json.RawMessage{}
	}
	out := map[string]json.RawMessage{}
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func notification(t *testing.T, w *httptest.ResponseRecorder) Notification {
	t.Helper()
	raw, ok := triggers(t, w)[EventShowNotification]
	require.True(t, ok, "missing show-notification in %q", w.Header().Get("HX-Trigger"))
	var n Notification
	require.NoError(t, json.Unmarshal(raw, &n))
	return n
}

func TestPages(t *testing.T) {
	env := newTestEnv(t)
	env.seedCompletion(t, "Meditar", "saúde")

	t.Run("week", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/", "")
		require.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		require.Contains(t, body, `id="summary-week"`)
		require.Contains(t, body, "Meditar")
		require.Contains(t, body, "Todas")
		require.Contains(t, body, `hx-trigger="summary-week from:body, categories from:body"`)
		require.Contains(t, body, `hx-swap="none"`)
	})

	t.Run("month", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/month", "")
		require.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		require.Contains(t, body, `id="summary-month"`)
		require.Contains(t, body, "Semana Atual")
		require.Contains(t, body, "open")
	})
}

func TestSummaryPartialFiltering(t *testing.T) {
	env := newTestEnv(t)
	env.seedCompletion(t, "Meditar", "saúde")
	env.seedCompletion(t, "Relatório", "work")

	q := url.Values{"category": {"work"}, "current": {"all"}}
	w := env.do(t, http.MethodGet, "/ui/summary/week?"+q.Encode(), "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	require.Contains(t, body, "Relatório")
	require.NotContains(t, body, "Meditar")
	require.Contains(t, body, `data-selection="work"`)
	require.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	// An empty toggle keeps the current selection.
	q = url.Values{"category": {""}, "current": {"work"}}
	w = env.do(t, http.MethodGet, "/ui/summary/week?"+q.Encode(), "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `data-selection="work"`)

	w = env.do(t, http.MethodGet, "/ui/summary/month?category="+url.QueryEscape("saúde"), "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Meditar")
	require.NotContains(t, w.Body.String(), "Relatório")
}

func TestSummaryServedFromWarmCache(t *testing.T) {
	env := newTestEnv(t)
	env.seedCompletion(t, "Meditar", "saúde")

	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/ui/summary/week", "").Code)
	loads := env.cache.Stats().Loads
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/ui/summary/week?category="+url.QueryEscape("saúde"), "").Code)
	require.Equal(t, loads, env.cache.Stats().Loads, "a selection change must not reload the summary")
}

func TestPendingGoals(t *testing.T) {
	env := newTestEnv(t)
	env.seedCompletion(t, "Meditar", "saúde")
	_, err := env.goals.CreateGoal(context.Background(), core.Goal{Title: "Ler", Category: "study", Period: core.PeriodMonth, DesiredFrequency: 1})
	require.NoError(t, err)

	w := env.do(t, http.MethodGet, "/ui/pending/week", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Meditar")
	require.Contains(t, w.Body.String(), "1/3")
	require.NotContains(t, w.Body.String(), "Ler")

	w = env.do(t, http.MethodGet, "/ui/pending/monthly?category=study", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Ler")

	w = env.do(t, http.MethodGet, "/ui/pending/year", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "Período desconhecido.")
}

func TestCreateGoal(t *testing.T) {
	env := newTestEnv(t)

	t.Run("dialog", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/ui/goals/new", "")
		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), `id="create-goal"`)
		require.Contains(t, w.Body.String(), "z-40")
	})

	t.Run("created", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/goals", "title=Meditar&category=saúde&desired_frequency=2")
		require.Equal(t, http.StatusOK, w.Code)
		tr := triggers(t, w)
		for _, p := range append([]string{EventCloseDialog, cache.PartitionCategories}, cache.CompletionPartitions...) {
			require.Contains(t, tr, p)
		}
		require.Equal(t, NotificationSuccess, notification(t, w).Type)

		goals, err := env.store.Goals(context.Background(), core.PeriodWeek, time.Time{}, time.Now().Add(time.Hour))
		require.NoError(t, err)
		require.Len(t, goals, 1)
	})

	t.Run("invalid form", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/goals", "desired_frequency=2")
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		require.Contains(t, w.Body.String(), "Informe a atividade.")
		require.Contains(t, w.Body.String(), `id="create-goal-form"`)
	})

	t.Run("reserved category", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/goals", "title=Ler&category=All&desired_frequency=2")
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		require.Contains(t, w.Body.String(), "Escolha outro nome de categoria.")
	})

	t.Run("invalid json body gets message only", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/goals", `{"title":"","desired_frequency":2}`)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		require.Contains(t, w.Body.String(), `<div class="error">Informe a atividade.</div>`)
		require.NotContains(t, w.Body.String(), `id="create-goal-form"`)
	})
}

func TestCompleteGoal(t *testing.T) {
	env := newTestEnv(t)
	g, err := env.goals.CreateGoal(context.Background(), core.Goal{Title: "Ler", Period: core.PeriodWeek, DesiredFrequency: 1})
	require.NoError(t, err)

	w := env.do(t, http.MethodPost, "/goals/"+g.ID+"/completions", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, NotificationSuccess, notification(t, w).Type)
	for _, p := range cache.CompletionPartitions {
		require.Contains(t, triggers(t, w), p)
	}

	w = env.do(t, http.MethodPost, "/goals/"+g.ID+"/completions", "")
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, NotificationError, notification(t, w).Type)

	w = env.do(t, http.MethodPost, "/goals/missing/completions", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestUndoCompletion(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		env := newTestEnv(t)
		c := env.seedCompletion(t, "Meditar", "saúde")

		// Warm the cache so the invalidation is observable.
		require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/ui/summary/week", "").Code)
		require.Positive(t, env.cache.Size(cache.PartitionSummaryWeek))

		w := env.do(t, http.MethodDelete, "/completions/"+c.ID, "")
		require.Equal(t, http.StatusOK, w.Code)

		tr := triggers(t, w)
		require.Len(t, tr, 5)
		for _, p := range cache.CompletionPartitions {
			require.Contains(t, tr, p)
		}
		n := notification(t, w)
		require.Equal(t, NotificationSuccess, n.Type)
		require.Equal(t, services.UndoSuccessMessage, n.Message)
		require.Zero(t, env.cache.Size(cache.PartitionSummaryWeek))

		w = env.do(t, http.MethodGet, "/ui/summary/week", "")
		require.NotContains(t, w.Body.String(), "completion-"+c.ID)
	})

	t.Run("post alias", func(t *testing.T) {
		env := newTestEnv(t)
		c := env.seedCompletion(t, "Meditar", "")
		w := env.do(t, http.MethodPost, "/completions/"+c.ID+"/undo", "")
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unknown id", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.do(t, http.MethodDelete, "/completions/nope", "")
		require.Equal(t, http.StatusNotFound, w.Code)
		tr := triggers(t, w)
		require.Len(t, tr, 1)
		require.Equal(t, NotificationError, notification(t, w).Type)
	})

	t.Run("missing id", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.do(t, http.MethodDelete, "/completions", "")
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Len(t, triggers(t, w), 1)
		require.Equal(t, services.UndoErrorMessage, notification(t, w).Message)
	})

	t.Run("deleter failure", func(t *testing.T) {
		env := newTestEnv(t, func(d *Deps) { d.Goals = failingGoals{} })
		w := env.do(t, http.MethodDelete, "/completions/c1", "")
		require.Equal(t, http.StatusBadGateway, w.Code)
		require.Len(t, triggers(t, w), 1)
		require.Equal(t, NotificationError, notification(t, w).Type)
	})
}

type failingGoals struct{}

var errBackendDown = errors.New("backend down")

func (failingGoals) CreateGoal(context.Context, core.Goal) (core.Goal, error) {
	return core.Goal{}, errBackendDown
}

func (failingGoals) CompleteGoal(context.Context, string) (core.Completion, error) {
	return core.Completion{}, errBackendDown
}

func (failingGoals) DeleteCompletion(context.Context, string) (core.Completion, error) {
	return core.Completion{}, errBackendDown
}

func TestTemplatesMissing(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) { d.Templates = fstest.MapFS{} })

	w := env.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Contains(t, w.Body.String(), `<div class="error">Templates não carregados.</div>`)

	w = env.do(t, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestOpsEndpoints(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"status":"ok"`)

	w = env.do(t, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusOK, w.Code)
	var ready struct {
		Status string         `json:"status"`
		Checks map[string]any `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ready))
	require.Equal(t, "ready", ready.Status)
	require.Equal(t, "ok", ready.Checks["backend"])

	w = env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	for _, m := range []string{"http_requests_total", "undo_total{result=\"ok\"}", "cache_hits_total", "uptime_seconds"} {
		require.Contains(t, w.Body.String(), m)
	}
	require.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestAPI(t *testing.T) {
	env := newTestEnv(t)
	env.seedCompletion(t, "Meditar", "saúde")

	w := env.do(t, http.MethodGet, "/api/summary/week", "")
	require.Equal(t, http.StatusOK, w.Code)
	var week struct {
		Summary core.WeekSummary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &week))
	require.Equal(t, 1, week.Summary.Completed)
	require.Equal(t, 3, week.Summary.Total)

	w = env.do(t, http.MethodGet, "/api/summary/month", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/categories", "")
	require.Equal(t, http.StatusOK, w.Code)
	var cats core.CategoryList
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cats))
	require.Len(t, cats.UserCategories, 1)
	require.Equal(t, "saúde", cats.UserCategories[0].Name)
}

func TestRateLimitOnMutations(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) { d.RateLimit = ratelimit.Config{RequestsPerMinute: 2} })

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, "/completions/x", "").Code)
	}
	w := env.do(t, http.MethodDelete, "/completions/x", "")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.NotEmpty(t, w.Header().Get("Retry-After"))
	require.Equal(t, NotificationError, notification(t, w).Type)

	// Reads are not limited.
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/healthz", "").Code)
}

func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	require.NotEmpty(t, w.Header().Get("Content-Security-Policy"))

	w = env.do(t, "TRACE", "/", "")
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestStaticAssets(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/static/app.js", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "show-notification")
}
