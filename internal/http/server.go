package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"inorbit/internal/cache"
	"inorbit/internal/core"
	"inorbit/internal/log"
	"inorbit/internal/middleware/ratelimit"
	"inorbit/internal/middleware/security"
	"inorbit/internal/middleware/trace"
	"inorbit/internal/ports"
	"inorbit/internal/services"
	appweb "inorbit/web"
)

// GoalCommands is the write side the handlers drive.
type GoalCommands interface {
	CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error)
	CompleteGoal(ctx context.Context, goalID string) (core.Completion, error)
	ports.CompletionDeleter
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps wires the server to the rest of the application.
type Deps struct {
	Queries *services.Queries
	Goals   GoalCommands
	// Cache is invalidated by undo; nil when caching is disabled.
	Cache   *cache.QueryCache
	Backend Pinger
	Logger  *log.Logger
	// RateLimit configures the limiter on mutating requests.
	RateLimit ratelimit.Config
	// Templates overrides the embedded web assets.
	Templates fs.FS
	Static    fs.FS
	Now       func() time.Time
}

type appMetrics struct {
	start         time.Time
	goalsCreated  int64
	completions   int64
	undos         int64
	undoFailures  int64
	renderFailure int64
}

type Server struct {
	http.Server
	templates *template.Template
	queries   *services.Queries
	goals     GoalCommands
	undo      *services.UndoCompletion
	cache     *cache.QueryCache
	backend   Pinger
	logger    *log.Logger
	now       func() time.Time

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	metrics          *appMetrics

	shutdownOnce sync.Once
}

// ClientInvalidator reports invalidated partitions to the requesting
// client as HX-Trigger events. Wire it next to the query cache wherever a
// service invalidates on behalf of an HTTP request.
func ClientInvalidator() services.Invalidator { return triggerInvalidator{} }

// NewServer configures routes and templates. Template errors are logged
// and surface through /readyz and 500s on page routes.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	invalidators := services.Invalidators{triggerInvalidator{}}
	if deps.Cache != nil {
		invalidators = services.Invalidators{deps.Cache, triggerInvalidator{}}
	}

	s := &Server{
		queries:          deps.Queries,
		goals:            deps.Goals,
		undo:             services.NewUndoCompletion(deps.Goals, htmxNotifier{}, invalidators),
		cache:            deps.Cache,
		backend:          deps.Backend,
		logger:           logger,
		now:              now,
		rateLimiter:      ratelimit.NewLimiter(deps.RateLimit),
		securityDetector: security.NewDetector(),
		metrics:          &appMetrics{start: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ExtractClientIP)

	templatesFS := deps.Templates
	if templatesFS == nil {
		templatesFS = appweb.TemplatesFS
	}
	t, err := parseTemplates(templatesFS)
	if err != nil {
		logger.Warn("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	staticFS := deps.Static
	if staticFS == nil {
		staticFS = appweb.StaticFS
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(staticFS),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes(staticFS fs.FS) http.Handler {
	r := chi.NewRouter()
	r.Use(s.traceMiddleware.Middleware)
	r.Use(chimw.Recoverer)
	r.Use(s.securityDetector.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, ratelimit.Mutating, s.onRateLimit))
	r.Use(signalsMiddleware)
	r.Use(chimw.Compress(5, "text/html", "text/css", "application/javascript", "application/json"))

	if sub, err := fs.Sub(staticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.With(security.StaticAssetMiddleware(3600)).Handle("/static/*", static)
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	r.Get("/", s.handleWeekPage)
	r.Get("/month", s.handleMonthPage)

	r.Route("/ui", func(r chi.Router) {
		r.Use(security.NoStore)
		r.Get("/summary/week", s.handleWeekSummary)
		r.Get("/summary/month", s.handleMonthSummary)
		r.Get("/pending/{period}", s.handlePendingGoals)
		r.Get("/goals/new", s.handleNewGoal)
	})

	r.Post("/goals", s.handleCreateGoal)
	r.Post("/goals/{id}/completions", s.handleCompleteGoal)
	r.Delete("/completions", s.handleUndoCompletion)
	r.Delete("/completions/{id}", s.handleUndoCompletion)
	r.Post("/completions/{id}/undo", s.handleUndoCompletion)

	r.Route("/api", func(r chi.Router) {
		r.Get("/summary/week", s.handleAPIWeekSummary)
		r.Get("/summary/month", s.handleAPIMonthSummary)
		r.Get("/categories", s.handleAPICategories)
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)
	return r
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	NewHTMXResponse().
		Status(http.StatusTooManyRequests).
		TriggerErrorNotification("Muitas requisições. Tente novamente em instantes.").
		Write(w)
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) count(counter *int64) {
	atomic.AddInt64(counter, 1)
}
