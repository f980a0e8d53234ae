package http

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"inorbit/internal/log"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.metrics.start).String(),
	})
}

// handleReady checks templates, the data backend and the query cache.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)
	fail := func(name string, v any) {
		checks[name] = v
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}

	if s.templates == nil {
		fail("templates", "failed: templates not loaded")
	} else {
		checks["templates"] = "ok"
	}

	switch {
	case s.backend == nil:
		fail("backend", "not_configured")
	default:
		if err := s.backend.Ping(ctx); err != nil {
			fail("backend", fmt.Sprintf("failed: %v", err))
		} else {
			checks["backend"] = "ok"
		}
	}

	if s.cache == nil {
		checks["cache"] = "disabled"
	} else {
		st := s.cache.Stats()
		checks["cache"] = map[string]any{
			"partitions": st.Partitions,
			"entries":    st.Entries,
			"status":     "ok",
		}
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	if httpStatus != http.StatusOK {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", "checks", checks)
	}
	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	traceMetrics := s.traceMiddleware.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	securityMetrics := s.securityDetector.GetMetrics()

	metric := func(name, help, kind string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}

	metric("http_requests_total", "Total number of HTTP requests", "counter", traceMetrics.TotalRequests)
	metric("http_requests_in_flight", "HTTP requests being served", "gauge", traceMetrics.InFlight)
	metric("http_response_time_avg_us", "Average response time in microseconds", "gauge", traceMetrics.AverageResponseTime)
	metric("goals_created_total", "Total number of goals created", "counter", atomic.LoadInt64(&s.metrics.goalsCreated))
	metric("completions_total", "Total number of goal completions", "counter", atomic.LoadInt64(&s.metrics.completions))

	fmt.Fprintf(w, "# HELP undo_total Undo requests by result\n# TYPE undo_total counter\n")
	fmt.Fprintf(w, "undo_total{result=\"ok\"} %d\n", atomic.LoadInt64(&s.metrics.undos))
	fmt.Fprintf(w, "undo_total{result=\"failed\"} %d\n\n", atomic.LoadInt64(&s.metrics.undoFailures))

	metric("template_failures_total", "Template executions that failed", "counter", atomic.LoadInt64(&s.metrics.renderFailure))

	if s.cache != nil {
		st := s.cache.Stats()
		metric("cache_hits_total", "Total query cache hits", "counter", st.Hits)
		metric("cache_misses_total", "Total query cache misses", "counter", st.Misses)
		metric("cache_loads_total", "Total query cache loads", "counter", st.Loads)
		metric("cache_entries", "Current query cache entries", "gauge", st.Entries)
	}

	metric("rate_limit_hits_total", "Total rate limit hits", "counter", rateLimitMetrics.TotalHits)
	metric("rate_limit_active_clients", "Currently tracked clients", "gauge", rateLimitMetrics.ClientCount)
	metric("security_suspicious_requests_total", "Requests flagged as suspicious", "counter", securityMetrics.SuspiciousRequests)
	metric("security_invalid_ip_total", "Invalid client IP headers", "counter", securityMetrics.InvalidIPAttempts)
	metric("uptime_seconds", "Application uptime in seconds", "gauge", int64(time.Since(s.metrics.start).Seconds()))
}

func (s *Server) handleAPIWeekSummary(w http.ResponseWriter, r *http.Request) {
	now := s.queries.Formatter().In(s.now())
	sum, err := s.queries.WeekSummary(r.Context(), now)
	if err != nil {
		s.logError(r, "Week summary API error", err, log.ComponentSummary, log.OpList)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "summary unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"summary": sum})
}

func (s *Server) handleAPIMonthSummary(w http.ResponseWriter, r *http.Request) {
	now := s.queries.Formatter().In(s.now())
	sum, err := s.queries.MonthSummary(r.Context(), now)
	if err != nil {
		s.logError(r, "Month summary API error", err, log.ComponentSummary, log.OpList)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "summary unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"summary": sum})
}

func (s *Server) handleAPICategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.queries.Categories(r.Context())
	if err != nil {
		s.logError(r, "Categories API error", err, log.ComponentGoal, log.OpList)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "categories unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, cats)
}
