package http

import (
	"context"
	"net/http"
	"sync"

	"inorbit/internal/services"
)

// signals collects what services report during one request: at most one
// notification and the invalidated partitions, each once, in first-seen order.
type signals struct {
	mu            sync.Mutex
	notification  *Notification
	notifications int
	partitions    []string
	seen          map[string]bool
}

type signalsKey struct{}

func withSignals(ctx context.Context) (context.Context, *signals) {
	s := &signals{seen: make(map[string]bool)}
	return context.WithValue(ctx, signalsKey{}, s), s
}

func signalsFrom(ctx context.Context) *signals {
	s, _ := ctx.Value(signalsKey{}).(*signals)
	return s
}

func (s *signals) notify(t NotificationType, message string, durationMs int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notification = &Notification{Type: t, Message: message, Duration: durationMs}
	s.notifications++
}

func (s *signals) invalidate(partitions ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range partitions {
		if !s.seen[p] {
			s.seen[p] = true
			s.partitions = append(s.partitions, p)
		}
	}
}

func (s *signals) snapshot() (*Notification, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notification, append([]string(nil), s.partitions...)
}

// signalsMiddleware gives every request its own collector.
func signalsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, _ := withSignals(r.Context())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// htmxNotifier turns service notifications into a show-notification event
// on the response of the request that caused them.
type htmxNotifier struct{}

var _ services.Notifier = htmxNotifier{}

func (htmxNotifier) Success(ctx context.Context, message string) {
	if s := signalsFrom(ctx); s != nil {
		s.notify(NotificationSuccess, message, 3000)
	}
}

func (htmxNotifier) Error(ctx context.Context, message string) {
	if s := signalsFrom(ctx); s != nil {
		s.notify(NotificationError, message, 5000)
	}
}

// triggerInvalidator forwards invalidated partitions to the client so the
// partials listening on them refetch.
type triggerInvalidator struct{}

var _ services.Invalidator = triggerInvalidator{}

func (triggerInvalidator) Invalidate(ctx context.Context, partitions ...string) {
	if s := signalsFrom(ctx); s != nil {
		s.invalidate(partitions...)
	}
}
