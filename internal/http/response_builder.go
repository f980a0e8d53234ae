// Package http serves the inorbit pages, htmx partials and JSON endpoints.
//
// This file implements the builder for htmx responses. Every mutating
// handler answers through it so HX-Trigger headers stay consistent.
package http

import (
	"encoding/json"
	"html/template"
	"net/http"
	"sort"
)

const (
	// EventShowNotification is the client-side toast event.
	EventShowNotification = "show-notification"
	// EventCloseDialog closes any open <dialog>.
	EventCloseDialog = "close-dialog"
)

type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
)

// Notification is the payload of a show-notification event.
type Notification struct {
	Type     NotificationType `json:"type"`
	Message  string           `json:"message"`
	Duration int              `json:"duration"`
}

// HTMXResponseBuilder assembles status, headers, HX-Trigger events and body.
type HTMXResponseBuilder struct {
	triggers   map[string]any
	statusCode int
	body       []byte
	headers    map[string]string
}

func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{
		triggers:   make(map[string]any),
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.statusCode = code
	return b
}

// Trigger adds a named event. Adding the same name twice keeps the last payload.
func (b *HTMXResponseBuilder) Trigger(name string, data any) *HTMXResponseBuilder {
	if data == nil {
		data = struct{}{}
	}
	b.triggers[name] = data
	return b
}

// TriggerPartitions adds one event per invalidated cache partition.
func (b *HTMXResponseBuilder) TriggerPartitions(partitions ...string) *HTMXResponseBuilder {
	for _, p := range partitions {
		b.Trigger(p, nil)
	}
	return b
}

func (b *HTMXResponseBuilder) TriggerNotification(t NotificationType, message string, durationMs int) *HTMXResponseBuilder {
	return b.Trigger(EventShowNotification, Notification{Type: t, Message: message, Duration: durationMs})
}

func (b *HTMXResponseBuilder) TriggerSuccessNotification(message string) *HTMXResponseBuilder {
	return b.TriggerNotification(NotificationSuccess, message, 3000)
}

func (b *HTMXResponseBuilder) TriggerErrorNotification(message string) *HTMXResponseBuilder {
	return b.TriggerNotification(NotificationError, message, 5000)
}

func (b *HTMXResponseBuilder) TriggerCloseDialog() *HTMXResponseBuilder {
	return b.Trigger(EventCloseDialog, nil)
}

// Signals copies the notification and partition events collected in s.
func (b *HTMXResponseBuilder) Signals(s *signals) *HTMXResponseBuilder {
	if s == nil {
		return b
	}
	n, partitions := s.snapshot()
	if n != nil {
		b.Trigger(EventShowNotification, *n)
	}
	return b.TriggerPartitions(partitions...)
}

func (b *HTMXResponseBuilder) Header(name, value string) *HTMXResponseBuilder {
	b.headers[name] = value
	return b
}

func (b *HTMXResponseBuilder) Body(content []byte) *HTMXResponseBuilder {
	b.body = content
	return b
}

func (b *HTMXResponseBuilder) BodyHTML(html string) *HTMXResponseBuilder {
	b.headers["Content-Type"] = "text/html; charset=utf-8"
	b.body = []byte(html)
	return b
}

// Events lists the trigger names in sorted order.
func (b *HTMXResponseBuilder) Events() []string {
	names := make([]string, 0, len(b.triggers))
	for name := range b.triggers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if len(b.triggers) > 0 {
		if triggerJSON, err := json.Marshal(b.triggers); err == nil {
			w.Header().Set("HX-Trigger", string(triggerJSON))
		}
	}
	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorResponse is a status with an escaped error fragment as body.
func ErrorResponse(statusCode int, message string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		Status(statusCode).
		BodyHTML(`<div class="error">` + template.HTMLEscapeString(message) + `</div>`)
}

func BadRequestError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func UnprocessableEntityError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

func InternalServerError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

func NotFoundError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}
