package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"inorbit/internal/core"
)

type EventType string

const (
	CompletionCreated EventType = "completion.created"
	CompletionUndone  EventType = "completion.undone"
)

// CompletionEvent is published after a completion is stored or undone.
// It carries the full row so consumers never read the database.
type CompletionEvent struct {
	Type         EventType `json:"type"`
	CompletionID string    `json:"completion_id"`
	GoalID       string    `json:"goal_id"`
	Title        string    `json:"title"`
	Category     string    `json:"category"`
	CompletedAt  time.Time `json:"completed_at"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewCompletionEvent builds an event for c stamped with the current time.
func NewCompletionEvent(t EventType, c core.Completion) *CompletionEvent {
	return &CompletionEvent{
		Type:         t,
		CompletionID: c.ID,
		GoalID:       c.GoalID,
		Title:        c.Title,
		Category:     c.Category,
		CompletedAt:  c.CompletedAt,
		Timestamp:    time.Now(),
	}
}

func (m *CompletionEvent) Validate() error {
	switch m.Type {
	case CompletionCreated, CompletionUndone:
	default:
		return fmt.Errorf("unknown event type %q", m.Type)
	}
	if m.CompletionID == "" {
		return errors.New("missing completion id")
	}
	return nil
}

// Completion returns the completion the event describes.
func (m *CompletionEvent) Completion() core.Completion {
	return core.Completion{
		ID:          m.CompletionID,
		GoalID:      m.GoalID,
		Title:       m.Title,
		Category:    m.Category,
		CompletedAt: m.CompletedAt,
	}
}

// ToJSON converts the message to JSON bytes
func (m *CompletionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// CompletionEventFromJSON decodes and validates an event.
func CompletionEventFromJSON(data []byte) (*CompletionEvent, error) {
	var msg CompletionEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
