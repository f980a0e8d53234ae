package memory

import (
	"context"
	"fmt"
	"sync"

	"inorbit/internal/core"
	"inorbit/internal/sheets"
)

var _ sheets.Mirror = (*Mirror)(nil)

// Mirror is an in-process stand-in for the completions spreadsheet.
type Mirror struct {
	mu   sync.Mutex
	rows []core.Completion
}

func New() *Mirror { return &Mirror{} }

// AppendCompletion stores c and returns a synthetic row reference. A
// completion already present is not duplicated.
func (m *Mirror) AppendCompletion(_ context.Context, c core.Completion) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rows {
		if r.ID == c.ID {
			return fmt.Sprintf("mem:%d", i+1), nil
		}
	}
	m.rows = append(m.rows, c)
	return fmt.Sprintf("mem:%d", len(m.rows)), nil
}

func (m *Mirror) RemoveCompletion(_ context.Context, c core.Completion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rows {
		if r.ID == c.ID {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

// Rows returns a copy of the mirrored completions in append order.
func (m *Mirror) Rows() []core.Completion {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Completion(nil), m.rows...)
}
