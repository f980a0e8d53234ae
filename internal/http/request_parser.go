package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"inorbit/internal/core"
	"inorbit/internal/view"
)

const maxBodyBytes = 64 << 10

// ParseSelection resolves the filter toggle sent as category=<new>&current=<prior>.
func ParseSelection(q url.Values) view.Selection {
	return view.ResolveSelection(sanitizeInput(q.Get("category")), sanitizeInput(q.Get("current")))
}

// RequestBodyParser reads a JSON or form-encoded body once.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{contentType: r.Header.Get("Content-Type")}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = errors.New("request body too large")
	}
	return p
}

func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		return p.err
	}
	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if strings.HasPrefix(p.contentType, "application/json") || p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		p.err = json.Unmarshal(p.body, &p.jsonData)
		return p.err
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns the sanitized value of key from the JSON or form body.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// FormError is a validation problem shown back in the create-goal form.
type FormError struct {
	Message string
	Err     error
}

func (e *FormError) Error() string { return e.Message }

func (e *FormError) Unwrap() error { return e.Err }

// ParseGoalForm builds a goal from title, category, period and desired_frequency.
// A missing period defaults to weekly.
func ParseGoalForm(p *RequestBodyParser) (core.Goal, error) {
	if err := p.Parse(); err != nil {
		return core.Goal{}, &FormError{Message: "Formato de requisição inválido.", Err: err}
	}

	g := core.Goal{
		Title:    p.Get("title"),
		Category: p.Get("category"),
		Period:   core.PeriodWeek,
	}
	if g.Title == "" {
		return core.Goal{}, &FormError{Message: "Informe a atividade.", Err: core.ErrEmptyTitle}
	}

	if raw := p.Get("period"); raw != "" {
		period, err := core.ParsePeriod(raw)
		if err != nil {
			return core.Goal{}, &FormError{Message: "Período inválido.", Err: err}
		}
		g.Period = period
	}

	freq, err := strconv.Atoi(p.Get("desired_frequency"))
	if err != nil || freq < core.MinDesiredFrequency || freq > core.MaxDesiredFrequency {
		return core.Goal{}, &FormError{Message: "Escolha quantas vezes por semana.", Err: core.ErrInvalidFrequency}
	}
	g.DesiredFrequency = freq

	if err := g.Validate(); err != nil {
		return core.Goal{}, &FormError{Message: "Dados inválidos: " + err.Error(), Err: err}
	}
	return g, nil
}
