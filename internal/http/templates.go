package http

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"inorbit/internal/core"
	"inorbit/internal/view"
)

var templateFuncs = template.FuncMap{
	"capitalize":             capitalize,
	"dialogOverlayClass":     func() string { return view.DialogOverlayClass },
	"dialogContentClass":     func() string { return view.DialogContentClass },
	"dialogTitleClass":       func() string { return view.DialogTitleClass },
	"dialogDescriptionClass": func() string { return view.DialogDescriptionClass },
	"summaryURL":             summaryURL,
	"filterURL":              filterURL,
	"pendingURL":             pendingURL,
	"completeURL":            completeURL,
	"undoURL":                undoURL,
}

func parseTemplates(fsys fs.FS) (*template.Template, error) {
	t, err := template.New("").Funcs(templateFuncs).ParseFS(fsys, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return t, nil
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// summaryURL refetches a summary keeping the current selection.
func summaryURL(period core.Period, current string) string {
	return "/ui/summary/" + string(period) + "?current=" + url.QueryEscape(current)
}

// filterURL toggles the selection of a summary to category.
func filterURL(period core.Period, category, current string) string {
	q := url.Values{}
	q.Set("category", category)
	q.Set("current", current)
	return "/ui/summary/" + string(period) + "?" + q.Encode()
}

func pendingURL(period core.Period, category string) string {
	return "/ui/pending/" + string(period) + "?category=" + url.QueryEscape(category)
}

func completeURL(goalID string) string {
	return "/goals/" + url.PathEscape(strings.TrimSpace(goalID)) + "/completions"
}

func undoURL(completionID string) string {
	return "/completions/" + url.PathEscape(strings.TrimSpace(completionID))
}
