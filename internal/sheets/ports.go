package sheets

import (
	"context"

	"inorbit/internal/core"
)

// Mirror keeps a spreadsheet copy of the completion log.
type Mirror interface {
	// AppendCompletion adds a row and returns its range reference.
	AppendCompletion(ctx context.Context, c core.Completion) (rowRef string, err error)
	// RemoveCompletion deletes the row holding c.ID. A missing row is not an error.
	RemoveCompletion(ctx context.Context, c core.Completion) error
}
