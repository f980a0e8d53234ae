package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"inorbit/internal/amqp"
	"inorbit/internal/core"
	"inorbit/internal/locale"
	"inorbit/internal/ports"
	"inorbit/internal/sheets"
)

// MirrorWorker applies completion events to the spreadsheet mirror.
type MirrorWorker struct {
	mirror sheets.Mirror
	store  ports.CompletionReader
	fmt    *locale.Formatter
	now    func() time.Time
}

// NewMirrorWorker builds a worker. store may be nil, which disables Reconcile.
func NewMirrorWorker(mirror sheets.Mirror, store ports.CompletionReader, f *locale.Formatter) *MirrorWorker {
	return &MirrorWorker{mirror: mirror, store: store, fmt: f, now: time.Now}
}

// HandleEvent implements amqp.Handler. Events that can never succeed are
// logged and acknowledged; mirror failures are returned for redelivery.
func (w *MirrorWorker) HandleEvent(ctx context.Context, msg *amqp.CompletionEvent) error {
	if err := msg.Validate(); err != nil {
		slog.WarnContext(ctx, "Dropping invalid completion event", "error", err)
		return nil
	}
	c := msg.Completion()
	if c.CompletedAt.IsZero() {
		slog.WarnContext(ctx, "Dropping completion event without timestamp", "completion_id", c.ID)
		return nil
	}

	slog.InfoContext(ctx, "Processing completion event",
		"type", msg.Type,
		"completion_id", c.ID,
		"goal_id", c.GoalID)

	switch msg.Type {
	case amqp.CompletionCreated:
		ref, err := w.mirror.AppendCompletion(ctx, c)
		if err != nil {
			return fmt.Errorf("append completion to mirror: %w", err)
		}
		slog.InfoContext(ctx, "Mirrored completion", "completion_id", c.ID, "sheets_ref", ref)
	case amqp.CompletionUndone:
		if err := w.mirror.RemoveCompletion(ctx, c); err != nil {
			return fmt.Errorf("remove completion from mirror: %w", err)
		}
		slog.InfoContext(ctx, "Removed completion from mirror", "completion_id", c.ID)
	}
	return nil
}

// Reconcile appends every completion of the current month to the mirror.
// The mirror ignores rows it already holds, so missed events are recovered
// without duplicating the rest.
func (w *MirrorWorker) Reconcile(ctx context.Context) error {
	if w.store == nil {
		return nil
	}
	now := w.now()
	from := w.fmt.StartOfMonth(now)
	to := from.AddDate(0, 1, 0)

	synced, failed := 0, 0
	for _, period := range []core.Period{core.PeriodWeek, core.PeriodMonth} {
		comps, err := w.store.Completions(ctx, period, from, to)
		if err != nil {
			return fmt.Errorf("list %s completions: %w", period, err)
		}
		for _, c := range comps {
			if _, err := w.mirror.AppendCompletion(ctx, c); err != nil {
				slog.ErrorContext(ctx, "Failed to mirror completion", "completion_id", c.ID, "error", err)
				failed++
				continue
			}
			synced++
		}
	}

	slog.InfoContext(ctx, "Mirror reconcile completed", "synced", synced, "errors", failed)
	if failed > 0 {
		return fmt.Errorf("reconcile: %d completions not mirrored", failed)
	}
	return nil
}
