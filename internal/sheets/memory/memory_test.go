package memory

import (
	"context"
	"testing"
	"time"

	"inorbit/internal/core"
)

func TestMirrorAppendRemove(t *testing.T) {
	ctx := context.Background()
	m := New()
	at := time.Date(2024, 10, 8, 9, 0, 0, 0, time.UTC)

	ref, err := m.AppendCompletion(ctx, core.Completion{ID: "a", CompletedAt: at})
	if err != nil || ref != "mem:1" {
		t.Fatalf("append a: ref=%q err=%v", ref, err)
	}
	if _, err := m.AppendCompletion(ctx, core.Completion{ID: "b", CompletedAt: at}); err != nil {
		t.Fatalf("append b: %v", err)
	}
	if ref, _ := m.AppendCompletion(ctx, core.Completion{ID: "a", CompletedAt: at}); ref != "mem:1" {
		t.Fatalf("duplicate append should return existing row, got %q", ref)
	}
	if len(m.Rows()) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(m.Rows()))
	}

	if err := m.RemoveCompletion(ctx, core.Completion{ID: "a"}); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := m.RemoveCompletion(ctx, core.Completion{ID: "missing"}); err != nil {
		t.Fatalf("remove missing should be a no-op: %v", err)
	}
	rows := m.Rows()
	if len(rows) != 1 || rows[0].ID != "b" {
		t.Fatalf("unexpected rows %+v", rows)
	}

	if _, err := m.AppendCompletion(ctx, core.Completion{}); err == nil {
		t.Fatalf("expected validation error")
	}
}
