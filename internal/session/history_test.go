// Copyright (c) 2025-2026 Inkwell Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"fmt"
	"testing"

	"github.com/inkwell-notes/inkwell/internal/editor"
)

// =============================================================================
// HISTORY RING TESTS
// =============================================================================

func TestHistoryRingBound(t *testing.T) {
	ctx, _, _, _ := newTestSession("<p>v0</p>")

	// 15 turns' worth of entries; only the 10 most recent survive, in order.
	for i := 1; i <= 15; i++ {
		ctx.AppendHistory(
			fmt.Sprintf("<p>v%d</p>", i-1),
			fmt.Sprintf("<p>v%d</p>", i),
			"AI edit (agent mode)",
		)
	}

	hist := ctx.History()
	if len(hist) != DefaultHistoryLimit {
		t.Fatalf("Expected %d entries, got %d", DefaultHistoryLimit, len(hist))
	}
	for i, item := range hist {
		want := fmt.Sprintf("<p>v%d</p>", i+6)
		if item.NewContent != want {
			t.Errorf("Entry %d: NewContent = %q, want %q", i, item.NewContent, want)
		}
	}
}

func TestHistoryEntriesHaveIdentity(t *testing.T) {
	ctx, _, _, _ := newTestSession("<p>x</p>")

	ctx.AppendHistory("<p>a</p>", "<p>b</p>", "AI edit (ask mode)")
	ctx.AppendHistory("<p>b</p>", "<p>c</p>", "AI edit (ask mode)")

	hist := ctx.History()
	if hist[0].ID == "" || hist[1].ID == "" {
		t.Error("Entries must carry identifiers")
	}
	if hist[0].ID == hist[1].ID {
		t.Error("Identifiers must be unique")
	}
	if hist[0].Timestamp.IsZero() {
		t.Error("Entries must carry timestamps")
	}
}

func TestUndoRestoresPreviousContent(t *testing.T) {
	ctx, buf, store, _ := newTestSession("<p>v2</p>")

	ctx.AppendHistory("<p>v0</p>", "<p>v1</p>", "AI edit (agent mode)")
	ctx.AppendHistory("<p>v1</p>", "<p>v2</p>", "AI edit (agent mode)")

	if !ctx.Undo() {
		t.Fatal("Undo should succeed")
	}
	if got := buf.GetContent(); got != "<p>v1</p>" {
		t.Errorf("Undo restored %q, want '<p>v1</p>'", got)
	}
	if got := store.updates["doc-1"]; got != "<p>v1</p>" {
		t.Errorf("Undo must persist the restored content, got %q", got)
	}
	if n := ctx.HistoryLen(); n != 1 {
		t.Errorf("Undo removes exactly one entry, ring length = %d", n)
	}
}

func TestUndoEmptyRing(t *testing.T) {
	ctx, buf, _, _ := newTestSession("<p>x</p>")

	if ctx.Undo() {
		t.Error("Undo on an empty ring must return false")
	}
	if got := buf.GetContent(); got != "<p>x</p>" {
		t.Errorf("Empty-ring undo must not mutate, got %q", got)
	}
}

func TestUndoWithoutHandle(t *testing.T) {
	ctx := NewContext(newFakeStore())
	ctx.SetActiveDocument("doc-1", nil)
	ctx.AppendHistory("<p>a</p>", "<p>b</p>", "AI edit (ask mode)")

	if ctx.Undo() {
		t.Error("Undo without a document handle must return false")
	}
	if n := ctx.HistoryLen(); n != 1 {
		t.Errorf("Failed undo must not pop the ring, length = %d", n)
	}
}

func TestUndoAfterTurnRestoresPreTurnContent(t *testing.T) {
	ctx, buf, _, ct := newTestSession("<p>before</p>")

	ct.BeginTurn(ModeAgent)
	ct.ProcessDelta("<apply_edit><p>edited</p></apply_edit>")
	ct.Finalize()

	if !ctx.Undo() {
		t.Fatal("Undo should succeed after an applied turn")
	}
	if got := buf.GetContent(); got != "<p>before</p>" {
		t.Errorf("Undo restored %q, want content from immediately before the turn", got)
	}
	if n := ctx.HistoryLen(); n != 0 {
		t.Errorf("Ring should be empty, length = %d", n)
	}
}

func TestClearHistory(t *testing.T) {
	ctx, _, _, _ := newTestSession("<p>x</p>")
	ctx.AppendHistory("<p>a</p>", "<p>b</p>", "AI edit (ask mode)")
	ctx.ClearHistory()
	if n := ctx.HistoryLen(); n != 0 {
		t.Errorf("ClearHistory left %d entries", n)
	}
}

// =============================================================================
// PENDING-EDIT SLOT TESTS
// =============================================================================

func TestPendingEditOverwrite(t *testing.T) {
	ctx, _, _, _ := newTestSession("<p>x</p>")

	ctx.StartPendingEdit("<p>first</p>")
	ctx.StartPendingEdit("<p>second</p>")

	pending := ctx.PendingEdit()
	if pending == nil || pending.OriginalHTML != "<p>second</p>" {
		t.Errorf("Only the most recent snapshot is kept, got %+v", pending)
	}
}

func TestFinishPendingEditKeepsContent(t *testing.T) {
	ctx, buf, _, _ := newTestSession("<p>edited</p>")

	ctx.StartPendingEdit("<p>original</p>")
	ctx.FinishPendingEdit()

	if ctx.PendingEdit() != nil {
		t.Error("Finish must clear the slot")
	}
	if got := buf.GetContent(); got != "<p>edited</p>" {
		t.Errorf("Finish must not touch document content, got %q", got)
	}
}

func TestRevertPendingEditRestores(t *testing.T) {
	ctx, buf, store, _ := newTestSession("<p>edited</p>")

	ctx.StartPendingEdit("<p>original</p>")
	if !ctx.RevertPendingEdit() {
		t.Fatal("Revert should succeed with a live handle")
	}
	if got := buf.GetContent(); got != "<p>original</p>" {
		t.Errorf("Revert restored %q, want original", got)
	}
	if got := store.updates["doc-1"]; got != "<p>original</p>" {
		t.Errorf("Revert must persist the restored content, got %q", got)
	}
	if ctx.PendingEdit() != nil {
		t.Error("Revert must clear the slot")
	}
}

func TestRevertPendingEditWithoutHandle(t *testing.T) {
	ctx := NewContext(newFakeStore())
	ctx.SetActiveDocument("doc-1", nil)
	ctx.StartPendingEdit("<p>original</p>")

	if ctx.RevertPendingEdit() {
		t.Error("Revert without a handle fails soft")
	}
	if ctx.PendingEdit() != nil {
		t.Error("Slot is still cleared on soft failure")
	}
}

func TestDocumentSwitchResetsPendingOnly(t *testing.T) {
	ctx, _, _, _ := newTestSession("<p>x</p>")

	ctx.StartPendingEdit("<p>original</p>")
	ctx.AppendHistory("<p>a</p>", "<p>b</p>", "AI edit (ask mode)")

	ctx.SetActiveDocument("doc-2", editor.NewBuffer("<p>other</p>"))

	if ctx.PendingEdit() != nil {
		t.Error("Document switch must reset the pending slot")
	}
	if n := ctx.HistoryLen(); n != 1 {
		t.Errorf("History persists across document switches, length = %d", n)
	}
}
