// Copyright (c) 2025-2026 Inkwell Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/inkwell-notes/inkwell/internal/editor"
	"github.com/inkwell-notes/inkwell/internal/tagstream"
)

// =============================================================================
// TURN MODE AND STATE
// =============================================================================

// Mode selects how an assistant turn treats the document.
type Mode int

const (
	// ModeAsk answers questions; any edit that does arrive is applied as an
	// uncommitted preview the user accepts or discards.
	ModeAsk Mode = iota

	// ModeAgent commits edits directly, no preview snapshot.
	ModeAgent
)

// String returns the wire name of the mode.
func (m Mode) String() string {
	if m == ModeAgent {
		return "agent"
	}
	return "ask"
}

// ParseMode maps a wire name to a Mode, defaulting to ask.
func ParseMode(s string) Mode {
	if strings.EqualFold(s, "agent") {
		return ModeAgent
	}
	return ModeAsk
}

// TurnState is the controller's position in the per-turn state machine.
type TurnState int

const (
	// StateIdle means no turn is in flight.
	StateIdle TurnState = iota

	// StateStreaming means deltas for the current turn are being consumed.
	StateStreaming
)

// ErrTurnInProgress is returned when a turn is begun while one is streaming.
var ErrTurnInProgress = errors.New("an edit turn is already streaming")

// =============================================================================
// PER-TURN STATE
// =============================================================================

// editTurn is the state scoped to one assistant response.
type editTurn struct {
	mode Mode

	// originalContent is the document content captured at turn start.
	originalContent string

	// lastApplied is the last successfully applied payload, empty until the
	// first application.
	lastApplied string

	// historyRecorded guards the at-most-one-history-entry-per-turn rule.
	historyRecorded bool

	// accumulated collects the full raw response for the finalize fallback.
	accumulated strings.Builder
}

// =============================================================================
// EDIT SESSION CONTROLLER
// =============================================================================

// Controller consumes one assistant turn's delta stream, live-patching the
// active document as payloads complete.
type Controller struct {
	mu      sync.Mutex
	ctx     *Context
	scanner *tagstream.Scanner
	state   TurnState
	turn    *editTurn
}

// NewController creates a controller bound to a session context.
func NewController(ctx *Context) *Controller {
	return &Controller{
		ctx:     ctx,
		scanner: tagstream.NewScanner(),
	}
}

// State returns the controller's current state.
func (ct *Controller) State() TurnState {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	return ct.state
}

// BeginTurn transitions Idle → Streaming, capturing the document content the
// turn started from. The surrounding UI keeps a second user message out
// while one is streaming; this guard backs that up.
func (ct *Controller) BeginTurn(mode Mode) error {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	if ct.state == StateStreaming {
		return ErrTurnInProgress
	}

	original := ""
	if h := ct.ctx.Handle(); h != nil {
		original = h.GetContent()
	}

	ct.turn = &editTurn{mode: mode, originalContent: original}
	ct.scanner.Reset()
	ct.state = StateStreaming
	return nil
}

// ProcessDelta feeds one streamed delta through the scanner and applies any
// completed payload. Apply failures are logged and the turn stays live:
// later deltas may still succeed.
func (ct *Controller) ProcessDelta(delta string) {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	if ct.state != StateStreaming || ct.turn == nil {
		return
	}

	ct.turn.accumulated.WriteString(delta)

	res := ct.scanner.Advance(delta)
	if res.Payload == nil {
		return
	}

	// A later complete pair in the same turn wins; an identical payload is
	// not re-applied.
	if res.Payload.Cleaned == ct.turn.lastApplied {
		return
	}

	ct.applyLocked(res.Payload.Cleaned, "AI edit ("+ct.turn.mode.String()+" mode)")
}

// Finalize handles end of stream. If a payload was applied the turn is
// complete as-is; otherwise, accumulated text that looks like raw HTML is
// applied directly as a fallback. Transitions back to Idle.
func (ct *Controller) Finalize() {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	if ct.state != StateStreaming || ct.turn == nil {
		return
	}

	if ct.turn.lastApplied == "" {
		full := strings.TrimSpace(ct.turn.accumulated.String())
		if full != "" && tagstream.ContainsHTMLTag(full) {
			log.Printf("TURN_FALLBACK | reason=no_tagged_payload len=%d", len(full))
			ct.applyLocked(full, "AI edit fallback ("+ct.turn.mode.String()+" mode)")
		}
	}

	ct.resetLocked()
}

// Abort handles a cancelled stream (timeout, navigation): straight back to
// Idle with no finalize. Whatever the document held at the last applied
// delta stands as a best-effort partial result; the user can still revert
// the pending edit or undo.
func (ct *Controller) Abort() {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	if ct.state != StateStreaming {
		return
	}
	log.Printf("TURN_ABORT | applied=%v", ct.turn != nil && ct.turn.lastApplied != "")
	ct.resetLocked()
}

// Accumulated returns the full raw response text collected so far in the
// current turn. Empty outside a turn.
func (ct *Controller) Accumulated() string {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	if ct.turn == nil {
		return ""
	}
	return ct.turn.accumulated.String()
}

// =============================================================================
// INTERNAL
// =============================================================================

// applyLocked pushes content into the live document and the persisted
// record, recording the pending snapshot and the turn's single history entry
// on the first success. Caller holds ct.mu.
func (ct *Controller) applyLocked(content, description string) {
	if !editor.Apply(ct.ctx.Handle(), content) {
		log.Printf("TURN_APPLY_FAILED | mode=%s", ct.turn.mode)
		return
	}

	if err := ct.ctx.persist(content); err != nil {
		log.Printf("TURN_PERSIST_ERROR | error=%v", err)
	}

	ct.turn.lastApplied = content

	if !ct.turn.historyRecorded {
		// Preview flows snapshot the pre-turn content so the user can
		// accept or discard; agent mode commits directly.
		if ct.turn.mode != ModeAgent {
			ct.ctx.StartPendingEdit(ct.turn.originalContent)
		}
		ct.ctx.AppendHistory(ct.turn.originalContent, content, description)
		ct.turn.historyRecorded = true
	}
}

// resetLocked returns the controller to Idle. Caller holds ct.mu.
func (ct *Controller) resetLocked() {
	ct.state = StateIdle
	ct.turn = nil
	ct.scanner.Reset()
}
