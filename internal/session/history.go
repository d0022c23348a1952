// Copyright (c) 2025-2026 Inkwell Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/inkwell-notes/inkwell/internal/editor"
)

// =============================================================================
// EDIT HISTORY RING
// =============================================================================

// DefaultHistoryLimit bounds the edit history ring: only the most recent
// entries are kept, oldest evicted on overflow.
const DefaultHistoryLimit = 10

// HistoryItem is one recorded document content transition.
type HistoryItem struct {
	ID              string    `json:"id"`
	Timestamp       time.Time `json:"timestamp"`
	PreviousContent string    `json:"previous_content"`
	NewContent      string    `json:"new_content"`
	Description     string    `json:"description"`
}

// AppendHistory records a content transition, evicting the oldest entry when
// the ring is full.
func (c *Context) AppendHistory(previous, next, description string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.history = append(c.history, HistoryItem{
		ID:              uuid.New().String(),
		Timestamp:       time.Now(),
		PreviousContent: previous,
		NewContent:      next,
		Description:     description,
	})
	if len(c.history) > c.historyCap {
		c.history = c.history[len(c.history)-c.historyCap:]
	}
}

// Undo restores the most recent entry's previous content into the live
// document and the persisted record, and removes that entry from the ring.
// It is a no-op returning false on an empty ring or a missing document
// handle. Undo is single-step and independent of the pending-edit slot.
func (c *Context) Undo() bool {
	c.mu.Lock()
	if len(c.history) == 0 {
		c.mu.Unlock()
		return false
	}
	handle := c.handle
	if handle == nil {
		c.mu.Unlock()
		log.Printf("UNDO_SKIP | reason=no_document_handle")
		return false
	}
	last := c.history[len(c.history)-1]
	c.mu.Unlock()

	if !editor.Apply(handle, last.PreviousContent) {
		return false
	}
	if err := c.persist(last.PreviousContent); err != nil {
		log.Printf("UNDO_PERSIST_ERROR | error=%v", err)
	}

	c.mu.Lock()
	// Pop only after the restore succeeded, and only if nothing else
	// appended meanwhile.
	if n := len(c.history); n > 0 && c.history[n-1].ID == last.ID {
		c.history = c.history[:n-1]
	}
	c.mu.Unlock()
	return true
}

// ClearHistory empties the ring unconditionally.
func (c *Context) ClearHistory() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = nil
}

// History returns a copy of the ring, oldest first.
func (c *Context) History() []HistoryItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]HistoryItem, len(c.history))
	copy(out, c.history)
	return out
}

// HistoryLen returns the number of entries in the ring.
func (c *Context) HistoryLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.history)
}
