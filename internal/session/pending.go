// Copyright (c) 2025-2026 Inkwell Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"log"

	"github.com/inkwell-notes/inkwell/internal/editor"
)

// =============================================================================
// PENDING-EDIT SNAPSHOT
// =============================================================================

// PendingEdit is the single-slot preview state: the document's pre-edit form,
// held so the user can accept or discard the change just applied.
type PendingEdit struct {
	OriginalHTML string
	IsApplying   bool
}

// StartPendingEdit records the pre-edit document content. If a snapshot
// already exists it is overwritten: only the most recent pending edit is
// kept, never a stack.
func (c *Context) StartPendingEdit(originalHTML string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = &PendingEdit{
		OriginalHTML: originalHTML,
		IsApplying:   true,
	}
}

// FinishPendingEdit accepts the pending edit: the slot is cleared and the
// current document content stands.
func (c *Context) FinishPendingEdit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = nil
}

// RevertPendingEdit discards the pending edit, restoring the snapshot into
// the live document and the persisted record. Without a live document handle
// the slot is cleared with no mutation (fails soft). Returns true if the
// document was restored.
func (c *Context) RevertPendingEdit() bool {
	c.mu.Lock()
	pending := c.pending
	handle := c.handle
	c.pending = nil
	c.mu.Unlock()

	if pending == nil {
		return false
	}
	if handle == nil {
		log.Printf("REVERT_SKIP | reason=no_document_handle")
		return false
	}

	if !editor.Apply(handle, pending.OriginalHTML) {
		return false
	}
	if err := c.persist(pending.OriginalHTML); err != nil {
		log.Printf("REVERT_PERSIST_ERROR | error=%v", err)
	}
	return true
}

// PendingEdit returns a copy of the current pending edit, or nil if the slot
// is empty.
func (c *Context) PendingEdit() *PendingEdit {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return nil
	}
	cp := *c.pending
	return &cp
}
