// Copyright (c) 2025-2026 Inkwell Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"sync"

	"github.com/inkwell-notes/inkwell/internal/editor"
)

// =============================================================================
// DOCUMENT STORE INTERFACE
// =============================================================================

// DocumentStore is the slice of the persisted store the session layer needs.
// *storage.Store satisfies it.
type DocumentStore interface {
	// Update replaces the persisted content for a document id.
	Update(id, content string) error
}

// =============================================================================
// SESSION CONTEXT
// =============================================================================

// Context holds the edit-session state for one application instance: the
// active document, the pending-edit slot, and the history ring.
//
// The pipeline itself runs one turn at a time on delta boundaries; the mutex
// exists because HTTP handlers (undo, revert, document switch) may touch the
// context from other goroutines.
type Context struct {
	mu sync.Mutex

	store DocumentStore

	// Active document
	activeDocID string
	handle      editor.Handle

	// Pending-edit preview slot (at most one, process-wide)
	pending *PendingEdit

	// Edit history ring
	history    []HistoryItem
	historyCap int
}

// NewContext creates a session context backed by the given store.
func NewContext(store DocumentStore) *Context {
	return &Context{
		store:      store,
		historyCap: DefaultHistoryLimit,
	}
}

// SetHistoryLimit adjusts the history ring capacity, evicting oldest entries
// when the new capacity is smaller. Values below 1 are ignored.
func (c *Context) SetHistoryLimit(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n < 1 {
		return
	}
	c.historyCap = n
	if len(c.history) > n {
		c.history = c.history[len(c.history)-n:]
	}
}

// SetActiveDocument switches the active document. The pending-edit slot is
// reset (a preview belongs to the document it was taken from); history and
// documents persist across switches.
func (c *Context) SetActiveDocument(id string, handle editor.Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeDocID = id
	c.handle = handle
	c.pending = nil
}

// ActiveDocumentID returns the id of the currently open document.
func (c *Context) ActiveDocumentID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeDocID
}

// Handle returns the live document handle, or nil if none is open.
func (c *Context) Handle() editor.Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle
}

// persist writes content to the persisted record for the active document.
// Safe with a nil store (tests, detached sessions); the update error is the
// caller's to log.
func (c *Context) persist(content string) error {
	c.mu.Lock()
	id := c.activeDocID
	store := c.store
	c.mu.Unlock()

	if store == nil || id == "" {
		return nil
	}
	return store.Update(id, content)
}
