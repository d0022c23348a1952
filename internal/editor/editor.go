// Copyright (c) 2025-2026 Inkwell Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package editor defines the document mutation interface the edit pipeline
// drives, and the fail-closed applier that guards it.
//
// The rich-text surface itself (selection, formatting, tables) lives in the
// browser and is out of scope here; the pipeline only needs "read the whole
// document" and "replace the whole document", keyed implicitly to whichever
// document is currently open.
package editor

import (
	"log"
	"sync"
)

// =============================================================================
// DOCUMENT HANDLE
// =============================================================================

// Handle is the live document mutation interface.
//
// SetContent may panic (the original surface throws); callers must go
// through Apply, which converts any panic into a false return.
type Handle interface {
	// GetContent returns the current document content as HTML.
	GetContent() string

	// SetContent replaces the document content with the given HTML.
	SetContent(html string)
}

// =============================================================================
// PATCH APPLIER
// =============================================================================

// Apply replaces the document content through h. It fails closed: a nil
// handle or a panic from the mutation yields false with no error escaping.
// Apply never touches the persisted document record; that is the session
// controller's responsibility.
func Apply(h Handle, content string) (ok bool) {
	if h == nil {
		log.Printf("APPLY_SKIP | reason=no_document_handle")
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("APPLY_ERROR | panic=%v", r)
			ok = false
		}
	}()

	h.SetContent(content)
	return true
}

// =============================================================================
// IN-MEMORY BUFFER
// =============================================================================

// Buffer is an in-memory Handle. The server uses one per open document as
// the live view the streaming pipeline patches; tests use it directly.
type Buffer struct {
	mu      sync.RWMutex
	content string
}

// NewBuffer returns a Buffer holding the given initial content.
func NewBuffer(content string) *Buffer {
	return &Buffer{content: content}
}

// GetContent returns the buffer's current HTML.
func (b *Buffer) GetContent() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.content
}

// SetContent replaces the buffer's HTML.
func (b *Buffer) SetContent(html string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.content = html
}
