// Copyright (c) 2025-2026 Inkwell Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides document persistence for inkwell.
//
// Documents are HTML note bodies addressed by id. The store is the
// authoritative persisted record; the live in-memory view patched during
// streaming belongs to the editor package.
//
// # Key Types
//
//   - Store: SQLite-backed document store
//   - Document: persisted note with title, HTML content, and timestamps
//
// # Usage
//
//	store, err := storage.Open(filepath.Join(dataDir, "documents.db"))
//	doc, err := store.Create("Untitled", "<p></p>")
//	err = store.Update(doc.ID, "<p>new content</p>")
//
// # Storage Location
//
// The database lives under the configured data directory, by default
// ~/.inkwell/documents.db.
package storage
