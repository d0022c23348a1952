// Copyright (c) 2025-2026 Inkwell Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrDocumentNotFound is returned when a document doesn't exist.
// Use errors.Is(err, ErrDocumentNotFound) to check for this error.
var ErrDocumentNotFound = &DocumentError{Message: "document not found"}

// DocumentError represents a document-related error.
type DocumentError struct {
	Message string
}

// Error implements the error interface.
func (e *DocumentError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing document errors.
func (e *DocumentError) Is(target error) bool {
	t, ok := target.(*DocumentError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// =============================================================================
// DOCUMENT TYPE
// =============================================================================

// Document is a persisted note.
type Document struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"` // HTML
	CreatedAt    time.Time `json:"created_at"`
	LastModified time.Time `json:"last_modified"`
}

// DocumentMeta is a lightweight listing entry (content omitted).
type DocumentMeta struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	LastModified time.Time `json:"last_modified"`
	ContentSize  int       `json:"content_size"`
}

// =============================================================================
// DOCUMENT STORE
// =============================================================================

// Store persists documents in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the document database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// CREATE / UPDATE
// =============================================================================

// Create inserts a new document and returns it.
func (s *Store) Create(title, content string) (*Document, error) {
	now := time.Now().UTC()
	doc := &Document{
		ID:           uuid.New().String(),
		Title:        title,
		Content:      content,
		CreatedAt:    now,
		LastModified: now,
	}

	_, err := s.db.Exec(
		`INSERT INTO documents (id, title, content, created_at, last_modified) VALUES (?, ?, ?, ?, ?)`,
		doc.ID, doc.Title, doc.Content, doc.CreatedAt.Unix(), doc.LastModified.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert document: %w", err)
	}
	return doc, nil
}

// Update replaces a document's content and touches last_modified.
func (s *Store) Update(id, content string) error {
	res, err := s.db.Exec(
		`UPDATE documents SET content = ?, last_modified = ? WHERE id = ?`,
		content, time.Now().UTC().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	return checkAffected(res)
}

// Rename changes a document's title and touches last_modified.
func (s *Store) Rename(id, title string) error {
	res, err := s.db.Exec(
		`UPDATE documents SET title = ?, last_modified = ? WHERE id = ?`,
		title, time.Now().UTC().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to rename document: %w", err)
	}
	return checkAffected(res)
}

// =============================================================================
// LOAD / LIST
// =============================================================================

// Get retrieves a document by id.
func (s *Store) Get(id string) (*Document, error) {
	row := s.db.QueryRow(
		`SELECT id, title, content, created_at, last_modified FROM documents WHERE id = ?`, id,
	)

	var doc Document
	var created, modified int64
	err := row.Scan(&doc.ID, &doc.Title, &doc.Content, &created, &modified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	doc.CreatedAt = time.Unix(created, 0).UTC()
	doc.LastModified = time.Unix(modified, 0).UTC()
	return &doc, nil
}

// List returns metadata for all documents, most recently modified first.
func (s *Store) List() ([]DocumentMeta, error) {
	rows, err := s.db.Query(
		`SELECT id, title, length(content), created_at, last_modified
		 FROM documents ORDER BY last_modified DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var metas []DocumentMeta
	for rows.Next() {
		var m DocumentMeta
		var created, modified int64
		if err := rows.Scan(&m.ID, &m.Title, &m.ContentSize, &created, &modified); err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		m.CreatedAt = time.Unix(created, 0).UTC()
		m.LastModified = time.Unix(modified, 0).UTC()
		metas = append(metas, m)
	}
	return metas, rows.Err()
}

// =============================================================================
// DELETE
// =============================================================================

// Delete removes a document by id.
func (s *Store) Delete(id string) error {
	res, err := s.db.Exec(`DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return checkAffected(res)
}

// =============================================================================
// HELPERS
// =============================================================================

// checkAffected converts a zero-row mutation into ErrDocumentNotFound.
func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrDocumentNotFound
	}
	return nil
}
