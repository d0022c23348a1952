// Copyright (c) 2025-2026 Inkwell Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

const (
	// SchemaVersion tracks the database schema version for migrations
	SchemaVersion = 1
)

// SQLite schema for the document store.
const schema = `
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS documents (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    content TEXT NOT NULL,        -- HTML body
    created_at INTEGER NOT NULL,  -- Unix timestamp
    last_modified INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_last_modified ON documents(last_modified);

INSERT OR IGNORE INTO metadata (key, value) VALUES ('schema_version', '1');
`
