// Copyright (c) 2025-2026 Inkwell Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export converts stored documents into portable formats.
//
// Documents are stored as HTML. Markdown export runs them through the
// html-to-markdown converter, HTML export wraps them in a standalone
// themed page, and JSON export emits the full stored record.
package export
