// Copyright (c) 2025-2026 Inkwell Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the HTTP API for the inkwell note backend.
//
// Endpoints:
//   - GET    /health                     - Health check
//   - GET    /api/documents              - List documents
//   - POST   /api/documents              - Create a document (opens it)
//   - GET    /api/documents/{id}         - Fetch a document
//   - PUT    /api/documents/{id}         - Update title and/or content
//   - DELETE /api/documents/{id}         - Delete a document
//   - POST   /api/documents/{id}/open    - Make a document the active one
//   - GET    /api/documents/{id}/export  - Export (markdown, html, json)
//   - POST   /api/chat                   - Stream an assistant turn over SSE
//   - POST   /api/edit/undo              - Undo the last recorded edit
//   - POST   /api/edit/revert            - Discard the pending AI edit
//   - POST   /api/edit/finish            - Accept the pending AI edit
//   - GET    /api/edit/pending           - Pending-edit state
//   - GET    /api/history                - Edit history ring
//
// The chat endpoint relays deltas from the upstream model as SSE events and
// feeds the same deltas through the edit session controller, so tagged edits
// land in the document while the response is still streaming.
package server
