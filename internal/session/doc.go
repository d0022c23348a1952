// Copyright (c) 2025-2026 Inkwell Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session orchestrates AI edit turns against the active document.
//
// One Context exists per application instance. It owns the active document
// id, the single-slot pending-edit snapshot, and the bounded edit history
// ring.
//
// A Controller drives one assistant turn at a time through the state machine
// Idle → Streaming → Idle: each streamed delta is fed to the
// tag scanner, extracted payloads are applied to the live document and the
// persisted record, and exactly one history entry (plus, in preview flows,
// one pending snapshot) is recorded per turn.
package session
