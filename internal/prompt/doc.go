// Copyright (c) 2025-2026 Inkwell Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prompt assembles the chat messages sent to the model.
//
// The system prompt depends on the turn mode: ask mode instructs the model
// to answer without editing, agent mode instructs it to return the complete
// document wrapped in apply_edit tags. Document context and conversation
// history are trimmed against a token budget before sending.
package prompt
