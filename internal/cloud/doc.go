// Copyright (c) 2025-2026 Inkwell Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud implements the DeepSeek chat-completions client.
//
// DeepSeek exposes an OpenAI-compatible API: JSON chat requests and
// Server-Sent Events for streaming responses. This package covers both,
// plus the error taxonomy the HTTP layer maps onto client-facing codes.
//
// # Key Types
//
//   - Client: configured API client with retry and backoff
//   - ChatMessage: one message in a conversation
//   - StreamChunk: one parsed SSE delta
//   - APIError: typed upstream failure carrying an ErrorCode
//
// # Usage
//
//	client := cloud.NewClient(apiKey)
//	err := client.ChatStream(ctx, messages, func(chunk cloud.StreamChunk) {
//	    fmt.Print(chunk.GetContent())
//	})
package cloud
