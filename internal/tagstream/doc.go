// Copyright (c) 2025-2026 Inkwell Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tagstream extracts <apply_edit> payloads from streamed model output.
//
// Assistant responses arrive as incremental deltas, and the edit payload is
// embedded in free-form prose between an opening and a closing delimiter.
// Either delimiter (or the opening tag itself) may be split across any number
// of deltas, so extraction has to tolerate arbitrary chunking.
//
// # Key Types
//
//   - Scanner: stateful chunk-at-a-time scanner with a small explicit state
//     machine (NoTag, PartialTag, Closed) and bounded per-delta cost
//   - Result: outcome of one advance (payload, open-tag flag, retained buffer)
//   - Payload: extracted inner text, raw and cleaned
//
// # Usage
//
//	sc := tagstream.NewScanner()
//	for delta := range deltas {
//		res := sc.Advance(delta)
//		if res.Payload != nil {
//			apply(res.Payload.Cleaned)
//		}
//	}
//
// The package also exposes the stateless Scan(delta, priorBuffer) form for
// callers that manage buffer retention themselves.
package tagstream
