// Copyright (c) 2025-2026 Inkwell Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package tagstream

import (
	"strings"
)

// =============================================================================
// DELIMITERS
// =============================================================================

const (
	// OpenDelimiter marks the start of an edit payload. The opening tag may
	// carry attributes, so the delimiter is the tag head only; the head is
	// complete once a '>' follows.
	OpenDelimiter = "<apply_edit"

	// CloseDelimiter marks the end of an edit payload.
	CloseDelimiter = "</apply_edit>"
)

// =============================================================================
// SCANNER STATE
// =============================================================================

// State identifies the scanner's position relative to a delimiter pair.
type State int

const (
	// StateNoTag means no delimiter has been observed in the retained buffer.
	StateNoTag State = iota

	// StatePartialTag means one delimiter (or a fragment that may still
	// become one) has been observed but the pair is not yet complete.
	StatePartialTag

	// StateClosed means a complete delimiter pair was just consumed.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateNoTag:
		return "no_tag"
	case StatePartialTag:
		return "partial_tag"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// =============================================================================
// RESULT TYPES
// =============================================================================

// Payload is the inner text of one complete delimiter pair.
type Payload struct {
	// RawInner is the text between the delimiters, untouched.
	RawInner string

	// Cleaned is RawInner trimmed, with a single leading/trailing markdown
	// code fence stripped. Only payloads whose Cleaned form passes
	// ValidateHTML are ever returned by the scanner.
	Cleaned string
}

// Result is the outcome of feeding one delta to the scanner.
type Result struct {
	// Payload is non-nil at most once per complete delimiter pair, and only
	// when the cleaned inner text passed validation.
	Payload *Payload

	// TagOpen reports whether a delimiter has been seen without its partner.
	TagOpen bool

	// Buffer is the unconsumed text. When TagOpen is false the caller may
	// discard it as plain prose; the scanner itself never decides that.
	Buffer string
}

// =============================================================================
// STATELESS SCAN
// =============================================================================

// Scan concatenates priorBuffer and delta and reports whether the working
// buffer holds a complete delimiter pair, a partial one, or none.
//
// On a complete pair the first non-greedy occurrence is consumed: the matched
// span is removed from the buffer and prose before and after it is preserved.
// Malformed or unmatched delimiters never yield a payload and never panic.
func Scan(delta, priorBuffer string) Result {
	working := priorBuffer + delta

	// Order-insensitive presence checks: either delimiter may arrive first.
	hasOpen := strings.Contains(working, OpenDelimiter)
	hasClose := strings.Contains(working, CloseDelimiter)

	switch {
	case hasOpen && hasClose:
		inner, residual, ok := extract(working)
		if !ok {
			// Both substrings present but no complete occurrence yet, e.g.
			// the opening tag head has no '>' or the close precedes the open.
			return Result{TagOpen: true, Buffer: working}
		}
		res := Result{Buffer: residual}
		cleaned := StripFence(inner)
		if ValidateHTML(cleaned) {
			res.Payload = &Payload{RawInner: inner, Cleaned: cleaned}
		}
		return res

	case hasOpen || hasClose:
		// Partial pair: consume nothing, wait for more chunks.
		return Result{TagOpen: true, Buffer: working}

	default:
		return Result{Buffer: working}
	}
}

// extract finds the first complete <apply_edit ...>inner</apply_edit>
// occurrence in buf. It returns the inner text and the buffer with the
// matched span removed (prose before and after the span preserved).
func extract(buf string) (inner, residual string, ok bool) {
	openIdx := strings.Index(buf, OpenDelimiter)
	if openIdx < 0 {
		return "", "", false
	}

	// The opening tag head ends at the first '>' after the delimiter. Any
	// attributes sit between; a '>' inside an attribute value is not
	// supported, matching the upstream wire contract.
	headEnd := strings.IndexByte(buf[openIdx+len(OpenDelimiter):], '>')
	if headEnd < 0 {
		return "", "", false
	}
	innerStart := openIdx + len(OpenDelimiter) + headEnd + 1

	closeIdx := strings.Index(buf[innerStart:], CloseDelimiter)
	if closeIdx < 0 {
		return "", "", false
	}
	closeIdx += innerStart

	inner = buf[innerStart:closeIdx]
	residual = buf[:openIdx] + buf[closeIdx+len(CloseDelimiter):]
	return inner, residual, true
}

// =============================================================================
// STATEFUL SCANNER
// =============================================================================

// Scanner is the stateful form used for one assistant turn. Unlike the
// stateless Scan it discards confirmed prose as it goes, keeping only the
// small tail that could still begin a delimiter, so per-delta cost stays
// bounded by the delta size regardless of turn length. Callers that need the
// full prose (for display or the finalize fallback) accumulate it themselves.
type Scanner struct {
	buffer string
	state  State
}

// NewScanner returns a scanner in StateNoTag with an empty buffer.
func NewScanner() *Scanner {
	return &Scanner{}
}

// State returns the current scanner state.
func (s *Scanner) State() State {
	return s.state
}

// Buffer returns the retained unconsumed text.
func (s *Scanner) Buffer() string {
	return s.buffer
}

// Reset returns the scanner to its initial state for a new turn.
func (s *Scanner) Reset() {
	s.buffer = ""
	s.state = StateNoTag
}

// Advance feeds one delta to the scanner. It yields at most one payload per
// complete delimiter pair; a second pair later in the same stream is detected
// the same way (the caller decides whether to honor it).
func (s *Scanner) Advance(delta string) Result {
	working := s.buffer + delta

	if s.state != StatePartialTag {
		// Fresh scan: look for the first delimiter fragment.
		if !strings.Contains(working, OpenDelimiter) && !strings.Contains(working, CloseDelimiter) {
			// Pure prose apart from a possible delimiter prefix at the very
			// end. Keep only that tail so the buffer cannot grow unbounded.
			s.buffer = delimiterCarry(working)
			s.state = StateNoTag
			return Result{Buffer: s.buffer}
		}
		s.state = StatePartialTag
	}

	res := Scan("", working)
	s.buffer = res.Buffer

	switch {
	case res.Payload != nil:
		s.state = StateClosed
	case res.TagOpen:
		s.state = StatePartialTag
	default:
		// A complete pair was consumed but its payload failed validation, or
		// no delimiter remains in the residual buffer.
		if strings.Contains(s.buffer, OpenDelimiter) || strings.Contains(s.buffer, CloseDelimiter) {
			s.state = StatePartialTag
		} else {
			s.state = StateNoTag
			s.buffer = delimiterCarry(s.buffer)
		}
	}
	return res
}

// delimiterCarry returns the longest suffix of s that is a proper prefix of
// either delimiter. That tail is all that must survive prose discard: any
// delimiter split across chunk boundaries begins with it.
func delimiterCarry(s string) string {
	carry := ""
	for _, delim := range []string{OpenDelimiter, CloseDelimiter} {
		max := len(delim) - 1
		if max > len(s) {
			max = len(s)
		}
		for n := max; n > len(carry); n-- {
			if s[len(s)-n:] == delim[:n] {
				carry = s[len(s)-n:]
				break
			}
		}
	}
	return carry
}

// =============================================================================
// FENCE STRIPPING
// =============================================================================

// StripFence trims text and removes a markdown code fence wrapping it: a
// leading triple backtick with an optional language tag, and a trailing
// triple backtick. Only fences at the very start and very end are touched;
// inner fences are preserved verbatim.
func StripFence(text string) string {
	t := strings.TrimSpace(text)

	if strings.HasPrefix(t, "```") {
		rest := t[3:]
		i := 0
		for i < len(rest) && isLangByte(rest[i]) {
			i++
		}
		t = strings.TrimLeft(rest[i:], " \t\r\n")
	}

	if strings.HasSuffix(t, "```") {
		t = strings.TrimRight(t[:len(t)-3], " \t\r\n")
	}

	return strings.TrimSpace(t)
}

// isLangByte reports whether b can be part of a fence language tag (html,
// xhtml5, ...).
func isLangByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
