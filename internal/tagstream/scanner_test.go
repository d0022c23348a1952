// Copyright (c) 2025-2026 Inkwell Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package tagstream

import (
	"strings"
	"testing"
)

// =============================================================================
// STATELESS SCAN TESTS
// =============================================================================

func TestScanCompletePairInOneChunk(t *testing.T) {
	res := Scan("Here you go: <apply_edit><h1>Title</h1></apply_edit> done", "")

	if res.Payload == nil {
		t.Fatal("Expected a payload")
	}
	if res.Payload.Cleaned != "<h1>Title</h1>" {
		t.Errorf("Expected cleaned payload '<h1>Title</h1>', got %q", res.Payload.Cleaned)
	}
	if res.TagOpen {
		t.Error("TagOpen should be false after extraction")
	}
	if res.Buffer != "Here you go:  done" {
		t.Errorf("Residual prose not preserved, got %q", res.Buffer)
	}
}

func TestScanSplitAcrossTwoChunks(t *testing.T) {
	// Scenario from the wire contract: tag opens in the first delta, closes
	// in the second.
	first := Scan("Here is the fix: <apply_edit><h1>A</h1>", "")
	if first.Payload != nil {
		t.Fatal("No payload expected after first delta")
	}
	if !first.TagOpen {
		t.Error("TagOpen should be true with an unmatched opening delimiter")
	}

	second := Scan("<p>B</p></apply_edit> done", first.Buffer)
	if second.Payload == nil {
		t.Fatal("Expected payload on second delta")
	}
	if second.Payload.Cleaned != "<h1>A</h1><p>B</p>" {
		t.Errorf("Expected '<h1>A</h1><p>B</p>', got %q", second.Payload.Cleaned)
	}
	if !strings.Contains(second.Buffer, "done") {
		t.Errorf("Prose after the closing delimiter lost: %q", second.Buffer)
	}
}

func TestScanNoDelimitersIsPlainProse(t *testing.T) {
	res := Scan("just some explanation, no edits here", "")
	if res.Payload != nil {
		t.Error("No payload expected")
	}
	if res.TagOpen {
		t.Error("TagOpen must stay false for plain prose")
	}
	if res.Buffer != "just some explanation, no edits here" {
		t.Errorf("Buffer should hold the working text, got %q", res.Buffer)
	}
}

func TestScanOpeningTagWithAttributes(t *testing.T) {
	res := Scan(`<apply_edit reason="rewrite"><p>x</p></apply_edit>`, "")
	if res.Payload == nil {
		t.Fatal("Expected payload with attributed opening tag")
	}
	if res.Payload.Cleaned != "<p>x</p>" {
		t.Errorf("Expected '<p>x</p>', got %q", res.Payload.Cleaned)
	}
}

func TestScanUnterminatedOpeningHead(t *testing.T) {
	// '<apply_edit' present and the closing delimiter present, but the
	// opening tag head never sees its '>': no complete occurrence.
	res := Scan(`<apply_edit foo </apply_edit>`, "")
	if res.Payload != nil {
		t.Error("Malformed opening tag must not yield a payload")
	}
	if !res.TagOpen {
		t.Error("Scanner should keep waiting for a complete pair")
	}
}

func TestScanStrayCloseDelimiter(t *testing.T) {
	res := Scan("prose with a stray </apply_edit> marker", "")
	if res.Payload != nil {
		t.Error("Stray closing delimiter must not yield a payload")
	}
	if !res.TagOpen {
		t.Error("A lone delimiter reports TagOpen")
	}
}

func TestScanPlainTextPayloadRejected(t *testing.T) {
	// Payload without any markup fails validation; the pair is still
	// consumed so later prose is not poisoned.
	res := Scan("<apply_edit>no markup at all</apply_edit> trailing", "")
	if res.Payload != nil {
		t.Error("Plain-text payload must be rejected by validation")
	}
	if res.TagOpen {
		t.Error("Pair was complete; TagOpen should be false")
	}
	if !strings.Contains(res.Buffer, "trailing") {
		t.Errorf("Residual text lost: %q", res.Buffer)
	}
}

// =============================================================================
// CHUNKING INVARIANCE
// =============================================================================

// TestScanOneCharAtATime verifies the core streaming property: for a stream
// whose concatenation contains exactly one well-formed pair, the payload is
// yielded exactly once with the same cleaned text regardless of chunking.
func TestScanOneCharAtATime(t *testing.T) {
	full := "Sure! <apply_edit><h2>Notes</h2><p>Better text.</p></apply_edit> Let me know."

	var payloads []*Payload
	buffer := ""
	for _, r := range full {
		res := Scan(string(r), buffer)
		buffer = res.Buffer
		if res.Payload != nil {
			payloads = append(payloads, res.Payload)
		}
	}

	if len(payloads) != 1 {
		t.Fatalf("Expected exactly one payload, got %d", len(payloads))
	}
	if payloads[0].Cleaned != "<h2>Notes</h2><p>Better text.</p>" {
		t.Errorf("Cleaned payload mismatch: %q", payloads[0].Cleaned)
	}
}

func TestScanChunkingInvariance(t *testing.T) {
	full := "prefix <apply_edit>\n```html\n<p>fenced</p>\n```\n</apply_edit> suffix"

	for _, size := range []int{1, 2, 3, 5, 7, 11, len(full)} {
		var got []string
		buffer := ""
		for i := 0; i < len(full); i += size {
			end := i + size
			if end > len(full) {
				end = len(full)
			}
			res := Scan(full[i:end], buffer)
			buffer = res.Buffer
			if res.Payload != nil {
				got = append(got, res.Payload.Cleaned)
			}
		}
		if len(got) != 1 {
			t.Fatalf("chunk size %d: expected one payload, got %d", size, len(got))
		}
		if got[0] != "<p>fenced</p>" {
			t.Errorf("chunk size %d: expected '<p>fenced</p>', got %q", size, got[0])
		}
	}
}

func TestScanNoOpenDelimiterNeverReportsTagOpen(t *testing.T) {
	full := "plain prose across many chunks without any markers at all"
	buffer := ""
	for _, r := range full {
		res := Scan(string(r), buffer)
		buffer = res.Buffer
		if res.Payload != nil {
			t.Fatal("No payload expected")
		}
		if res.TagOpen {
			t.Fatal("TagOpen must never be reported without a delimiter")
		}
	}
}

// =============================================================================
// STATEFUL SCANNER TESTS
// =============================================================================

func TestScannerStateTransitions(t *testing.T) {
	sc := NewScanner()
	if sc.State() != StateNoTag {
		t.Fatalf("Initial state should be no_tag, got %s", sc.State())
	}

	sc.Advance("thinking about it... <apply_edit")
	if sc.State() != StatePartialTag {
		t.Errorf("Expected partial_tag after opening fragment, got %s", sc.State())
	}

	res := sc.Advance("><p>done</p></apply_edit>")
	if sc.State() != StateClosed {
		t.Errorf("Expected closed after complete pair, got %s", sc.State())
	}
	if res.Payload == nil || res.Payload.Cleaned != "<p>done</p>" {
		t.Fatalf("Expected payload '<p>done</p>', got %+v", res.Payload)
	}
}

func TestScannerDiscardsProseKeepsCarry(t *testing.T) {
	sc := NewScanner()

	// Long prose must not accumulate.
	for i := 0; i < 100; i++ {
		sc.Advance("prose and more prose. ")
	}
	if len(sc.Buffer()) >= len(OpenDelimiter) {
		t.Errorf("Prose buffer not bounded: %d bytes retained", len(sc.Buffer()))
	}

	// A delimiter split right at a chunk boundary must still be detected.
	sc.Advance("now the edit: <app")
	sc.Advance("ly_edit><h1>T")
	res := sc.Advance("</h1></apply_edit>")
	if res.Payload == nil || res.Payload.Cleaned != "<h1>T</h1>" {
		t.Fatalf("Split delimiter not reassembled, got %+v", res.Payload)
	}
}

func TestScannerSecondPairDetected(t *testing.T) {
	sc := NewScanner()

	first := sc.Advance("<apply_edit><p>one</p></apply_edit>")
	if first.Payload == nil || first.Payload.Cleaned != "<p>one</p>" {
		t.Fatalf("First payload missing: %+v", first.Payload)
	}

	second := sc.Advance(" and again <apply_edit><p>two</p></apply_edit>")
	if second.Payload == nil || second.Payload.Cleaned != "<p>two</p>" {
		t.Fatalf("Second payload missing: %+v", second.Payload)
	}
}

func TestScannerReset(t *testing.T) {
	sc := NewScanner()
	sc.Advance("<apply_edit><p>half")
	sc.Reset()
	if sc.State() != StateNoTag || sc.Buffer() != "" {
		t.Errorf("Reset did not clear scanner: state=%s buffer=%q", sc.State(), sc.Buffer())
	}
}

// =============================================================================
// FENCE STRIPPING TESTS
// =============================================================================

func TestStripFence(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"html fence", "```html\n<p>x</p>\n```", "<p>x</p>"},
		{"bare fence", "```\n<p>x</p>\n```", "<p>x</p>"},
		{"no fence", "<p>x</p>", "<p>x</p>"},
		{"whitespace only trimmed", "  <p>x</p>  ", "<p>x</p>"},
		{"inner fence preserved", "```html\n<pre>```js\ncode\n```</pre>\n```", "<pre>```js\ncode\n```</pre>"},
		{"language tag variants", "```xhtml5\n<div>y</div>\n```", "<div>y</div>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripFence(tt.input); got != tt.want {
				t.Errorf("StripFence(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// =============================================================================
// VALIDATOR TESTS
// =============================================================================

func TestValidateHTML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"empty", "", false},
		{"whitespace only", "   \n\t ", false},
		{"plain text", "no tags here", false},
		{"simple paragraph", "<p>hello</p>", true},
		{"mismatched divs still pass", "<div><p>x</p>", true},
		{"self closing", "<p>a</p><br/>", true},
		{"full document", "<h1>T</h1><p>body</p><div><span>s</span></div>", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateHTML(tt.input); got != tt.want {
				t.Errorf("ValidateHTML(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestContainsHTMLTag(t *testing.T) {
	if !ContainsHTMLTag("some <p>fallback</p> text") {
		t.Error("Expected tag detection")
	}
	if ContainsHTMLTag("angle < brackets > without tags? 1 < 2") {
		// "< brackets >" does match <[^>]+>; the heuristic is
		// intentionally loose, mirroring the apply fallback.
		t.Log("loose heuristic matched bracketed prose (accepted)")
	}
	if ContainsHTMLTag("nothing here") {
		t.Error("No tags expected")
	}
}
