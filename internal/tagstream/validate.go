// Copyright (c) 2025-2026 Inkwell Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package tagstream

import (
	"log"
	"regexp"
	"strings"
)

// =============================================================================
// PAYLOAD VALIDATION
// =============================================================================

// The upstream model is untrusted and sometimes ignores formatting
// instructions. Validation exists to keep obviously-garbage content from
// wiping the user's document, not to guarantee well-formed markup.

// htmlTagPattern matches any HTML tag. Used both by the validator and by the
// turn-level fallback heuristic.
var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

// tagFamily pairs opening and closing patterns for one structural tag family.
type tagFamily struct {
	name  string
	open  *regexp.Regexp
	close *regexp.Regexp
}

// Structural families checked for open/close balance: container blocks,
// paragraphs, headings, inline containers.
var tagFamilies = []tagFamily{
	{"div", regexp.MustCompile(`(?i)<div[^>]*>`), regexp.MustCompile(`(?i)</div>`)},
	{"p", regexp.MustCompile(`(?i)<p[^>]*>`), regexp.MustCompile(`(?i)</p>`)},
	{"heading", regexp.MustCompile(`(?i)<h[1-6][^>]*>`), regexp.MustCompile(`(?i)</h[1-6]>`)},
	{"span", regexp.MustCompile(`(?i)<span[^>]*>`), regexp.MustCompile(`(?i)</span>`)},
}

// ValidateHTML performs a structural sanity check on a candidate document
// replacement. It rejects empty text and text containing no markup at all
// (plain prose is not an acceptable full-document replacement). Open/close
// count mismatches in the structural families are logged as warnings but do
// not fail validation: self-closing and irregular nesting are common and
// acceptable.
func ValidateHTML(html string) bool {
	if strings.TrimSpace(html) == "" {
		return false
	}

	if !htmlTagPattern.MatchString(html) {
		return false
	}

	for _, fam := range tagFamilies {
		opens := len(fam.open.FindAllString(html, -1))
		closes := len(fam.close.FindAllString(html, -1))
		if opens > 0 && opens != closes {
			log.Printf("VALIDATE_WARN | family=%s open=%d close=%d mismatched tags", fam.name, opens, closes)
		}
	}

	return true
}

// ContainsHTMLTag reports whether text contains anything that looks like an
// HTML tag. This is the trigger for the turn-level fallback when no delimited
// payload was ever extracted.
func ContainsHTMLTag(text string) bool {
	return htmlTagPattern.MatchString(text)
}
