// Copyright (c) 2025-2026 Inkwell Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"

	"github.com/inkwell-notes/inkwell/internal/util"
)

var (
	codec     tokenizer.Codec
	codecOnce sync.Once
	codecErr  error
)

// getCodec returns the cl100k_base tokenizer, loaded once.
func getCodec() (tokenizer.Codec, error) {
	codecOnce.Do(func() {
		codec, codecErr = tokenizer.Get(tokenizer.Cl100kBase)
	})
	return codec, codecErr
}

// CountTokens returns the token count of text under cl100k_base. This is an
// approximation for DeepSeek models but close enough for budgeting.
func CountTokens(text string) (int, error) {
	c, err := getCodec()
	if err != nil {
		return 0, err
	}
	ids, _, err := c.Encode(text)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// EstimateTokens returns the token count, falling back to a chars/4 estimate
// when the tokenizer is unavailable.
func EstimateTokens(text string) int {
	n, err := CountTokens(text)
	if err != nil {
		return util.RuneLen(text) / 4
	}
	return n
}

// TruncateTokens cuts text to at most maxTokens tokens. When the tokenizer
// is unavailable it falls back to a rune cut at four runes per token.
func TruncateTokens(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}

	c, err := getCodec()
	if err != nil {
		return util.TruncateRunesNoEllipsis(text, maxTokens*4)
	}
	ids, _, err := c.Encode(text)
	if err != nil {
		return util.TruncateRunesNoEllipsis(text, maxTokens*4)
	}
	if len(ids) <= maxTokens {
		return text
	}
	cut, err := c.Decode(ids[:maxTokens])
	if err != nil {
		return util.TruncateRunesNoEllipsis(text, maxTokens*4)
	}
	return cut
}
