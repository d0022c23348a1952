// Copyright (c) 2025-2026 Inkwell Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package diff computes line diffs between two versions of a document's
// content. The API layer uses it to show what a pending AI edit changed
// before the user accepts or discards it.
package diff

import (
	"fmt"
	"strings"
)

// =============================================================================
// LINE TYPES
// =============================================================================

// LineType classifies a diff line.
type LineType int

const (
	// LineContext is an unchanged line.
	LineContext LineType = iota
	// LineAdded is a line present only in the new content.
	LineAdded
	// LineRemoved is a line present only in the old content.
	LineRemoved
)

// String returns the wire name of the line type.
func (t LineType) String() string {
	switch t {
	case LineAdded:
		return "added"
	case LineRemoved:
		return "removed"
	default:
		return "context"
	}
}

// Prefix returns the unified-diff prefix character.
func (t LineType) Prefix() string {
	switch t {
	case LineAdded:
		return "+"
	case LineRemoved:
		return "-"
	default:
		return " "
	}
}

// Line is a single diff line. OldLine is 0 for additions, NewLine is 0 for
// removals.
type Line struct {
	Type    LineType `json:"type"`
	Content string   `json:"content"`
	OldLine int      `json:"old_line"`
	NewLine int      `json:"new_line"`
}

// Hunk is a contiguous run of changes with surrounding context.
type Hunk struct {
	OldStart int    `json:"old_start"`
	OldCount int    `json:"old_count"`
	NewStart int    `json:"new_start"`
	NewCount int    `json:"new_count"`
	Lines    []Line `json:"lines"`
}

// Stats summarizes a diff.
type Stats struct {
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
}

// Diff is a complete comparison of two content versions.
type Diff struct {
	Title string `json:"title"`
	Hunks []Hunk `json:"hunks"`
	Stats Stats  `json:"stats"`
}

// contextLines is how many unchanged lines pad each hunk.
const contextLines = 3

// =============================================================================
// COMPUTATION
// =============================================================================

// Compute diffs old against new content using an LCS line alignment.
func Compute(title, oldContent, newContent string) *Diff {
	d := &Diff{Title: title}

	oldLines := splitLines(oldContent)
	newLines := splitLines(newContent)
	lines := alignLines(oldLines, newLines)

	for _, line := range lines {
		switch line.Type {
		case LineAdded:
			d.Stats.Additions++
		case LineRemoved:
			d.Stats.Deletions++
		}
	}

	d.Hunks = groupIntoHunks(lines)
	return d
}

// splitLines splits content into lines, dropping a trailing newline's empty
// remainder.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// alignLines walks both versions against their longest common subsequence,
// classifying each line.
func alignLines(oldLines, newLines []string) []Line {
	var result []Line

	lcs := longestCommonSubsequence(oldLines, newLines)

	oldIdx, newIdx, lcsIdx := 0, 0, 0
	for oldIdx < len(oldLines) || newIdx < len(newLines) {
		switch {
		case lcsIdx < len(lcs) && oldIdx < len(oldLines) && newIdx < len(newLines) &&
			oldLines[oldIdx] == lcs[lcsIdx] && newLines[newIdx] == lcs[lcsIdx]:
			result = append(result, Line{
				Type:    LineContext,
				Content: oldLines[oldIdx],
				OldLine: oldIdx + 1,
				NewLine: newIdx + 1,
			})
			oldIdx++
			newIdx++
			lcsIdx++

		case oldIdx < len(oldLines) && (lcsIdx >= len(lcs) || oldLines[oldIdx] != lcs[lcsIdx]):
			result = append(result, Line{
				Type:    LineRemoved,
				Content: oldLines[oldIdx],
				OldLine: oldIdx + 1,
			})
			oldIdx++

		default:
			result = append(result, Line{
				Type:    LineAdded,
				Content: newLines[newIdx],
				NewLine: newIdx + 1,
			})
			newIdx++
		}
	}

	return result
}

// longestCommonSubsequence of two line slices via dynamic programming.
func longestCommonSubsequence(a, b []string) []string {
	m, n := len(a), len(b)

	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if a[i-1] == b[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
			} else {
				dp[i][j] = max(dp[i-1][j], dp[i][j-1])
			}
		}
	}

	var lcs []string
	for i, j := m, n; i > 0 && j > 0; {
		switch {
		case a[i-1] == b[j-1]:
			lcs = append(lcs, a[i-1])
			i--
			j--
		case dp[i-1][j] > dp[i][j-1]:
			i--
		default:
			j--
		}
	}
	for l, r := 0, len(lcs)-1; l < r; l, r = l+1, r-1 {
		lcs[l], lcs[r] = lcs[r], lcs[l]
	}
	return lcs
}

// groupIntoHunks splits the classified lines into hunks, each padded with up
// to contextLines of unchanged lines on either side.
func groupIntoHunks(lines []Line) []Hunk {
	if len(lines) == 0 {
		return nil
	}

	// Mark which indices belong in a hunk: every change plus its context.
	keep := make([]bool, len(lines))
	for i, line := range lines {
		if line.Type == LineContext {
			continue
		}
		lo := max(0, i-contextLines)
		hi := min(len(lines)-1, i+contextLines)
		for j := lo; j <= hi; j++ {
			keep[j] = true
		}
	}

	var hunks []Hunk
	var current *Hunk
	for i, line := range lines {
		if !keep[i] {
			if current != nil {
				hunks = append(hunks, *current)
				current = nil
			}
			continue
		}
		if current == nil {
			current = &Hunk{}
			if line.OldLine > 0 {
				current.OldStart = line.OldLine
			}
			if line.NewLine > 0 {
				current.NewStart = line.NewLine
			}
		}
		current.Lines = append(current.Lines, line)
		if line.OldLine > 0 {
			current.OldCount++
		}
		if line.NewLine > 0 {
			current.NewCount++
		}
	}
	if current != nil {
		hunks = append(hunks, *current)
	}
	return hunks
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// =============================================================================
// FORMATTING
// =============================================================================

// Unified renders the diff in unified diff format.
func (d *Diff) Unified() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("--- a/%s\n", d.Title))
	sb.WriteString(fmt.Sprintf("+++ b/%s\n", d.Title))

	for _, hunk := range d.Hunks {
		sb.WriteString(fmt.Sprintf("@@ -%d,%d +%d,%d @@\n",
			hunk.OldStart, hunk.OldCount, hunk.NewStart, hunk.NewCount))
		for _, line := range hunk.Lines {
			sb.WriteString(line.Type.Prefix())
			sb.WriteString(line.Content)
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// Summary returns a short human-readable description, e.g. "+4 -1".
func (d *Diff) Summary() string {
	if d.Stats.Additions == 0 && d.Stats.Deletions == 0 {
		return "No changes"
	}
	var parts []string
	if d.Stats.Additions > 0 {
		parts = append(parts, fmt.Sprintf("+%d", d.Stats.Additions))
	}
	if d.Stats.Deletions > 0 {
		parts = append(parts, fmt.Sprintf("-%d", d.Stats.Deletions))
	}
	return strings.Join(parts, " ")
}
