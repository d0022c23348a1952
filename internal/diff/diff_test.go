// Copyright (c) 2025-2026 Inkwell Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package diff

import (
	"strings"
	"testing"
)

func TestComputeAllAdded(t *testing.T) {
	d := Compute("Notes", "", "<h1>a</h1>\n<p>b</p>")

	if d.Stats.Additions != 2 || d.Stats.Deletions != 0 {
		t.Errorf("Stats = %+v, want 2 additions", d.Stats)
	}
	if len(d.Hunks) != 1 {
		t.Fatalf("Hunks = %d, want 1", len(d.Hunks))
	}
	for _, line := range d.Hunks[0].Lines {
		if line.Type != LineAdded {
			t.Errorf("Line %q type = %s, want added", line.Content, line.Type)
		}
	}
}

func TestComputeAllRemoved(t *testing.T) {
	d := Compute("Notes", "<p>one</p>\n<p>two</p>", "")

	if d.Stats.Deletions != 2 || d.Stats.Additions != 0 {
		t.Errorf("Stats = %+v, want 2 deletions", d.Stats)
	}
}

func TestComputeNoChanges(t *testing.T) {
	content := "<p>same</p>\n<p>lines</p>"
	d := Compute("Notes", content, content)

	if d.Stats.Additions != 0 || d.Stats.Deletions != 0 {
		t.Errorf("Stats = %+v, want no changes", d.Stats)
	}
	if len(d.Hunks) != 0 {
		t.Errorf("Hunks = %d, want 0", len(d.Hunks))
	}
	if d.Summary() != "No changes" {
		t.Errorf("Summary = %q", d.Summary())
	}
}

func TestComputeModification(t *testing.T) {
	before := "<h1>Trip</h1>\n<p>old plan</p>\n<p>keep</p>"
	after := "<h1>Trip</h1>\n<p>new plan</p>\n<p>keep</p>"

	d := Compute("Trip", before, after)

	if d.Stats.Additions != 1 || d.Stats.Deletions != 1 {
		t.Errorf("Stats = %+v, want +1 -1", d.Stats)
	}
	if got := d.Summary(); got != "+1 -1" {
		t.Errorf("Summary = %q, want +1 -1", got)
	}

	var removed, added string
	for _, hunk := range d.Hunks {
		for _, line := range hunk.Lines {
			switch line.Type {
			case LineRemoved:
				removed = line.Content
			case LineAdded:
				added = line.Content
			}
		}
	}
	if removed != "<p>old plan</p>" || added != "<p>new plan</p>" {
		t.Errorf("removed=%q added=%q", removed, added)
	}
}

func TestHunksCarryContext(t *testing.T) {
	oldLines := []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}
	newLines := append([]string{}, oldLines...)
	newLines[4] = "changed"

	d := Compute("doc", strings.Join(oldLines, "\n"), strings.Join(newLines, "\n"))

	if len(d.Hunks) != 1 {
		t.Fatalf("Hunks = %d, want 1", len(d.Hunks))
	}
	// One change padded by three context lines each side, plus the removal
	// and addition pair.
	hunk := d.Hunks[0]
	if len(hunk.Lines) != 8 {
		t.Errorf("Hunk lines = %d, want 8", len(hunk.Lines))
	}
	if hunk.Lines[0].Content != "2" {
		t.Errorf("First context line = %q, want 2", hunk.Lines[0].Content)
	}
}

func TestSeparatedChangesMakeSeparateHunks(t *testing.T) {
	var oldLines []string
	for i := 0; i < 20; i++ {
		oldLines = append(oldLines, strings.Repeat("x", i+1))
	}
	newLines := append([]string{}, oldLines...)
	newLines[1] = "first change"
	newLines[18] = "second change"

	d := Compute("doc", strings.Join(oldLines, "\n"), strings.Join(newLines, "\n"))

	if len(d.Hunks) != 2 {
		t.Fatalf("Hunks = %d, want 2", len(d.Hunks))
	}
}

func TestUnifiedFormat(t *testing.T) {
	d := Compute("Trip notes", "<p>old</p>", "<p>new</p>")
	out := d.Unified()

	if !strings.HasPrefix(out, "--- a/Trip notes\n+++ b/Trip notes\n") {
		t.Errorf("Missing header:\n%s", out)
	}
	if !strings.Contains(out, "-<p>old</p>\n") || !strings.Contains(out, "+<p>new</p>\n") {
		t.Errorf("Missing change lines:\n%s", out)
	}
	if !strings.Contains(out, "@@ -1,1 +1,1 @@") {
		t.Errorf("Missing hunk header:\n%s", out)
	}
}

func TestLineTypeStrings(t *testing.T) {
	if LineAdded.String() != "added" || LineAdded.Prefix() != "+" {
		t.Error("added type misreported")
	}
	if LineRemoved.String() != "removed" || LineRemoved.Prefix() != "-" {
		t.Error("removed type misreported")
	}
	if LineContext.String() != "context" || LineContext.Prefix() != " " {
		t.Error("context type misreported")
	}
}
