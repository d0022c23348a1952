// Copyright (c) 2025-2026 Inkwell Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/inkwell-notes/inkwell/internal/storage"
)

func testDocument() *storage.Document {
	return &storage.Document{
		ID:           "doc-1",
		Title:        "Trip notes",
		Content:      "<h1>Kyoto</h1><p>Visit the <strong>old town</strong> first.</p>",
		CreatedAt:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		LastModified: time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC),
	}
}

// =============================================================================
// MARKDOWN EXPORT TESTS
// =============================================================================

func TestMarkdownExport(t *testing.T) {
	out, err := NewMarkdownExporter(DefaultOptions()).Export(testDocument())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	md := string(out)

	if !strings.Contains(md, "# Kyoto") {
		t.Errorf("Heading not converted:\n%s", md)
	}
	if !strings.Contains(md, "**old town**") {
		t.Errorf("Bold not converted:\n%s", md)
	}
	if !strings.HasPrefix(md, "---\n") || !strings.Contains(md, "title: Trip notes") {
		t.Errorf("Frontmatter missing:\n%s", md)
	}
	if !strings.Contains(md, "generator: inkwell") {
		t.Error("Frontmatter should name the generator")
	}
}

func TestMarkdownExportWithoutMetadata(t *testing.T) {
	opts := DefaultOptions()
	opts.IncludeMetadata = false

	out, err := NewMarkdownExporter(opts).Export(testDocument())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if strings.Contains(string(out), "---\n") {
		t.Errorf("Metadata disabled but frontmatter present:\n%s", out)
	}
}

func TestMarkdownExportNilDocument(t *testing.T) {
	if _, err := NewMarkdownExporter(nil).Export(nil); err == nil {
		t.Error("Nil document must fail")
	}
}

// =============================================================================
// HTML EXPORT TESTS
// =============================================================================

func TestHTMLExport(t *testing.T) {
	out, err := NewHTMLExporter(DefaultOptions()).Export(testDocument())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	page := string(out)

	if !strings.Contains(page, "<!DOCTYPE html>") {
		t.Error("Output should be a standalone page")
	}
	if !strings.Contains(page, "<title>Trip notes</title>") {
		t.Errorf("Title missing:\n%s", page)
	}
	if !strings.Contains(page, "<h1>Kyoto</h1>") {
		t.Error("Document HTML must be embedded unmodified")
	}
}

func TestHTMLExportEscapesTitle(t *testing.T) {
	doc := testDocument()
	doc.Title = `<script>alert("x")</script>`

	out, err := NewHTMLExporter(DefaultOptions()).Export(doc)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if strings.Contains(string(out), "<script>alert") {
		t.Error("Title must be escaped in the page")
	}
}

func TestHTMLExportDarkTheme(t *testing.T) {
	opts := DefaultOptions()
	opts.Theme = "dark"

	out, err := NewHTMLExporter(opts).Export(testDocument())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if !strings.Contains(string(out), "#1e1e1e") {
		t.Error("Dark theme background not applied")
	}
}

// =============================================================================
// JSON EXPORT TESTS
// =============================================================================

func TestJSONExportRoundTrip(t *testing.T) {
	doc := testDocument()
	out, err := NewJSONExporter(nil).Export(doc)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	var got storage.Document
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("Exported JSON does not parse: %v", err)
	}
	if got.ID != doc.ID || got.Content != doc.Content {
		t.Errorf("Round trip lost data: %+v", got)
	}
}

// =============================================================================
// FORMAT DISPATCH AND FILE OUTPUT TESTS
// =============================================================================

func TestExporterFor(t *testing.T) {
	for _, format := range []string{"markdown", "md", "html", "htm", "json"} {
		if _, err := ExporterFor(format, nil); err != nil {
			t.Errorf("Format %q should resolve: %v", format, err)
		}
	}
	if _, err := ExporterFor("docx", nil); err == nil {
		t.Error("Unknown format must fail")
	}
}

func TestExportToFile(t *testing.T) {
	opts := DefaultOptions()
	opts.OutputDir = t.TempDir()

	path, err := ExportToFile(testDocument(), "markdown", opts)
	if err != nil {
		t.Fatalf("ExportToFile failed: %v", err)
	}
	if filepath.Ext(path) != ".md" {
		t.Errorf("Extension = %q, want .md", filepath.Ext(path))
	}
	if !strings.Contains(filepath.Base(path), "Trip_notes") {
		t.Errorf("Filename should carry the sanitized title: %s", path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Reading output failed: %v", err)
	}
	if !strings.Contains(string(content), "# Kyoto") {
		t.Error("Output file missing converted content")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"a/b\\c:d", "a-b-c-d"},
		{"with space\ttab", "with_space_tab"},
		{"", "note"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
