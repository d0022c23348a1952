// Copyright (c) 2025-2026 Inkwell Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"strings"

	"github.com/inkwell-notes/inkwell/internal/storage"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter wraps document HTML in a standalone themed page.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts}
}

// Export converts a document to a standalone HTML page. The body is the
// stored editor HTML, inserted as-is; only the title and metadata are
// escaped.
func (e *HTMLExporter) Export(doc *storage.Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("document is nil")
	}

	title := html.EscapeString(doc.Title)
	if title == "" {
		title = "Untitled note"
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n<head>\n")
	sb.WriteString("<meta charset=\"utf-8\">\n")
	sb.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
	sb.WriteString(fmt.Sprintf("<title>%s</title>\n", title))
	sb.WriteString("<style>\n")
	sb.WriteString(e.themeCSS())
	sb.WriteString("</style>\n</head>\n<body>\n<main>\n")

	if e.options.IncludeMetadata {
		sb.WriteString("<header>\n")
		sb.WriteString(fmt.Sprintf("<h1 class=\"note-title\">%s</h1>\n", title))
		sb.WriteString(fmt.Sprintf("<p class=\"note-meta\">Last modified %s</p>\n",
			html.EscapeString(formatTimestamp(doc.LastModified))))
		sb.WriteString("</header>\n")
	}

	sb.WriteString("<article class=\"note-content\">\n")
	sb.WriteString(doc.Content)
	sb.WriteString("\n</article>\n</main>\n</body>\n</html>\n")

	return []byte(sb.String()), nil
}

// themeCSS returns the stylesheet for the configured theme.
func (e *HTMLExporter) themeCSS() string {
	fg, bg, accent := "#1a1a1a", "#ffffff", "#e5e5e5"
	if e.options.Theme == "dark" {
		fg, bg, accent = "#e0e0e0", "#1e1e1e", "#3a3a3a"
	}
	return fmt.Sprintf(`body {
  color: %s;
  background: %s;
  font-family: -apple-system, "Segoe UI", Roboto, sans-serif;
  line-height: 1.6;
  margin: 0;
}
main {
  max-width: 760px;
  margin: 0 auto;
  padding: 2rem 1rem;
}
header {
  border-bottom: 1px solid %s;
  margin-bottom: 1.5rem;
}
.note-meta {
  font-size: 0.85rem;
  opacity: 0.7;
}
.note-content img {
  max-width: 100%%;
}
`, fg, bg, accent)
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}
