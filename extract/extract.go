package extract

import (
	"context"
	"iter"
	"path/filepath"
	"strings"
)

// PageSeparator separates pages in text sources.
const PageSeparator = "\f"

// Page is one unit of extracted text.
type Page struct {
	Number  int    // 1-based page number
	Section string // Heading the text sits under, empty when none
	Text    string
}

// Document is an opened source.
type Document interface {
	// PageCount returns the number of physical pages.
	PageCount() int

	// Pages yields each page in order. A per-page failure is yielded as an
	// error and iteration may continue.
	Pages(ctx context.Context) iter.Seq2[Page, error]

	// Close releases resources.
	Close() error
}

// Extractor opens sources for extraction.
type Extractor interface {
	Open(ctx context.Context, path string) (Document, error)
}

// Auto opens .md and .markdown files with Markdown and everything else with
// Text.
type Auto struct {
	Markdown MarkdownExtractor
	Text     TextExtractor
}

var _ Extractor = Auto{}

// Open implements Extractor.
func (a Auto) Open(ctx context.Context, path string) (Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return a.Markdown.Open(ctx, path)
	default:
		return a.Text.Open(ctx, path)
	}
}
