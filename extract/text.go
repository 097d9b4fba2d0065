package extract

import (
	"context"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"github.com/famhp/olrs/core"
)

// ErrNotUTF8 is reported for pages that are not valid UTF-8.
var ErrNotUTF8 = errors.New("text is not valid UTF-8")

// TextExtractor reads UTF-8 text files whose pages are separated by form feeds.
type TextExtractor struct{}

var _ Extractor = TextExtractor{}

// Open implements Extractor.
func (TextExtractor) Open(ctx context.Context, path string) (Document, error) {
	pages, err := readPages(ctx, path)
	if err != nil {
		return nil, err
	}
	return &textDocument{path: path, pages: pages}, nil
}

// readPages loads path and splits it at form feeds. A trailing form feed does
// not start an extra page.
func readPages(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, &core.ExtractionError{Path: path, Err: err}
	}
	text := strings.TrimSuffix(string(data), PageSeparator)
	if text == "" {
		return nil, nil
	}
	return strings.Split(text, PageSeparator), nil
}

type textDocument struct {
	path  string
	pages []string
}

func (d *textDocument) PageCount() int { return len(d.pages) }

func (d *textDocument) Pages(ctx context.Context) iter.Seq2[Page, error] {
	return func(yield func(Page, error) bool) {
		for i, text := range d.pages {
			if ctx.Err() != nil {
				yield(Page{}, ctx.Err())
				return
			}
			number := i + 1
			if !utf8.ValidString(text) {
				if !yield(Page{Number: number}, &core.ExtractionError{Path: d.path, Page: number, Err: ErrNotUTF8}) {
					return
				}
				continue
			}
			if !yield(Page{Number: number, Text: text}, nil) {
				return
			}
		}
	}
}

func (d *textDocument) Close() error { return nil }
