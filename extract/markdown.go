package extract

import (
	"context"
	"iter"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/famhp/olrs/core"
	"github.com/tmc/langchaingo/textsplitter"
)

// DefaultChunkSize bounds the text the markdown splitter keeps together
// before splitting a section further. Oversized sections still share their
// heading.
const DefaultChunkSize = 4000

// MarkdownExtractor reads markdown files whose pages are separated by form
// feeds and splits each page at its headings.
type MarkdownExtractor struct {
	ChunkSize int
}

var _ Extractor = MarkdownExtractor{}

// Open implements Extractor.
func (m MarkdownExtractor) Open(ctx context.Context, path string) (Document, error) {
	pages, err := readPages(ctx, path)
	if err != nil {
		return nil, err
	}
	size := m.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	splitter := textsplitter.NewMarkdownTextSplitter(
		textsplitter.WithChunkSize(size),
		textsplitter.WithChunkOverlap(0),
		textsplitter.WithHeadingHierarchy(false),
		textsplitter.WithCodeBlocks(true),
	)
	return &markdownDocument{path: path, pages: pages, splitter: splitter}, nil
}

type markdownDocument struct {
	path     string
	pages    []string
	splitter textsplitter.TextSplitter
}

func (d *markdownDocument) PageCount() int { return len(d.pages) }

func (d *markdownDocument) Pages(ctx context.Context) iter.Seq2[Page, error] {
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

			sections, err := d.sections(text)
			if err != nil {
				if !yield(Page{Number: number}, &core.ExtractionError{Path: d.path, Page: number, Err: err}) {
					return
				}
				continue
			}
			for _, s := range sections {
				if !yield(Page{Number: number, Section: s.heading, Text: s.text}, nil) {
					return
				}
			}
		}
	}
}

func (d *markdownDocument) Close() error { return nil }

type section struct {
	heading string
	text    string
}

// sections splits a page into one entry per heading, in document order.
// Chunks sharing a heading are joined. A heading repeated on the same page is
// suffixed with #2, #3 and so on so every section stays distinct.
func (d *markdownDocument) sections(text string) ([]section, error) {
	chunks, err := d.splitter.SplitText(text)
	if err != nil {
		return nil, err
	}

	var result []section
	seen := make(map[string]int)
	current := -1
	lastHeading := ""
	for _, chunk := range chunks {
		heading, body := splitHeading(chunk)
		if current < 0 || heading != lastHeading {
			name := heading
			seen[heading]++
			if n := seen[heading]; n > 1 {
				name = heading + "#" + strconv.Itoa(n)
			}
			result = append(result, section{heading: name})
			current = len(result) - 1
			lastHeading = heading
		}
		if body != "" {
			if result[current].text != "" {
				result[current].text += "\n"
			}
			result[current].text += body
		}
	}
	return result, nil
}

// splitHeading separates a leading markdown heading line from the chunk body.
func splitHeading(chunk string) (heading, body string) {
	chunk = strings.TrimSpace(chunk)
	if !strings.HasPrefix(chunk, "#") {
		return "", chunk
	}
	line, rest, _ := strings.Cut(chunk, "\n")
	heading = strings.TrimSpace(strings.TrimLeft(line, "#"))
	return heading, strings.TrimSpace(rest)
}
