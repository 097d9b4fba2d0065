package mock

import (
	"context"
	"iter"
	"os"
	"sync"

	"github.com/famhp/olrs/core"
	"github.com/famhp/olrs/extract"
)

// Extractor is a test double for extract.Extractor. It is safe for
// concurrent use.
type Extractor struct {
	// OpenFunc is called by Open if set.
	OpenFunc func(ctx context.Context, path string) (extract.Document, error)

	mu        sync.Mutex
	docs      map[string][]extract.Page
	openErrs  map[string][]error
	pageErrs  map[string]map[int]error
	opens     map[string]int
	closes    int
	callCount int
}

var _ extract.Extractor = (*Extractor)(nil)

// NewExtractor creates an extractor with no documents.
func NewExtractor() *Extractor {
	return &Extractor{
		docs:     make(map[string][]extract.Page),
		openErrs: make(map[string][]error),
		pageErrs: make(map[string]map[int]error),
		opens:    make(map[string]int),
	}
}

// AddDocument registers path with one page per text.
func (e *Extractor) AddDocument(path string, texts ...string) {
	pages := make([]extract.Page, len(texts))
	for i, text := range texts {
		pages[i] = extract.Page{Number: i + 1, Text: text}
	}
	e.AddPages(path, pages...)
}

// AddPages registers path with explicit pages.
func (e *Extractor) AddPages(path string, pages ...extract.Page) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.docs[path] = pages
}

// FailOpen queues errors returned by successive Open calls for path. Once the
// queue is drained Open succeeds.
func (e *Extractor) FailOpen(path string, errs ...error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.openErrs[path] = append(e.openErrs[path], errs...)
}

// FailPage makes page number of path yield err.
func (e *Extractor) FailPage(path string, number int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pageErrs[path] == nil {
		e.pageErrs[path] = make(map[int]error)
	}
	e.pageErrs[path][number] = err
}

// Open implements extract.Extractor.
func (e *Extractor) Open(ctx context.Context, path string) (extract.Document, error) {
	e.mu.Lock()
	e.callCount++
	e.opens[path]++
	fn := e.OpenFunc
	e.mu.Unlock()

	if fn != nil {
		return fn(ctx, path)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if queued := e.openErrs[path]; len(queued) > 0 {
		e.openErrs[path] = queued[1:]
		return nil, &core.ExtractionError{Path: path, Err: queued[0]}
	}
	pages, ok := e.docs[path]
	if !ok {
		return nil, &core.ExtractionError{Path: path, Err: os.ErrNotExist}
	}
	failures := make(map[int]error, len(e.pageErrs[path]))
	for n, err := range e.pageErrs[path] {
		failures[n] = err
	}
	return &Document{path: path, pages: pages, failures: failures, owner: e}, nil
}

// Opens returns how often Open was called for path.
func (e *Extractor) Opens(path string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opens[path]
}

// Closes returns how many documents were closed.
func (e *Extractor) Closes() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closes
}

// CallCount returns the number of times Open was called.
func (e *Extractor) CallCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.callCount
}

// Reset clears call counts and the Open override.
func (e *Extractor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.callCount = 0
	e.closes = 0
	e.opens = make(map[string]int)
	e.OpenFunc = nil
}

// Document is the extract.Document returned by Extractor.
type Document struct {
	path     string
	pages    []extract.Page
	failures map[int]error
	owner    *Extractor
}

var _ extract.Document = (*Document)(nil)

func (d *Document) PageCount() int { return len(d.pages) }

func (d *Document) Pages(ctx context.Context) iter.Seq2[extract.Page, error] {
	return func(yield func(extract.Page, error) bool) {
		for _, page := range d.pages {
			if ctx.Err() != nil {
				yield(extract.Page{}, ctx.Err())
				return
			}
			if err, ok := d.failures[page.Number]; ok {
				if !yield(extract.Page{Number: page.Number}, &core.ExtractionError{Path: d.path, Page: page.Number, Err: err}) {
					return
				}
				continue
			}
			if !yield(page, nil) {
				return
			}
		}
	}
}

func (d *Document) Close() error {
	d.owner.mu.Lock()
	defer d.owner.mu.Unlock()
	d.owner.closes++
	return nil
}
