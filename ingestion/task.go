package ingestion

import (
	"cmp"
	"context"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/famhp/olrs/core"
	"github.com/famhp/olrs/extract"
	"github.com/google/uuid"
)

const defaultProgressBuffer = 64

// Source is one document to extract and index.
type Source struct {
	DocID    string // Defaults to Path
	Path     string
	Title    string // Defaults to the path stem
	Language string
}

// Progress reports the last committed page of one document.
type Progress struct {
	TaskID      string
	Path        string
	CurrentPage int
	TotalPages  int
}

// Failure is a document or page that could not be indexed.
// Page is 0 when the whole document failed.
type Failure struct {
	Path string
	Page int
	Err  error
}

// Report summarizes a finished batch.
type Report struct {
	Pages     int // Pages committed
	Documents int // Documents processed to the end
	Failures  []Failure
}

// ProgressFunc is called for every committed page. It is called from worker
// goroutines and must be safe for concurrent use.
type ProgressFunc func(Progress)

type taskConfig struct {
	onProgress ProgressFunc
	buffer     int
}

// TaskOption configures a batch started with Start.
type TaskOption func(*taskConfig)

// WithProgressFunc delivers every progress event to fn in addition to the
// Progress channel.
func WithProgressFunc(fn ProgressFunc) TaskOption {
	return func(c *taskConfig) {
		c.onProgress = fn
	}
}

// WithProgressBuffer sets the Progress channel capacity. Events that do not
// fit are dropped. Default is 64.
func WithProgressBuffer(n int) TaskOption {
	return func(c *taskConfig) {
		if n >= 0 {
			c.buffer = n
		}
	}
}

// Task is a running batch ingestion.
type Task struct {
	id         string
	ctx        context.Context
	cancel     context.CancelFunc
	progress   chan Progress
	onProgress ProgressFunc
	done       chan struct{}

	mu     sync.Mutex
	report Report
	err    error
}

// ID returns the unique task identifier.
func (t *Task) ID() string { return t.id }

// Progress returns the progress channel. It is closed when the task ends.
func (t *Task) Progress() <-chan Progress { return t.progress }

// Cancel stops the task after the page currently being committed.
func (t *Task) Cancel() { t.cancel() }

// Done is closed when the task has ended.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the task ends and returns its report. The error is
// non-nil only when the task was canceled; per-document failures are listed
// in the report.
func (t *Task) Wait() (*Report, error) {
	<-t.done
	t.mu.Lock()
	defer t.mu.Unlock()
	report := t.report
	report.Failures = slices.Clone(t.report.Failures)
	return &report, t.err
}

func (t *Task) emit(p Progress) {
	select {
	case t.progress <- p:
	default:
	}
	if t.onProgress != nil {
		t.onProgress(p)
	}
}

func (t *Task) fail(path string, page int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.report.Failures = append(t.report.Failures, Failure{Path: path, Page: page, Err: err})
}

func (t *Task) pageDone() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.report.Pages++
}

func (t *Task) documentDone() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.report.Documents++
}

// Start extracts and indexes sources on the worker pool and returns at once.
// Sources are validated up front; an invalid source fails the whole call
// before any work is done.
func (p *Pipeline) Start(ctx context.Context, sources []Source, extractor extract.Extractor, opts ...TaskOption) (*Task, error) {
	if extractor == nil {
		return nil, ErrExtractorRequired
	}
	normalized := make([]Source, len(sources))
	for i, src := range sources {
		s, err := normalizeSource(src)
		if err != nil {
			return nil, errors.Wrapf(err, "source %d", i)
		}
		normalized[i] = s
	}

	p.mu.Lock()
	released := p.released
	p.mu.Unlock()
	if released {
		return nil, ErrPipelineReleased
	}

	cfg := taskConfig{buffer: defaultProgressBuffer}
	for _, opt := range opts {
		opt(&cfg)
	}

	taskCtx, cancel := context.WithCancel(ctx)
	t := &Task{
		id:         uuid.NewString(),
		ctx:        taskCtx,
		cancel:     cancel,
		progress:   make(chan Progress, cfg.buffer),
		onProgress: cfg.onProgress,
		done:       make(chan struct{}),
	}

	p.logger.Info("starting batch ingestion", "task", t.id, "sources", len(normalized))
	go p.run(t, normalized, extractor)
	return t, nil
}

func normalizeSource(src Source) (Source, error) {
	if strings.TrimSpace(src.Path) == "" {
		return src, errors.Mark(core.ErrEmptyPath, core.ErrInvalidArgument)
	}
	if src.DocID == "" {
		src.DocID = src.Path
	}
	if err := core.ValidateDocID(src.DocID); err != nil {
		return src, err
	}
	src.Language = core.NormalizeLanguage(src.Language)
	if err := core.ValidateLanguage(src.Language); err != nil {
		return src, err
	}
	return src, nil
}

func (p *Pipeline) run(t *Task, sources []Source, extractor extract.Extractor) {
	var wg sync.WaitGroup
	for _, src := range sources {
		if t.ctx.Err() != nil {
			break
		}
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			p.ingestDocument(t, src, extractor)
		})
		if err != nil {
			wg.Done()
			p.logger.Error("error submitting document", "task", t.id, "path", src.Path, "err", err)
			t.fail(src.Path, 0, err)
		}
	}
	wg.Wait()

	t.mu.Lock()
	t.err = t.ctx.Err()
	slices.SortStableFunc(t.report.Failures, func(a, b Failure) int {
		return cmp.Or(cmp.Compare(a.Path, b.Path), cmp.Compare(a.Page, b.Page))
	})
	report := t.report
	t.mu.Unlock()

	t.cancel()
	close(t.progress)
	close(t.done)
	p.logger.Info("finished batch ingestion", "task", t.id,
		"pages", report.Pages, "documents", report.Documents, "failures", len(report.Failures))
}

// ingestDocument indexes every page of src. Page extraction failures and
// invalid pages are recorded and skipped; a storage failure ends the document.
func (p *Pipeline) ingestDocument(t *Task, src Source, extractor extract.Extractor) {
	ctx := t.ctx
	if ctx.Err() != nil {
		return
	}

	var doc extract.Document
	err := RetryWithBackoff(ctx, func() error {
		d, err := extractor.Open(ctx, src.Path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) || errors.Is(err, context.Canceled) {
				return Permanent(err)
			}
			return err
		}
		doc = d
		return nil
	}, p.maxRetries, p.retryDelay)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn("error opening document", "task", t.id, "path", src.Path, "err", err)
			t.fail(src.Path, 0, err)
		}
		return
	}
	defer func() {
		if err := doc.Close(); err != nil {
			p.logger.Warn("error closing document", "path", src.Path, "err", err)
		}
	}()

	total := doc.PageCount()
	for page, err := range doc.Pages(ctx) {
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			number := page.Number
			var extractErr *core.ExtractionError
			if errors.As(err, &extractErr) {
				number = extractErr.Page
			}
			p.logger.Warn("error extracting page", "task", t.id, "path", src.Path, "page", number, "err", err)
			t.fail(src.Path, number, err)
			continue
		}

		entry := &core.PageEntry{
			DocID:    src.DocID,
			Path:     src.Path,
			Title:    src.Title,
			Language: src.Language,
			Page:     page.Number,
			Section:  page.Section,
			Text:     page.Text,
		}
		if err := p.AddPage(ctx, entry); err != nil {
			if ctx.Err() != nil {
				return
			}
			t.fail(src.Path, page.Number, err)
			if errors.Is(err, core.ErrInvalidArgument) {
				continue
			}
			return
		}
		t.pageDone()
		t.emit(Progress{TaskID: t.id, Path: src.Path, CurrentPage: page.Number, TotalPages: total})

		if ctx.Err() != nil {
			return
		}
	}
	t.documentDone()
}
