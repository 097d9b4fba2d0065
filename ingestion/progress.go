package ingestion

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker renders the progress events of one batch as a single
// updating line. Page totals grow as each document reports its page count.
type ProgressTracker struct {
	mu      sync.Mutex
	out     io.Writer
	every   int
	docs    map[string]int // path -> page count
	pages   int
	total   int
	printed int
	began   time.Time
	running bool
}

// NewProgressTracker returns a tracker that writes to out (usually stderr)
// each time interval more pages are committed.
func NewProgressTracker(out io.Writer, interval int) *ProgressTracker {
	return &ProgressTracker{
		out:   out,
		every: max(interval, 1),
		docs:  make(map[string]int),
	}
}

// Start resets the counters and the clock.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	clear(p.docs)
	p.pages, p.total, p.printed = 0, 0, 0
	p.began = time.Now()
	p.running = true
}

// Observe records one committed page. It matches the signature of
// WithProgressFunc callbacks.
func (p *ProgressTracker) Observe(ev Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	if _, ok := p.docs[ev.Path]; !ok {
		p.docs[ev.Path] = ev.TotalPages
		p.total += ev.TotalPages
	}
	p.pages = min(p.pages+1, p.total)
	if p.pages-p.printed >= p.every {
		p.print()
		p.printed = p.pages
	}
}

// Finish prints the last line with the real count, so an interrupted batch
// shows how far it got, and ends it with a newline.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.print()
	fmt.Fprintln(p.out)
}

// Elapsed returns the time since Start, or zero before it.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return 0
	}
	return time.Since(p.began)
}

// print writes the current line. p.mu must be held.
func (p *ProgressTracker) print() {
	var pct, rate float64
	if p.total > 0 {
		pct = 100 * float64(p.pages) / float64(p.total)
	}
	if secs := time.Since(p.began).Seconds(); secs > 0 {
		rate = float64(p.pages) / secs
	}
	fmt.Fprintf(p.out, "\rProgress: %d/%d (%.1f%%) in %d documents - %.1f pages/s",
		p.pages, p.total, pct, len(p.docs), rate)
}
