package storage

import (
	"context"

	"github.com/famhp/olrs/core"
	"github.com/famhp/olrs/query"
)

// SearchResult holds the ranked hits of one language index and the indexed
// terms that contributed to them.
type SearchResult struct {
	Hits         []core.Hit
	MatchedTerms []string
}

// LanguageIndex is one physical full-text index for a single language.
// Writes are staged and become visible atomically on Commit; searches observe
// only committed state. Implementations must be thread-safe.
type LanguageIndex interface {
	// Language returns the language code the index was opened for.
	Language() string

	// IndexDocument stages an upsert of entry keyed by its entry ID.
	// Re-indexing an existing entry ID replaces the prior record.
	IndexDocument(ctx context.Context, entry *core.PageEntry) error

	// DeleteDocument stages removal of every record whose entry ID starts with docID#.
	DeleteDocument(ctx context.Context, docID string) error

	// DeleteByPath stages removal of every record stored with path.
	DeleteByPath(ctx context.Context, path string) error

	// Commit applies all staged operations as one atomic, durable unit.
	Commit(ctx context.Context) error

	// Search evaluates q against committed state and returns at most limit hits
	// ordered by descending score.
	Search(ctx context.Context, q query.Query, limit int) (*SearchResult, error)

	// Count returns the number of committed records.
	Count(ctx context.Context) (int, error)

	// Clear removes every record and discards staged operations.
	Clear(ctx context.Context) error

	// Close commits nothing further and releases resources.
	Close() error
}

// IndexProvider opens language indexes of one concrete variant.
// The registry depends only on this interface.
type IndexProvider interface {
	// Open opens or creates the index for language.
	Open(language string) (LanguageIndex, error)

	// Exists reports whether persisted data for language is present.
	Exists(language string) bool

	// Languages lists languages with persisted data.
	Languages() ([]string, error)

	// Destroy removes persisted data for language. The index must be closed.
	Destroy(language string) error
}

// TermWeight is one suggestion term and its weight.
type TermWeight struct {
	Term   string
	Weight int
}

// TermStore is the per-language suggestion term index.
// Implementations must be thread-safe.
type TermStore interface {
	// Upsert stores each term with weight, replacing any previous weight.
	Upsert(ctx context.Context, terms []string, weight int) error

	// Prefix returns every term starting with prefix.
	Prefix(ctx context.Context, prefix string) ([]TermWeight, error)

	// Each calls fn for every stored term in lexical order until fn returns false.
	Each(ctx context.Context, fn func(tw TermWeight) bool) error

	// Count returns the number of stored terms.
	Count(ctx context.Context) (int, error)

	// Clear removes every term.
	Clear(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// TermProvider opens term stores of one concrete variant.
type TermProvider interface {
	Open(language string) (TermStore, error)
	Exists(language string) bool
	Languages() ([]string, error)
	Destroy(language string) error
}
