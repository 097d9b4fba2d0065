// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package suggest

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/cockroachdb/errors"
	"github.com/famhp/olrs/analysis"
	"github.com/famhp/olrs/core"
	"github.com/famhp/olrs/metrics"
	"github.com/famhp/olrs/storage"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultLanguage is the analyzer language of BuildTermsFromText.
	DefaultLanguage = "en"

	// minTermLength is the shortest term, in runes, kept by BuildTermsFromText.
	minTermLength = 2

	// combinedMaxDist is the edit distance used by CombinedSuggest.
	combinedMaxDist = 1
)

// SynonymSource supplies synonyms for combined suggestions.
type SynonymSource interface {
	Get(word string) []string
}

// Suggestion is one suggested term.
type Suggestion struct {
	Term     string
	Weight   int
	Distance int // Edit distance from the typed word, zero for prefix matches
}

// Engine maintains the per-language suggestion term indexes.
type Engine struct {
	provider        storage.TermProvider
	synonyms        SynonymSource
	metrics         *metrics.Metrics
	defaultLanguage string
	logger          *slog.Logger

	group singleflight.Group

	mu     sync.RWMutex
	stores map[string]storage.TermStore
	locks  map[string]*sync.Mutex
	closed bool
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// WithSynonyms sets the synonym source consulted by CombinedSuggest.
func WithSynonyms(src SynonymSource) Option {
	return func(e *Engine) error {
		e.synonyms = src
		return nil
	}
}

// WithMetrics records suggestion requests on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) error {
		e.metrics = m
		return nil
	}
}

// WithDefaultLanguage sets the analyzer language of BuildTermsFromText.
// Default is DefaultLanguage.
func WithDefaultLanguage(language string) Option {
	return func(e *Engine) error {
		language = core.NormalizeLanguage(language)
		if err := core.ValidateLanguage(language); err != nil {
			return err
		}
		e.defaultLanguage = language
		return nil
	}
}

// NewEngine creates an engine opening term stores through provider.
func NewEngine(provider storage.TermProvider, opts ...Option) (*Engine, error) {
	if provider == nil {
		return nil, ErrProviderRequired
	}

	e := &Engine{
		provider:        provider,
		defaultLanguage: DefaultLanguage,
		logger:          slog.Default(),
		stores:          make(map[string]storage.TermStore),
		locks:           make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// languageLock returns the mutex serializing open and clear of language.
func (e *Engine) languageLock(language string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[language]
	if !ok {
		l = &sync.Mutex{}
		e.locks[language] = l
	}
	return l
}

func (e *Engine) cached(language string) (storage.TermStore, bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, false, ErrEngineClosed
	}
	store, ok := e.stores[language]
	return store, ok, nil
}

// store returns the term store of language. Unless create is set, a language
// without persisted terms yields ok == false.
func (e *Engine) store(language string, create bool) (storage.TermStore, bool, error) {
	if store, ok, err := e.cached(language); err != nil || ok {
		return store, ok, err
	}
	if !create && !e.provider.Exists(language) {
		return nil, false, nil
	}

	v, err, _ := e.group.Do(language, func() (any, error) {
		lock := e.languageLock(language)
		lock.Lock()
		defer lock.Unlock()

		if store, ok, err := e.cached(language); err != nil || ok {
			return store, err
		}
		store, err := e.provider.Open(language)
		if err != nil {
			e.logger.Error("error opening suggest index", "language", language, "err", err)
			if !errors.Is(err, core.ErrStorage) {
				err = core.StorageError(err, "open %s suggest index", language)
			}
			return nil, err
		}

		e.mu.Lock()
		defer e.mu.Unlock()
		if e.closed {
			return nil, errors.CombineErrors(ErrEngineClosed, store.Close())
		}
		e.stores[language] = store
		return store, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(storage.TermStore), true, nil
}

// normalizeTerms trims, lowercases and deduplicates terms, dropping empty ones.
func normalizeTerms(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	result := make([]string, 0, len(terms))
	for _, term := range terms {
		t := strings.ToLower(strings.TrimSpace(term))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		result = append(result, t)
	}
	return result
}

// AddTerms stores each distinct non-empty term of language with weight,
// replacing the weight of terms already present.
func (e *Engine) AddTerms(ctx context.Context, language string, terms []string, weight int) error {
	language = core.NormalizeLanguage(language)
	if err := core.ValidateLanguage(language); err != nil {
		return err
	}
	terms = normalizeTerms(terms)
	if len(terms) == 0 {
		return nil
	}

	// A store closed by a concurrent Clear is resolved again once.
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		var store storage.TermStore
		store, _, err = e.store(language, true)
		if err != nil {
			return err
		}
		err = store.Upsert(ctx, terms, weight)
		if !errors.Is(err, storage.ErrStorageClosed) {
			break
		}
	}
	if err != nil {
		e.logger.Error("error adding suggest terms", "language", language, "err", err)
		return err
	}
	return nil
}

// BuildTermsFromText returns the distinct stemmed terms of text for the
// engine's default language.
func (e *Engine) BuildTermsFromText(text string) []string {
	return BuildTermsForLanguage(e.defaultLanguage, text)
}

// BuildTermsForLanguage returns the distinct terms of text produced by the
// stemming analyzer of language, dropping terms shorter than two runes.
func BuildTermsForLanguage(language, text string) []string {
	tokens := analysis.NewStemming(language).Analyze(text)
	var terms []string
	for _, term := range analysis.Terms(tokens) {
		if utf8.RuneCountInString(term) >= minTermLength {
			terms = append(terms, term)
		}
	}
	return terms
}

// PrefixSuggest returns up to limit terms of language starting with prefix,
// heaviest first.
func (e *Engine) PrefixSuggest(ctx context.Context, language, prefix string, limit int) ([]Suggestion, error) {
	e.metrics.Suggest("prefix")
	return e.prefix(ctx, language, prefix, limit)
}

func (e *Engine) prefix(ctx context.Context, language, prefix string, limit int) ([]Suggestion, error) {
	store, ok, err := e.readStore(language, limit)
	if err != nil || !ok {
		return nil, err
	}
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return nil, nil
	}

	matches, err := store.Prefix(ctx, prefix)
	if errors.Is(err, storage.ErrStorageClosed) {
		// Cleared while reading.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	result := make([]Suggestion, len(matches))
	for i, m := range matches {
		result[i] = Suggestion{Term: m.Term, Weight: m.Weight}
	}
	slices.SortFunc(result, func(a, b Suggestion) int {
		return cmp.Or(cmp.Compare(b.Weight, a.Weight), cmp.Compare(a.Term, b.Term))
	})
	return truncate(result, limit), nil
}

// FuzzySuggest returns up to limit terms of language within maxDist edits of
// word, closest first.
func (e *Engine) FuzzySuggest(ctx context.Context, language, word string, maxDist, limit int) ([]Suggestion, error) {
	e.metrics.Suggest("fuzzy")
	return e.fuzzy(ctx, language, word, maxDist, limit)
}

func (e *Engine) fuzzy(ctx context.Context, language, word string, maxDist, limit int) ([]Suggestion, error) {
	if maxDist < 0 {
		return nil, core.InvalidArgumentf("max distance cannot be negative, got %d", maxDist)
	}
	store, ok, err := e.readStore(language, limit)
	if err != nil || !ok {
		return nil, err
	}
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return nil, nil
	}

	wordLen := utf8.RuneCountInString(word)
	var result []Suggestion
	err = store.Each(ctx, func(tw storage.TermWeight) bool {
		if diff := utf8.RuneCountInString(tw.Term) - wordLen; diff > maxDist || -diff > maxDist {
			return true
		}
		if d := levenshtein.ComputeDistance(word, tw.Term); d <= maxDist {
			result = append(result, Suggestion{Term: tw.Term, Weight: tw.Weight, Distance: d})
		}
		return true
	})
	if errors.Is(err, storage.ErrStorageClosed) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	slices.SortFunc(result, func(a, b Suggestion) int {
		return cmp.Or(
			cmp.Compare(a.Distance, b.Distance),
			cmp.Compare(b.Weight, a.Weight),
			cmp.Compare(a.Term, b.Term),
		)
	})
	return truncate(result, limit), nil
}

// CombinedSuggest returns up to limit distinct suggestions for text: prefix
// matches, then fuzzy matches, then synonyms.
func (e *Engine) CombinedSuggest(ctx context.Context, language, text string, limit int) ([]string, error) {
	e.metrics.Suggest("combined")

	text = strings.ToLower(strings.TrimSpace(text))
	if limit <= 0 {
		return nil, core.InvalidArgumentf("limit must be positive, got %d", limit)
	}
	if text == "" {
		return nil, nil
	}

	var result []string
	seen := make(map[string]struct{})
	add := func(term string) bool {
		if _, ok := seen[term]; !ok {
			seen[term] = struct{}{}
			result = append(result, term)
		}
		return len(result) >= limit
	}

	prefix, err := e.prefix(ctx, language, text, limit)
	if err != nil {
		return nil, err
	}
	for _, s := range prefix {
		if add(s.Term) {
			return result, nil
		}
	}

	fuzzy, err := e.fuzzy(ctx, language, text, combinedMaxDist, limit+len(result))
	if err != nil {
		return nil, err
	}
	for _, s := range fuzzy {
		if add(s.Term) {
			return result, nil
		}
	}

	if e.synonyms != nil {
		for _, syn := range e.synonyms.Get(text) {
			if add(syn) {
				return result, nil
			}
		}
	}
	return result, nil
}

func (e *Engine) readStore(language string, limit int) (storage.TermStore, bool, error) {
	if limit <= 0 {
		return nil, false, core.InvalidArgumentf("limit must be positive, got %d", limit)
	}
	language = core.NormalizeLanguage(language)
	if core.ValidateLanguage(language) != nil {
		return nil, false, nil
	}
	return e.store(language, false)
}

func truncate(s []Suggestion, limit int) []Suggestion {
	if len(s) > limit {
		return s[:limit]
	}
	return s
}

// Count returns the number of terms stored for language.
func (e *Engine) Count(ctx context.Context, language string) (int, error) {
	store, ok, err := e.readStore(language, 1)
	if err != nil || !ok {
		return 0, err
	}
	count, err := store.Count(ctx)
	if errors.Is(err, storage.ErrStorageClosed) {
		return 0, nil
	}
	return count, err
}

// Clear removes every term of language, or of every language when language
// is core.AllLanguages.
func (e *Engine) Clear(ctx context.Context, language string) error {
	language = core.NormalizeLanguage(language)
	if err := core.ValidateLanguageSelector(language); err != nil {
		return err
	}
	if language != core.AllLanguages {
		return e.clear(language)
	}

	languages, err := e.provider.Languages()
	if err != nil {
		return err
	}
	e.mu.RLock()
	for lang := range e.stores {
		languages = append(languages, lang)
	}
	e.mu.RUnlock()
	slices.Sort(languages)

	for _, lang := range slices.Compact(languages) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.clear(lang); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) clear(language string) error {
	lock := e.languageLock(language)
	lock.Lock()
	defer lock.Unlock()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}
	store, ok := e.stores[language]
	delete(e.stores, language)
	e.mu.Unlock()

	if ok {
		if err := store.Close(); err != nil {
			e.logger.Error("error closing suggest index", "language", language, "err", err)
			return err
		}
	}
	if err := e.provider.Destroy(language); err != nil {
		e.logger.Error("error removing suggest index", "language", language, "err", err)
		return err
	}
	e.logger.Info("cleared suggest index", "language", language)
	return nil
}

// Close closes every open term store.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	var result error
	for language, store := range e.stores {
		if err := store.Close(); err != nil {
			e.logger.Error("error closing suggest index", "language", language, "err", err)
			result = errors.CombineErrors(result, err)
		}
	}
	clear(e.stores)
	return result
}
