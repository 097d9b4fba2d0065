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

package index

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/famhp/olrs/core"
	"github.com/famhp/olrs/storage"
	"golang.org/x/sync/singleflight"
)

// Registry caches open language indexes.
type Registry struct {
	provider storage.IndexProvider
	logger   *slog.Logger

	group singleflight.Group

	mu      sync.RWMutex
	indexes map[string]storage.LanguageIndex
	locks   map[string]*sync.Mutex
	closed  bool
}

// Option configures a Registry.
type Option func(*Registry) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewRegistry creates a registry opening indexes through provider.
func NewRegistry(provider storage.IndexProvider, opts ...Option) (*Registry, error) {
	if provider == nil {
		return nil, ErrProviderRequired
	}

	r := &Registry{
		provider: provider,
		logger:   slog.Default(),
		indexes:  make(map[string]storage.LanguageIndex),
		locks:    make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// languageLock returns the mutex serializing open and clear of language.
func (r *Registry) languageLock(language string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[language]
	if !ok {
		l = &sync.Mutex{}
		r.locks[language] = l
	}
	return l
}

func (r *Registry) cached(language string) (storage.LanguageIndex, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, false, ErrRegistryClosed
	}
	idx, ok := r.indexes[language]
	return idx, ok, nil
}

// GetOrCreate returns the index for language, opening or creating it on
// first use. A failed open caches nothing, so a later call retries.
func (r *Registry) GetOrCreate(ctx context.Context, language string) (storage.LanguageIndex, error) {
	language = core.NormalizeLanguage(language)
	if err := core.ValidateLanguage(language); err != nil {
		return nil, err
	}
	if idx, ok, err := r.cached(language); err != nil || ok {
		return idx, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v, err, _ := r.group.Do(language, func() (any, error) {
		lock := r.languageLock(language)
		lock.Lock()
		defer lock.Unlock()

		if idx, ok, err := r.cached(language); err != nil || ok {
			return idx, err
		}

		idx, err := r.provider.Open(language)
		if err != nil {
			r.logger.Error("error opening language index", "language", language, "err", err)
			if !errors.Is(err, core.ErrStorage) {
				err = core.StorageError(err, "open %s index", language)
			}
			return nil, err
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		if r.closed {
			return nil, errors.CombineErrors(ErrRegistryClosed, idx.Close())
		}
		r.indexes[language] = idx
		r.logger.Debug("opened language index", "language", language)
		return idx, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(storage.LanguageIndex), nil
}

// Lookup returns the index for language only when it is already open or
// has persisted data. It never creates an index.
func (r *Registry) Lookup(ctx context.Context, language string) (storage.LanguageIndex, bool, error) {
	language = core.NormalizeLanguage(language)
	if core.ValidateLanguage(language) != nil {
		return nil, false, nil
	}
	idx, ok, err := r.cached(language)
	if err != nil || ok {
		return idx, ok, err
	}
	if !r.provider.Exists(language) {
		return nil, false, nil
	}
	idx, err = r.GetOrCreate(ctx, language)
	if err != nil {
		return nil, false, err
	}
	return idx, true, nil
}

// Languages returns every present language in sorted order.
func (r *Registry) Languages() ([]string, error) {
	persisted, err := r.provider.Languages()
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	languages := slices.Clone(persisted)
	for language := range r.indexes {
		languages = append(languages, language)
	}
	r.mu.RUnlock()

	slices.Sort(languages)
	return slices.Compact(languages), nil
}

// Clear removes every record of language, or of every present language when
// language is core.AllLanguages. Suggestion data is not touched.
func (r *Registry) Clear(ctx context.Context, language string) error {
	language = core.NormalizeLanguage(language)
	if err := core.ValidateLanguageSelector(language); err != nil {
		return err
	}

	if language != core.AllLanguages {
		return r.clear(language)
	}

	languages, err := r.Languages()
	if err != nil {
		return err
	}
	for _, lang := range languages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.clear(lang); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) clear(language string) error {
	lock := r.languageLock(language)
	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRegistryClosed
	}
	idx, ok := r.indexes[language]
	delete(r.indexes, language)
	r.mu.Unlock()

	if ok {
		if err := idx.Close(); err != nil {
			r.logger.Error("error closing language index", "language", language, "err", err)
			return err
		}
	}
	if err := r.provider.Destroy(language); err != nil {
		r.logger.Error("error removing language index", "language", language, "err", err)
		return err
	}
	r.logger.Info("cleared language index", "language", language)
	return nil
}

// Close closes every open index. The registry cannot be used afterwards.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	var result error
	for language, idx := range r.indexes {
		if err := idx.Close(); err != nil {
			r.logger.Error("error closing language index", "language", language, "err", err)
			result = errors.CombineErrors(result, err)
		}
	}
	clear(r.indexes)
	return result
}
