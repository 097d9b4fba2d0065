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

package synonym

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/famhp/olrs/core"
)

// Store is a thread-safe word to synonyms mapping.
type Store struct {
	mu     sync.RWMutex
	groups map[string][]string

	logger   *slog.Logger
	debounce time.Duration
}

// Option configures a Store.
type Option func(*Store) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithDebounce sets how long Watch waits for edits to settle before reloading.
// Default is 200ms.
func WithDebounce(d time.Duration) Option {
	return func(s *Store) error {
		if d < 0 {
			return ErrInvalidDebounce
		}
		s.debounce = d
		return nil
	}
}

// NewStore creates an empty store.
func NewStore(opts ...Option) (*Store, error) {
	s := &Store{
		groups:   make(map[string][]string),
		logger:   slog.Default(),
		debounce: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Open creates a store and loads it from path.
func Open(path string, opts ...Option) (*Store, error) {
	s, err := NewStore(opts...)
	if err != nil {
		return nil, err
	}
	if err := s.Load(path); err != nil {
		return nil, err
	}
	return s, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func normalizeArg(name, s string) (string, error) {
	n := normalize(s)
	if n == "" {
		return "", core.InvalidArgumentf("%s cannot be empty", name)
	}
	return n, nil
}

// Get returns a copy of the synonyms of word, or nil when it has none.
func (s *Store) Get(word string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	group, ok := s.groups[normalize(word)]
	if !ok || len(group) == 0 {
		return nil
	}
	return slices.Clone(group)
}

// Words returns every word with a group, sorted.
func (s *Store) Words() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.groups))
}

// Len returns the number of words with a group.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.groups)
}

// AddWord creates an empty group for word. Existing groups are kept.
func (s *Store) AddWord(word string) error {
	w, err := normalizeArg("word", word)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[w]; !ok {
		s.groups[w] = []string{}
	}
	return nil
}

// RemoveWord deletes word and its group, reporting whether it existed.
func (s *Store) RemoveWord(word string) bool {
	w := normalize(word)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.groups[w]
	delete(s.groups, w)
	return ok
}

// AddSynonym appends synonym to the group of word, creating the group if
// needed. Adding a word as its own synonym, or a synonym already present, does
// nothing.
func (s *Store) AddSynonym(word, synonym string) error {
	w, err := normalizeArg("word", word)
	if err != nil {
		return err
	}
	syn, err := normalizeArg("synonym", synonym)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	group, ok := s.groups[w]
	if !ok {
		group = []string{}
	}
	if syn != w && !slices.Contains(group, syn) {
		group = append(group, syn)
	}
	s.groups[w] = group
	return nil
}

// RemoveSynonym removes synonym from the group of word, reporting whether it
// was present. The group itself is kept.
func (s *Store) RemoveSynonym(word, synonym string) bool {
	w, syn := normalize(word), normalize(synonym)
	s.mu.Lock()
	defer s.mu.Unlock()
	group, ok := s.groups[w]
	if !ok {
		return false
	}
	i := slices.Index(group, syn)
	if i < 0 {
		return false
	}
	s.groups[w] = slices.Delete(group, i, i+1)
	return true
}

// Load replaces the contents of the store with the mapping in path.
// A missing file leaves the store empty.
func (s *Store) Load(path string) error {
	groups, err := readFile(path)
	if err != nil {
		s.logger.Error("error loading synonyms", "path", path, "err", err)
		return err
	}

	s.mu.Lock()
	s.groups = groups
	s.mu.Unlock()

	s.logger.Debug("loaded synonyms", "path", path, "words", len(groups))
	return nil
}

func readFile(path string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string][]string), nil
	}
	if err != nil {
		return nil, core.StorageError(err, "read synonyms %s", path)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return make(map[string][]string), nil
	}

	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "parse synonyms %s", path), ErrMalformedFile)
	}
	return normalizeGroups(raw), nil
}

// normalizeGroups lowercases and trims every entry, merging words that
// collapse together and dropping empty strings, duplicates and self-references.
func normalizeGroups(raw map[string][]string) map[string][]string {
	groups := make(map[string][]string, len(raw))
	for _, word := range slices.Sorted(maps.Keys(raw)) {
		w := normalize(word)
		if w == "" {
			continue
		}
		group, ok := groups[w]
		if !ok {
			group = []string{}
		}
		for _, synonym := range raw[word] {
			syn := normalize(synonym)
			if syn == "" || syn == w || slices.Contains(group, syn) {
				continue
			}
			group = append(group, syn)
		}
		groups[w] = group
	}
	return groups
}

// Save writes the mapping to path as indented JSON with sorted keys. The file
// is replaced atomically.
func (s *Store) Save(path string) error {
	s.mu.RLock()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	err := enc.Encode(s.groups)
	words := len(s.groups)
	s.mu.RUnlock()
	if err != nil {
		return errors.Wrap(err, "encode synonyms")
	}

	if err := writeAtomic(path, buf.Bytes()); err != nil {
		s.logger.Error("error saving synonyms", "path", path, "err", err)
		return core.StorageError(err, "save synonyms %s", path)
	}
	s.logger.Debug("saved synonyms", "path", path, "words", words)
	return nil
}

// writeAtomic writes data to a temporary file next to dest and renames it
// into place.
func writeAtomic(dest string, data []byte) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".synonyms-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
