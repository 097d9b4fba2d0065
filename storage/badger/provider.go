package badger

import (
	"os"
	"path/filepath"
	"slices"

	"github.com/famhp/olrs/core"
	"github.com/famhp/olrs/storage"
)

const (
	// SuggestDir is the sub-directory of a language directory holding its term index.
	SuggestDir = "suggest"

	// manifestFile marks a directory holding a badger database.
	manifestFile = "MANIFEST"
)

// DiskProvider opens persistent language indexes under <root>/<language>/.
type DiskProvider struct {
	root string
	opts []Option
}

var _ storage.IndexProvider = (*DiskProvider)(nil)

// NewDiskProvider returns a provider rooted at root.
func NewDiskProvider(root string, opts ...Option) *DiskProvider {
	return &DiskProvider{root: root, opts: opts}
}

func (p *DiskProvider) dir(language string) string {
	return filepath.Join(p.root, language)
}

// Open implements storage.IndexProvider.
func (p *DiskProvider) Open(language string) (storage.LanguageIndex, error) {
	backend, err := OpenBackend(p.dir(language), false, p.opts...)
	if err != nil {
		return nil, core.StorageError(err, "open %s index", language)
	}
	index, err := NewIndex(backend, language, p.opts...)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return index, nil
}

// Exists implements storage.IndexProvider.
func (p *DiskProvider) Exists(language string) bool {
	return hasManifest(p.dir(language))
}

// Languages implements storage.IndexProvider.
func (p *DiskProvider) Languages() ([]string, error) {
	entries, err := os.ReadDir(p.root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, core.StorageError(err, "list languages in %s", p.root)
	}

	var languages []string
	for _, entry := range entries {
		if !entry.IsDir() || core.ValidateLanguage(entry.Name()) != nil {
			continue
		}
		if hasManifest(p.dir(entry.Name())) {
			languages = append(languages, entry.Name())
		}
	}
	slices.Sort(languages)
	return languages, nil
}

// Destroy implements storage.IndexProvider.
// The suggest sub-directory is left in place; its lifetime is managed by the
// term provider.
func (p *DiskProvider) Destroy(language string) error {
	dir := p.dir(language)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return core.StorageError(err, "read %s", dir)
	}
	for _, entry := range entries {
		if entry.Name() == SuggestDir {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return core.StorageError(err, "remove %s index data", language)
		}
	}
	return nil
}

// MemoryProvider opens in-memory language indexes. Data lives only as long
// as the index handle.
type MemoryProvider struct {
	opts []Option
}

var _ storage.IndexProvider = (*MemoryProvider)(nil)

// NewMemoryProvider returns an in-memory provider.
func NewMemoryProvider(opts ...Option) *MemoryProvider {
	return &MemoryProvider{opts: opts}
}

// Open implements storage.IndexProvider.
func (p *MemoryProvider) Open(language string) (storage.LanguageIndex, error) {
	backend, err := OpenBackend("", true, p.opts...)
	if err != nil {
		return nil, core.StorageError(err, "open in-memory %s index", language)
	}
	return NewIndex(backend, language, p.opts...)
}

// Exists implements storage.IndexProvider. Nothing outlives its handle.
func (p *MemoryProvider) Exists(string) bool { return false }

// Languages implements storage.IndexProvider.
func (p *MemoryProvider) Languages() ([]string, error) { return nil, nil }

// Destroy implements storage.IndexProvider.
func (p *MemoryProvider) Destroy(string) error { return nil }

// DiskTermProvider opens persistent term stores under <root>/<language>/suggest/.
type DiskTermProvider struct {
	root string
	opts []Option
}

var _ storage.TermProvider = (*DiskTermProvider)(nil)

// NewDiskTermProvider returns a term provider rooted at root.
func NewDiskTermProvider(root string, opts ...Option) *DiskTermProvider {
	return &DiskTermProvider{root: root, opts: opts}
}

func (p *DiskTermProvider) dir(language string) string {
	return filepath.Join(p.root, language, SuggestDir)
}

// Open implements storage.TermProvider.
func (p *DiskTermProvider) Open(language string) (storage.TermStore, error) {
	backend, err := OpenBackend(p.dir(language), false, p.opts...)
	if err != nil {
		return nil, core.StorageError(err, "open %s suggest index", language)
	}
	store, err := NewTermStore(backend, language, p.opts...)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return store, nil
}

// Exists implements storage.TermProvider.
func (p *DiskTermProvider) Exists(language string) bool {
	return hasManifest(p.dir(language))
}

// Languages implements storage.TermProvider.
func (p *DiskTermProvider) Languages() ([]string, error) {
	entries, err := os.ReadDir(p.root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, core.StorageError(err, "list suggest languages in %s", p.root)
	}

	var languages []string
	for _, entry := range entries {
		if entry.IsDir() && core.ValidateLanguage(entry.Name()) == nil && p.Exists(entry.Name()) {
			languages = append(languages, entry.Name())
		}
	}
	slices.Sort(languages)
	return languages, nil
}

// Destroy implements storage.TermProvider.
func (p *DiskTermProvider) Destroy(language string) error {
	if err := os.RemoveAll(p.dir(language)); err != nil {
		return core.StorageError(err, "remove %s suggest index", language)
	}
	return nil
}

// MemoryTermProvider opens in-memory term stores.
type MemoryTermProvider struct {
	opts []Option
}

var _ storage.TermProvider = (*MemoryTermProvider)(nil)

// NewMemoryTermProvider returns an in-memory term provider.
func NewMemoryTermProvider(opts ...Option) *MemoryTermProvider {
	return &MemoryTermProvider{opts: opts}
}

// Open implements storage.TermProvider.
func (p *MemoryTermProvider) Open(language string) (storage.TermStore, error) {
	backend, err := OpenBackend("", true, p.opts...)
	if err != nil {
		return nil, core.StorageError(err, "open in-memory %s suggest index", language)
	}
	return NewTermStore(backend, language, p.opts...)
}

// Exists implements storage.TermProvider.
func (p *MemoryTermProvider) Exists(string) bool { return false }

// Languages implements storage.TermProvider.
func (p *MemoryTermProvider) Languages() ([]string, error) { return nil, nil }

// Destroy implements storage.TermProvider.
func (p *MemoryTermProvider) Destroy(string) error { return nil }

func hasManifest(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, manifestFile))
	return err == nil && !info.IsDir()
}
