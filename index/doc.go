// Package index keeps one open language index handle per language.
//
// The Registry opens indexes lazily through a storage.IndexProvider, so the
// same code serves the on-disk and in-memory badger variants. Concurrent
// first opens of a language are collapsed into one; opens of different
// languages never wait on each other.
package index
