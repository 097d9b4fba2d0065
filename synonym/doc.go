// Package synonym keeps a persisted mapping from a word to its ordered,
// duplicate-free synonyms.
//
// Words and synonyms are stored trimmed and lowercased. The mapping is saved
// as a flat JSON object of word to array of synonyms, written atomically so
// a concurrent reader never sees a partial file. Watch reloads the store when
// the file is edited by hand.
package synonym
