// Package analysis provides the tokenization strategies used to populate index fields.
//
// Three analyzers are provided:
//   - Standard: normalized whole words with positions (exact, phrase and fuzzy matching)
//   - NGram: bounded character substrings of each word (partial matching)
//   - Stemming: Snowball-stemmed words without stopwords (suggestion terms)
//
// The same page text is fed through both Standard and NGram at index time so
// every query mode can be served from one store without re-extraction.
package analysis
