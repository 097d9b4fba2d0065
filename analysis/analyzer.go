package analysis

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Token is a single analyzed term with its word position.
type Token struct {
	Term     string
	Position int
}

// Analyzer turns raw text into tokens.
// Implementations must be safe for concurrent use.
type Analyzer interface {
	Analyze(text string) []Token
}

// Standard splits text into normalized whole words.
// Text is NFKC-normalized and lowercased, then split on anything that is not a
// letter or a digit. Positions are dense and start at 0. No stopwords are removed.
type Standard struct{}

var _ Analyzer = Standard{}

// Analyze implements Analyzer.
func (Standard) Analyze(text string) []Token {
	words := Words(text)
	tokens := make([]Token, len(words))
	for i, w := range words {
		tokens[i] = Token{Term: w, Position: i}
	}
	return tokens
}

// Words returns the normalized words of text in order.
func Words(text string) []string {
	if text == "" {
		return nil
	}
	normalized := strings.ToLower(norm.NFKC.String(text))
	return strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Terms returns the distinct terms of tokens, in first-seen order.
func Terms(tokens []Token) []string {
	seen := make(map[string]struct{}, len(tokens))
	terms := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, ok := seen[tok.Term]; ok {
			continue
		}
		seen[tok.Term] = struct{}{}
		terms = append(terms, tok.Term)
	}
	return terms
}
