package search

import (
	"strings"
	"unicode/utf8"

	"github.com/famhp/olrs/analysis"
)

// queryWords splits a query on whitespace and normalizes each token the way
// the exact fields are analyzed, so punctuation never reaches the index.
func queryWords(text string) []string {
	var words []string
	for _, token := range strings.Fields(text) {
		words = append(words, analysis.Words(token)...)
	}
	return words
}

// singleWord returns the normalized form of s when it is exactly one word.
func singleWord(s string) (string, bool) {
	words := analysis.Words(s)
	if len(words) != 1 {
		return "", false
	}
	return words[0], true
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
