package analysis

import (
	"github.com/kljensen/snowball/english"
	"github.com/kljensen/snowball/french"
	"github.com/kljensen/snowball/russian"
	"github.com/kljensen/snowball/spanish"
	"github.com/kljensen/snowball/swedish"
)

type stemFunc func(word string, stemStopWords bool) string

var stemmers = map[string]stemFunc{
	"en": english.Stem,
	"fr": french.Stem,
	"es": spanish.Stem,
	"ru": russian.Stem,
	"sv": swedish.Stem,
}

// Stemming produces stemmed whole words for a language.
// Stopwords for the language are dropped; languages without a Snowball
// stemmer are passed through unstemmed.
type Stemming struct {
	language  string
	stem      stemFunc
	stopwords map[string]struct{}
}

var _ Analyzer = (*Stemming)(nil)

// NewStemming returns a stemming analyzer for a language code such as "en".
func NewStemming(language string) *Stemming {
	return &Stemming{
		language:  language,
		stem:      stemmers[language],
		stopwords: stopwords[language],
	}
}

// Language returns the language code the analyzer was built for.
func (s *Stemming) Language() string {
	return s.language
}

// HasStemmer reports whether words are actually stemmed for this language.
func (s *Stemming) HasStemmer() bool {
	return s.stem != nil
}

// Analyze implements Analyzer.
func (s *Stemming) Analyze(text string) []Token {
	words := Words(text)
	tokens := make([]Token, 0, len(words))
	for pos, w := range words {
		if _, stop := s.stopwords[w]; stop {
			continue
		}
		if s.stem != nil {
			w = s.stem(w, false)
		}
		if w == "" {
			continue
		}
		tokens = append(tokens, Token{Term: w, Position: pos})
	}
	return tokens
}
