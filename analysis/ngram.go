package analysis

const (
	// DefaultNGramMin is the shortest gram emitted.
	DefaultNGramMin = 3
	// DefaultNGramMax is the longest gram emitted.
	DefaultNGramMax = 20
)

// NGram emits every substring of each word whose length, in runes, lies in [Min, Max].
// Words shorter than Min produce nothing. Grams inherit the position of their word.
type NGram struct {
	Min int
	Max int
}

var _ Analyzer = NGram{}

// NewNGram returns an n-gram analyzer, substituting defaults for non-positive bounds.
func NewNGram(min, max int) NGram {
	if min <= 0 {
		min = DefaultNGramMin
	}
	if max < min {
		max = DefaultNGramMax
		if max < min {
			max = min
		}
	}
	return NGram{Min: min, Max: max}
}

// Analyze implements Analyzer.
func (g NGram) Analyze(text string) []Token {
	var tokens []Token
	for pos, word := range Words(text) {
		for _, gram := range g.Grams(word) {
			tokens = append(tokens, Token{Term: gram, Position: pos})
		}
	}
	return tokens
}

// Grams returns the distinct grams of a single normalized word.
func (g NGram) Grams(word string) []string {
	runes := []rune(word)
	if len(runes) < g.Min {
		return nil
	}
	seen := make(map[string]struct{})
	var grams []string
	for size := g.Min; size <= g.Max && size <= len(runes); size++ {
		for start := 0; start+size <= len(runes); start++ {
			gram := string(runes[start : start+size])
			if _, ok := seen[gram]; ok {
				continue
			}
			seen[gram] = struct{}{}
			grams = append(grams, gram)
		}
	}
	return grams
}

// Fixed returns the distinct grams of exactly Max runes covering word.
// It is used to match words longer than Max, where no single gram can.
func (g NGram) Fixed(word string) []string {
	runes := []rune(word)
	if len(runes) <= g.Max {
		return []string{word}
	}
	seen := make(map[string]struct{})
	var grams []string
	for start := 0; start+g.Max <= len(runes); start++ {
		gram := string(runes[start : start+g.Max])
		if _, ok := seen[gram]; ok {
			continue
		}
		seen[gram] = struct{}{}
		grams = append(grams, gram)
	}
	return grams
}
