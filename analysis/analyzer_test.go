package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandard_Analyze(t *testing.T) {
	tokens := Standard{}.Analyze("Constitutional Court ruling on Article 12.")

	require.Len(t, tokens, 6)
	assert.Equal(t, Token{Term: "constitutional", Position: 0}, tokens[0])
	assert.Equal(t, Token{Term: "article", Position: 4}, tokens[4])
	assert.Equal(t, Token{Term: "12", Position: 5}, tokens[5])
}

func TestWords(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "empty", in: "", want: nil},
		{name: "punctuation only", in: "... --- !!!", want: []string{}},
		{name: "hyphenated", in: "state-of-the-art", want: []string{"state", "of", "the", "art"}},
		{name: "accents kept", in: "Déclaration ÉTAT", want: []string{"déclaration", "état"}},
		{name: "nfkc folds ligatures", in: "ﬁnal", want: []string{"final"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Words(tt.in)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTerms_Distinct(t *testing.T) {
	terms := Terms(Standard{}.Analyze("the court and the Court"))
	assert.Equal(t, []string{"the", "court", "and"}, terms)
}

func TestNGram_Grams(t *testing.T) {
	g := NewNGram(3, 5)

	t.Run("short word yields nothing", func(t *testing.T) {
		assert.Empty(t, g.Grams("ab"))
	})

	t.Run("all sizes", func(t *testing.T) {
		grams := g.Grams("abcd")
		assert.ElementsMatch(t, []string{"abc", "bcd", "abcd"}, grams)
	})

	t.Run("substring present", func(t *testing.T) {
		grams := NewNGram(3, 20).Grams("constitutional")
		assert.Contains(t, grams, "stitu")
		assert.Contains(t, grams, "constitutional")
	})

	t.Run("duplicates removed", func(t *testing.T) {
		grams := g.Grams("aaaa")
		assert.ElementsMatch(t, []string{"aaa", "aaaa"}, grams)
	})
}

func TestNGram_Analyze(t *testing.T) {
	tokens := NewNGram(3, 20).Analyze("on Article")
	for _, tok := range tokens {
		assert.Equal(t, 1, tok.Position, tok.Term)
	}
	assert.NotEmpty(t, tokens)
}

func TestNGram_Fixed(t *testing.T) {
	g := NewNGram(3, 4)
	assert.Equal(t, []string{"abc"}, g.Fixed("abc"))
	assert.Equal(t, []string{"abcd", "bcde", "cdef"}, g.Fixed("abcdef"))
}

func TestNewNGram_Defaults(t *testing.T) {
	g := NewNGram(0, 0)
	assert.Equal(t, DefaultNGramMin, g.Min)
	assert.Equal(t, DefaultNGramMax, g.Max)
}

func TestStemming(t *testing.T) {
	t.Run("english stems and drops stopwords", func(t *testing.T) {
		s := NewStemming("en")
		require.True(t, s.HasStemmer())
		terms := Terms(s.Analyze("The rulings of the courts"))
		assert.Equal(t, []string{"rule", "court"}, terms)
	})

	t.Run("unknown language passes through", func(t *testing.T) {
		s := NewStemming("xx")
		assert.False(t, s.HasStemmer())
		terms := Terms(s.Analyze("Rulings courts"))
		assert.Equal(t, []string{"rulings", "courts"}, terms)
	})

	t.Run("dutch removes stopwords without stemming", func(t *testing.T) {
		s := NewStemming("nl")
		terms := Terms(s.Analyze("de rechtbank van"))
		assert.Equal(t, []string{"rechtbank"}, terms)
	})
}
