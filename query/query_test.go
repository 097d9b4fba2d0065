package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	q := Or{Clauses: []Query{
		Phrase{Field: FieldContentExact, Terms: []string{"article", "12"}},
		Fuzzy{Field: FieldTitleExact, Text: "court", MaxDist: 1},
		And{Clauses: []Query{Term{Field: FieldContentPartial, Text: "stitu"}}},
	}}

	assert.Equal(t,
		`(content_exact:"article 12" OR title_exact:court~1 OR (content_partial:stitu))`,
		q.String())
}

func TestIsEmpty(t *testing.T) {
	tests := []struct {
		name string
		q    Query
		want bool
	}{
		{name: "nil", q: nil, want: true},
		{name: "empty or", q: Or{}, want: true},
		{name: "or with term", q: Or{Clauses: []Query{Term{Field: "f", Text: "x"}}}, want: false},
		{name: "and with empty clause", q: And{Clauses: []Query{Term{Field: "f", Text: "x"}, Or{}}}, want: true},
		{name: "empty phrase", q: Phrase{Field: "f"}, want: true},
		{name: "fuzzy", q: Fuzzy{Field: "f", Text: "x", MaxDist: 1}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsEmpty(tt.q))
		})
	}
}

func TestBoostOf(t *testing.T) {
	assert.Equal(t, 1.0, BoostOf(0))
	assert.Equal(t, 0.5, BoostOf(0.5))
}
