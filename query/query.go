// Package query defines the backend-neutral query tree evaluated by language indexes.
package query

import (
	"fmt"
	"strings"
)

// Indexed field names.
const (
	FieldContentPartial = "content_partial"
	FieldContentExact   = "content_exact"
	FieldTitleExact     = "title_exact"
	FieldSectionExact   = "section_exact"
)

// ExactFields are the whole-word fields searched by WHOLE and FUZZY queries.
var ExactFields = []string{FieldContentExact, FieldTitleExact, FieldSectionExact}

// Query is a node of the query tree.
type Query interface {
	fmt.Stringer
	query()
}

// Term matches records whose field contains Text.
type Term struct {
	Field string
	Text  string
	Boost float64 // Zero means 1
}

// Phrase matches records whose field contains Terms at consecutive positions.
type Phrase struct {
	Field string
	Terms []string
	Boost float64
}

// Fuzzy matches records whose field contains a term within MaxDist edits of Text.
type Fuzzy struct {
	Field   string
	Text    string
	MaxDist int
	Boost   float64
}

// Or matches records matching any clause; scores are summed.
type Or struct {
	Clauses []Query
}

// And matches records matching every clause; scores are summed.
type And struct {
	Clauses []Query
}

func (Term) query()   {}
func (Phrase) query() {}
func (Fuzzy) query()  {}
func (Or) query()     {}
func (And) query()    {}

func (q Term) String() string {
	return q.Field + ":" + q.Text
}

func (q Phrase) String() string {
	return q.Field + `:"` + strings.Join(q.Terms, " ") + `"`
}

func (q Fuzzy) String() string {
	return fmt.Sprintf("%s:%s~%d", q.Field, q.Text, q.MaxDist)
}

func (q Or) String() string {
	return join(q.Clauses, " OR ")
}

func (q And) String() string {
	return join(q.Clauses, " AND ")
}

func join(clauses []Query, sep string) string {
	parts := make([]string, len(clauses))
	for i, c := range clauses {
		parts[i] = c.String()
	}
	return "(" + strings.Join(parts, sep) + ")"
}

// BoostOf returns b, or 1 when b is unset.
func BoostOf(b float64) float64 {
	if b <= 0 {
		return 1
	}
	return b
}

// IsEmpty reports whether q can never match anything.
func IsEmpty(q Query) bool {
	switch q := q.(type) {
	case nil:
		return true
	case Or:
		for _, c := range q.Clauses {
			if !IsEmpty(c) {
				return false
			}
		}
		return true
	case And:
		if len(q.Clauses) == 0 {
			return true
		}
		for _, c := range q.Clauses {
			if IsEmpty(c) {
				return true
			}
		}
		return false
	case Phrase:
		return len(q.Terms) == 0
	case Term:
		return q.Text == ""
	case Fuzzy:
		return q.Text == ""
	default:
		return false
	}
}
