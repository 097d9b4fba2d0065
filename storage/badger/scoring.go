package badger

import (
	"context"
	"math"
	"slices"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/cockroachdb/errors"
	"github.com/dgraph-io/badger/v4"
	"github.com/famhp/olrs/core"
	"github.com/famhp/olrs/query"
	"github.com/famhp/olrs/storage"
)

// BM25 parameters.
const (
	k1 = 1.2
	b  = 0.75
)

// docMatch accumulates the score of one record and the terms that matched it.
type docMatch struct {
	score float64
	terms map[string]struct{}
}

type matchSet map[core.DocKey]*docMatch

func (m matchSet) add(key core.DocKey, score float64, terms ...string) {
	dm, ok := m[key]
	if !ok {
		dm = &docMatch{terms: make(map[string]struct{}, len(terms))}
		m[key] = dm
	}
	dm.score += score
	for _, t := range terms {
		dm.terms[t] = struct{}{}
	}
}

func (m matchSet) merge(other matchSet) {
	for key, dm := range other {
		m.add(key, dm.score)
		for t := range dm.terms {
			m[key].terms[t] = struct{}{}
		}
	}
}

// evaluator resolves a query tree against one read-only snapshot.
type evaluator struct {
	ctx   context.Context
	tx    *badger.Txn
	stats map[string]storage.FieldStats
}

func newEvaluator(ctx context.Context, tx *badger.Txn) *evaluator {
	return &evaluator{
		ctx:   ctx,
		tx:    tx,
		stats: make(map[string]storage.FieldStats),
	}
}

func (e *evaluator) eval(q query.Query) (matchSet, error) {
	if err := e.ctx.Err(); err != nil {
		return nil, err
	}

	switch q := q.(type) {
	case query.Term:
		return e.term(q.Field, q.Text, query.BoostOf(q.Boost))
	case query.Phrase:
		return e.phrase(q.Field, q.Terms, query.BoostOf(q.Boost))
	case query.Fuzzy:
		return e.fuzzy(q.Field, q.Text, q.MaxDist, query.BoostOf(q.Boost))
	case query.Or:
		result := make(matchSet)
		for _, clause := range q.Clauses {
			ms, err := e.eval(clause)
			if err != nil {
				return nil, err
			}
			result.merge(ms)
		}
		return result, nil
	case query.And:
		var result matchSet
		for _, clause := range q.Clauses {
			ms, err := e.eval(clause)
			if err != nil {
				return nil, err
			}
			if result == nil {
				result = ms
			} else {
				result = intersect(result, ms)
			}
			if len(result) == 0 {
				return make(matchSet), nil
			}
		}
		if result == nil {
			result = make(matchSet)
		}
		return result, nil
	case nil:
		return make(matchSet), nil
	default:
		return nil, errors.Newf("unsupported query node %T", q)
	}
}

func intersect(a, b matchSet) matchSet {
	result := make(matchSet)
	for key, dm := range a {
		other, ok := b[key]
		if !ok {
			continue
		}
		result.merge(matchSet{key: dm})
		result.merge(matchSet{key: other})
	}
	return result
}

func (e *evaluator) fieldStats(field string) (storage.FieldStats, error) {
	if s, ok := e.stats[field]; ok {
		return s, nil
	}
	s, err := getStats(e.tx, field)
	if err != nil {
		return s, err
	}
	e.stats[field] = s
	return s, nil
}

// postings loads every posting of term in field.
func (e *evaluator) postings(field, term string) (map[core.DocKey]storage.Posting, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makePostingPrefixKey(field, term)
	iter := e.tx.NewIterator(opts)
	defer iter.Close()

	result := make(map[core.DocKey]storage.Posting)
	for iter.Rewind(); iter.Valid(); iter.Next() {
		item := iter.Item()
		key := item.Key()
		if len(key) != len(opts.Prefix)+8 {
			continue
		}
		docKey, _ := docKeyFromSuffix(key)
		err := item.Value(func(val []byte) error {
			p, err := storage.UnmarshalPosting(val)
			if err != nil {
				return err
			}
			result[docKey] = p
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (e *evaluator) term(field, text string, boost float64) (matchSet, error) {
	result := make(matchSet)
	postings, err := e.postings(field, text)
	if err != nil || len(postings) == 0 {
		return result, err
	}
	stats, err := e.fieldStats(field)
	if err != nil {
		return nil, err
	}

	idf := computeIDF(stats.DocCount, len(postings))
	avg := stats.AvgLength()
	for key, p := range postings {
		result.add(key, boost*idf*computeTFNorm(p.Freq, p.FieldLen, avg), text)
	}
	return result, nil
}

// phrase matches records containing terms at consecutive positions.
// The score is the sum of the individual term scores.
func (e *evaluator) phrase(field string, terms []string, boost float64) (matchSet, error) {
	result := make(matchSet)
	if len(terms) == 0 {
		return result, nil
	}
	if len(terms) == 1 {
		return e.term(field, terms[0], boost)
	}

	lists := make([]map[core.DocKey]storage.Posting, len(terms))
	for i, term := range terms {
		postings, err := e.postings(field, term)
		if err != nil {
			return nil, err
		}
		if len(postings) == 0 {
			return result, nil
		}
		lists[i] = postings
	}
	stats, err := e.fieldStats(field)
	if err != nil {
		return nil, err
	}
	avg := stats.AvgLength()

candidates:
	for key, first := range lists[0] {
		chain := make([]storage.Posting, len(terms))
		chain[0] = first
		for i := 1; i < len(lists); i++ {
			p, ok := lists[i][key]
			if !ok {
				continue candidates
			}
			chain[i] = p
		}
		if !hasSequence(chain) {
			continue
		}

		score := 0.0
		for i, p := range chain {
			score += computeIDF(stats.DocCount, len(lists[i])) * computeTFNorm(p.Freq, p.FieldLen, avg)
		}
		result.add(key, boost*score, terms...)
	}
	return result, nil
}

// hasSequence reports whether chain[i] has a position start+i for some start.
func hasSequence(chain []storage.Posting) bool {
	for _, start := range chain[0].Positions {
		found := true
		for i := 1; i < len(chain); i++ {
			if _, ok := slices.BinarySearch(chain[i].Positions, start+i); !ok {
				found = false
				break
			}
		}
		if found {
			return true
		}
	}
	return false
}

type fuzzyCandidate struct {
	term string
	dist int
}

// fuzzy expands text over the field's term dictionary to every term within
// maxDist edits and scores each expansion at boost/(1+distance).
func (e *evaluator) fuzzy(field, text string, maxDist int, boost float64) (matchSet, error) {
	if maxDist <= 0 {
		return e.term(field, text, boost)
	}

	candidates, err := e.expand(field, text, maxDist)
	if err != nil {
		return nil, err
	}

	result := make(matchSet)
	for _, c := range candidates {
		ms, err := e.term(field, c.term, boost/float64(1+c.dist))
		if err != nil {
			return nil, err
		}
		result.merge(ms)
	}
	return result, nil
}

func (e *evaluator) expand(field, text string, maxDist int) ([]fuzzyCandidate, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = makeDictPrefixKey(field)
	iter := e.tx.NewIterator(opts)
	defer iter.Close()

	textLen := utf8.RuneCountInString(text)
	var candidates []fuzzyCandidate
	for iter.Rewind(); iter.Valid(); iter.Next() {
		if err := e.ctx.Err(); err != nil {
			return nil, err
		}
		term := string(iter.Item().Key()[len(opts.Prefix):])
		if diff := utf8.RuneCountInString(term) - textLen; diff > maxDist || -diff > maxDist {
			continue
		}
		if d := levenshtein.ComputeDistance(text, term); d <= maxDist {
			candidates = append(candidates, fuzzyCandidate{term: term, dist: d})
		}
	}
	return candidates, nil
}

// computeIDF uses the BM25 variant that stays positive when a term occurs in
// every record.
func computeIDF(totalDocs, docFreq int) float64 {
	numerator := float64(totalDocs) - float64(docFreq) + 0.5
	denominator := float64(docFreq) + 0.5
	return math.Log(1 + numerator/denominator)
}

func computeTFNorm(termFreq, docLength int, avgDocLength float64) float64 {
	if avgDocLength == 0 {
		return 0
	}
	lengthRatio := float64(docLength) / avgDocLength
	denominator := float64(termFreq) + k1*(1-b+b*lengthRatio)
	return (float64(termFreq) * (k1 + 1)) / denominator
}

type rankedDoc struct {
	key core.DocKey
	*docMatch
}

// rank orders matches by descending score, breaking ties by key, and keeps
// at most limit of them.
func rank(matches matchSet, limit int) []rankedDoc {
	ranked := make([]rankedDoc, 0, len(matches))
	for key, dm := range matches {
		ranked = append(ranked, rankedDoc{key: key, docMatch: dm})
	}
	slices.SortFunc(ranked, func(x, y rankedDoc) int {
		if x.score > y.score {
			return -1
		}
		if x.score < y.score {
			return 1
		}
		if x.key < y.key {
			return -1
		}
		if x.key > y.key {
			return 1
		}
		return 0
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
