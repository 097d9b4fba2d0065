// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"github.com/cockroachdb/errors"
	"github.com/famhp/olrs/core"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// Posting is the per-record entry for one term in one field.
// Positions are kept only for fields that support phrase queries.
// FieldLen is the record's token count for the field, used for length normalisation.
type Posting struct {
	Freq      int
	FieldLen  int
	Positions []int
}

// FieldStats aggregates a field across all records of an index.
type FieldStats struct {
	DocCount    int
	TotalLength int
}

// AvgLength returns the mean field length, or 0 for an empty field.
func (s FieldStats) AvgLength() float64 {
	if s.DocCount == 0 {
		return 0
	}
	return float64(s.TotalLength) / float64(s.DocCount)
}

// writer marshals values sequentially into a pre-sized buffer.
type writer struct {
	bs []byte
	n  int
}

func (w *writer) str(s string) { w.n += ord.String.Marshal(s, w.bs[w.n:]) }
func (w *writer) int(v int)    { w.n += varint.Int.Marshal(v, w.bs[w.n:]) }

// reader unmarshals values sequentially and keeps the first error.
type reader struct {
	bs  []byte
	n   int
	err error
}

func (r *reader) str() string {
	if r.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(r.bs[r.n:])
	r.n += n
	r.err = err
	return v
}

func (r *reader) int() int {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Int.Unmarshal(r.bs[r.n:])
	r.n += n
	r.err = err
	return v
}

// count reads a collection length and rejects values the remaining data cannot hold.
func (r *reader) count() int {
	c := r.int()
	if r.err == nil && (c < 0 || c > len(r.bs)-r.n) {
		r.err = ErrTruncatedData
	}
	return c
}

func (r *reader) done() error {
	if r.err != nil {
		return errors.Mark(errors.Wrap(r.err, "unmarshal"), ErrSerializationFailed)
	}
	return nil
}

// MarshalInt serializes a single integer (document frequencies, term weights).
func MarshalInt(v int) []byte {
	buf := make([]byte, varint.Int.Size(v))
	varint.Int.Marshal(v, buf)
	return buf
}

// UnmarshalInt deserializes an integer written by MarshalInt.
func UnmarshalInt(data []byte) (int, error) {
	r := &reader{bs: data}
	v := r.int()
	return v, r.done()
}

// MarshalDocKey serializes a document key.
func MarshalDocKey(key core.DocKey) []byte {
	buf := make([]byte, varint.Uint64.Size(uint64(key)))
	varint.Uint64.Marshal(uint64(key), buf)
	return buf
}

// UnmarshalDocKey deserializes a document key.
func UnmarshalDocKey(data []byte) (core.DocKey, error) {
	v, _, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return 0, errors.Mark(errors.Wrap(err, "unmarshal doc key"), ErrSerializationFailed)
	}
	return core.DocKey(v), nil
}

// MarshalRecord serializes a Record to bytes.
func MarshalRecord(record *core.Record) []byte {
	size := ord.String.Size(record.EntryID) +
		ord.String.Size(record.DocID) +
		ord.String.Size(record.Path) +
		ord.String.Size(record.Title) +
		ord.String.Size(record.Language) +
		varint.Int.Size(record.Page) +
		ord.String.Size(record.Section) +
		varint.Int.Size(len(record.Fields))
	for _, f := range record.Fields {
		size += ord.String.Size(f.Field) + varint.Int.Size(f.Length) + varint.Int.Size(len(f.Terms))
		for _, t := range f.Terms {
			size += ord.String.Size(t)
		}
	}

	w := &writer{bs: make([]byte, size)}
	w.str(record.EntryID)
	w.str(record.DocID)
	w.str(record.Path)
	w.str(record.Title)
	w.str(record.Language)
	w.int(record.Page)
	w.str(record.Section)
	w.int(len(record.Fields))
	for _, f := range record.Fields {
		w.str(f.Field)
		w.int(f.Length)
		w.int(len(f.Terms))
		for _, t := range f.Terms {
			w.str(t)
		}
	}
	return w.bs
}

// UnmarshalRecord deserializes a Record from bytes.
func UnmarshalRecord(data []byte) (*core.Record, error) {
	r := &reader{bs: data}
	record := &core.Record{
		EntryID:  r.str(),
		DocID:    r.str(),
		Path:     r.str(),
		Title:    r.str(),
		Language: r.str(),
		Page:     r.int(),
		Section:  r.str(),
	}
	nFields := r.count()
	for i := 0; i < nFields && r.err == nil; i++ {
		f := core.FieldTerms{Field: r.str(), Length: r.int()}
		nTerms := r.count()
		for j := 0; j < nTerms && r.err == nil; j++ {
			f.Terms = append(f.Terms, r.str())
		}
		record.Fields = append(record.Fields, f)
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return record, nil
}

// MarshalPosting serializes a Posting to bytes. Positions are delta-encoded.
func MarshalPosting(p Posting) []byte {
	size := varint.Int.Size(p.Freq) + varint.Int.Size(p.FieldLen) + varint.Int.Size(len(p.Positions))
	prev := 0
	for _, pos := range p.Positions {
		size += varint.Int.Size(pos - prev)
		prev = pos
	}

	w := &writer{bs: make([]byte, size)}
	w.int(p.Freq)
	w.int(p.FieldLen)
	w.int(len(p.Positions))
	prev = 0
	for _, pos := range p.Positions {
		w.int(pos - prev)
		prev = pos
	}
	return w.bs
}

// UnmarshalPosting deserializes a Posting from bytes.
func UnmarshalPosting(data []byte) (Posting, error) {
	r := &reader{bs: data}
	p := Posting{Freq: r.int(), FieldLen: r.int()}
	n := r.count()
	if n > 0 {
		p.Positions = make([]int, 0, n)
	}
	prev := 0
	for i := 0; i < n && r.err == nil; i++ {
		prev += r.int()
		p.Positions = append(p.Positions, prev)
	}
	return p, r.done()
}

// MarshalFieldStats serializes FieldStats to bytes.
func MarshalFieldStats(s FieldStats) []byte {
	w := &writer{bs: make([]byte, varint.Int.Size(s.DocCount)+varint.Int.Size(s.TotalLength))}
	w.int(s.DocCount)
	w.int(s.TotalLength)
	return w.bs
}

// UnmarshalFieldStats deserializes FieldStats from bytes.
func UnmarshalFieldStats(data []byte) (FieldStats, error) {
	r := &reader{bs: data}
	s := FieldStats{DocCount: r.int(), TotalLength: r.int()}
	return s, r.done()
}
