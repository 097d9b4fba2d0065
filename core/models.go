package core

import (
	"encoding/binary"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-crypt/x/blake2b"
)

// DocKey is a compact storage key for an index record.
// It is derived from the entry ID using content-based hashing.
type DocKey uint64

// ContentID generates a deterministic key from text content using BLAKE2b hashing.
// Identical content always produces identical keys.
func ContentID(text string) DocKey {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return DocKey(binary.LittleEndian.Uint64(sum))
}

// Bytes returns the big-endian encoding of the key, suitable for use in ordered keys.
func (k DocKey) Bytes() []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(k))
	return buf
}

// AllLanguages selects every present language index.
const AllLanguages = "all"

// entrySeparator joins the parts of an entry ID.
const entrySeparator = "#"

// PageEntry is the indexed unit: one page (or one section of a page) of a document.
type PageEntry struct {
	DocID    string
	Path     string
	Title    string // Defaults to the path stem when empty
	Language string
	Page     int
	Section  string // May be empty
	Text     string
}

// EntryID returns the unique key of the entry, doc_id#path#page#section.
func (e *PageEntry) EntryID() string {
	return EntryID(e.DocID, e.Path, e.Page, e.Section)
}

// DisplayTitle returns the title, falling back to the path stem.
func (e *PageEntry) DisplayTitle() string {
	if e.Title != "" {
		return e.Title
	}
	return TitleFromPath(e.Path)
}

// EntryID builds the entry key from its parts.
func EntryID(docID, path string, page int, section string) string {
	return docID + entrySeparator + path + entrySeparator + strconv.Itoa(page) + entrySeparator + section
}

// EntryIDPrefix returns the prefix shared by every entry of a document.
// The trailing separator keeps doc "A1" from matching doc "A10".
func EntryIDPrefix(docID string) string {
	return docID + entrySeparator
}

// TitleFromPath returns the file name of path without its extension.
func TitleFromPath(path string) string {
	base := filepath.Base(path)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Record is the stored form of an index record.
// Field terms are retained so a record can be removed from the postings exactly.
type Record struct {
	EntryID  string
	DocID    string
	Path     string
	Title    string
	Language string
	Page     int
	Section  string
	Fields   []FieldTerms
}

// FieldTerms lists the distinct terms a record contributed to one field.
type FieldTerms struct {
	Field  string
	Length int // Token count, used for length normalisation
	Terms  []string
}

// Hit is a single ranked search result.
type Hit struct {
	DocID    string
	Path     string
	Title    string
	Language string
	Page     int
	Section  string
	Score    float64
}

// HitFromRecord copies the stored fields of a record into a hit.
func HitFromRecord(r *Record, score float64) Hit {
	return Hit{
		DocID:    r.DocID,
		Path:     r.Path,
		Title:    r.Title,
		Language: r.Language,
		Page:     r.Page,
		Section:  r.Section,
		Score:    score,
	}
}

// Mode selects the match semantics of a query.
type Mode int

const (
	// ModePartial matches arbitrary substrings through the n-gram field.
	ModePartial Mode = iota + 1
	// ModeWhole matches exact words or phrases.
	ModeWhole
	// ModeFuzzy matches words within edit distance 1.
	ModeFuzzy
)

// String returns the lowercase mode name.
func (m Mode) String() string {
	switch m {
	case ModePartial:
		return "partial"
	case ModeWhole:
		return "whole"
	case ModeFuzzy:
		return "fuzzy"
	default:
		return "mode(" + strconv.Itoa(int(m)) + ")"
	}
}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	return m >= ModePartial && m <= ModeFuzzy
}

// ParseMode converts a mode name to a Mode. Matching is case-insensitive.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "partial":
		return ModePartial, nil
	case "whole":
		return ModeWhole, nil
	case "fuzzy":
		return ModeFuzzy, nil
	default:
		return 0, InvalidArgumentf("unknown mode %q", s)
	}
}
