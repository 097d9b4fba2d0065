package badger

import (
	"encoding/binary"

	"github.com/famhp/olrs/core"
	"github.com/famhp/olrs/query"
)

// Key prefixes for different data types.
// Every key is prefix, separator, then the components joined by separator.
const (
	recordPrefix  = 'r' // r<docKey> -> record
	entryPrefix   = 'e' // e<entryID> -> docKey
	pathPrefix    = 'x' // x<path>\0<docKey> -> nil
	postingPrefix = 'p' // p<field>\0<term>\0<docKey> -> posting
	dictPrefix    = 'f' // f<field>\0<term> -> document frequency
	statsPrefix   = 's' // s<field> -> field stats
	termPrefix    = 't' // t<term> -> suggestion weight

	keySep = 0x00
)

// Short field codes keep posting keys compact.
var fieldCodes = map[string]string{
	query.FieldContentPartial: "cp",
	query.FieldContentExact:   "ce",
	query.FieldTitleExact:     "te",
	query.FieldSectionExact:   "se",
}

// indexedFields lists every field in the order records store them.
var indexedFields = []string{
	query.FieldContentPartial,
	query.FieldContentExact,
	query.FieldTitleExact,
	query.FieldSectionExact,
}

// positionalFields record term positions for phrase queries.
var positionalFields = map[string]bool{
	query.FieldContentExact: true,
	query.FieldTitleExact:   true,
	query.FieldSectionExact: true,
}

func fieldCode(field string) string {
	if code, ok := fieldCodes[field]; ok {
		return code
	}
	return field
}

func makeKey(prefix byte, parts ...string) []byte {
	size := 2
	for _, p := range parts {
		size += len(p) + 1
	}
	buf := make([]byte, 0, size)
	buf = append(buf, prefix, keySep)
	for i, p := range parts {
		if i > 0 {
			buf = append(buf, keySep)
		}
		buf = append(buf, p...)
	}
	return buf
}

// makeRecordKey generates the key of a stored record.
func makeRecordKey(k core.DocKey) []byte {
	return append([]byte{recordPrefix, keySep}, k.Bytes()...)
}

// makeEntryKey generates the entry ID lookup key.
func makeEntryKey(entryID string) []byte {
	return makeKey(entryPrefix, entryID)
}

// makeEntryPrefixKey generates the prefix shared by every entry key starting with entryPrefix.
func makeEntryPrefixKey(prefix string) []byte {
	return makeKey(entryPrefix, prefix)
}

// makePathKey generates a composite key for the path index.
// Format: x\0path\0docKey
func makePathKey(path string, k core.DocKey) []byte {
	return append(makePathPrefixKey(path), k.Bytes()...)
}

// makePathPrefixKey generates a partial key for path queries.
func makePathPrefixKey(path string) []byte {
	return append(makeKey(pathPrefix, path), keySep)
}

// makePostingKey generates the key of one posting.
// Format: p\0field\0term\0docKey
func makePostingKey(field, term string, k core.DocKey) []byte {
	return append(makePostingPrefixKey(field, term), k.Bytes()...)
}

// makePostingPrefixKey generates the prefix of every posting of a term.
func makePostingPrefixKey(field, term string) []byte {
	return append(makeKey(postingPrefix, fieldCode(field), term), keySep)
}

// makeDictKey generates the term dictionary key holding the document frequency.
func makeDictKey(field, term string) []byte {
	return makeKey(dictPrefix, fieldCode(field), term)
}

// makeDictPrefixKey generates the prefix of a field's term dictionary.
func makeDictPrefixKey(field string) []byte {
	return append(makeKey(dictPrefix, fieldCode(field)), keySep)
}

// makeStatsKey generates the key of a field's statistics.
func makeStatsKey(field string) []byte {
	return makeKey(statsPrefix, fieldCode(field))
}

// makeTermKey generates the key of a suggestion term.
func makeTermKey(term string) []byte {
	return makeKey(termPrefix, term)
}

// docKeyFromSuffix decodes the trailing 8-byte document key of a composite key.
func docKeyFromSuffix(key []byte) (core.DocKey, bool) {
	if len(key) < 8 {
		return 0, false
	}
	return core.DocKey(binary.BigEndian.Uint64(key[len(key)-8:])), true
}
