package core

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestValidatePageEntry(t *testing.T) {
	valid := func() *PageEntry {
		return &PageEntry{DocID: "A1", Path: "a.pdf", Language: "en", Page: 1, Text: "text"}
	}

	tests := []struct {
		name    string
		mutate  func(e *PageEntry)
		entry   *PageEntry
		wantErr error
	}{
		{name: "valid entry", mutate: func(e *PageEntry) {}},
		{name: "empty text is allowed", mutate: func(e *PageEntry) { e.Text = "" }},
		{name: "nil entry", entry: nil, wantErr: ErrInvalidArgument},
		{name: "empty doc id", mutate: func(e *PageEntry) { e.DocID = "" }, wantErr: ErrEmptyDocID},
		{name: "separator in doc id", mutate: func(e *PageEntry) { e.DocID = "A1#x" }, wantErr: ErrDocIDSeparator},
		{name: "separator in path is allowed", mutate: func(e *PageEntry) { e.Path = "notes#1.pdf" }},
		{name: "empty path", mutate: func(e *PageEntry) { e.Path = "" }, wantErr: ErrEmptyPath},
		{name: "page zero", mutate: func(e *PageEntry) { e.Page = 0 }, wantErr: ErrInvalidPage},
		{name: "bad language", mutate: func(e *PageEntry) { e.Language = "EN/../x" }, wantErr: ErrInvalidLanguage},
		{name: "nul in section", mutate: func(e *PageEntry) { e.Section = "a\x00b" }, wantErr: ErrNulByte},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := tt.entry
			if tt.mutate != nil {
				entry = valid()
				tt.mutate(entry)
			}
			err := ValidatePageEntry(entry)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.True(t, errors.Is(err, ErrInvalidArgument))
		})
	}
}

func TestValidateLanguage(t *testing.T) {
	for _, code := range []string{"en", "fr", "pt-br", "zh_hant"} {
		assert.NoError(t, ValidateLanguage(code), code)
	}
	for _, code := range []string{"", "all", "EN", "e n", "../etc", "abcdefghijklmnopq"} {
		assert.Error(t, ValidateLanguage(code), code)
	}
	assert.NoError(t, ValidateLanguageSelector("all"))
	assert.Equal(t, "de", NormalizeLanguage(" DE "))
}
