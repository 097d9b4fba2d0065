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

package core

import (
	"strings"

	"github.com/cockroachdb/errors"
)

const maxLanguageLen = 16

// ValidatePageEntry validates a PageEntry before it is indexed.
//
// Validation rules:
//   - DocID and Path must not be empty
//   - DocID must not contain the entry ID separator '#'
//   - Page must be >= 1
//   - Language must be a valid language code
//   - No field may contain a NUL byte
//
// Text may be empty; an empty page is still addressable by its entry ID.
func ValidatePageEntry(entry *PageEntry) error {
	if entry == nil {
		return InvalidArgumentf("page entry is nil")
	}

	if err := ValidateDocID(entry.DocID); err != nil {
		return err
	}

	if entry.Path == "" {
		return errors.Mark(ErrEmptyPath, ErrInvalidArgument)
	}

	if entry.Page < 1 {
		return errors.Mark(errors.Wrapf(ErrInvalidPage, "page %d", entry.Page), ErrInvalidArgument)
	}

	if err := ValidateLanguage(entry.Language); err != nil {
		return err
	}

	for _, field := range []string{entry.DocID, entry.Path, entry.Title, entry.Section} {
		if strings.IndexByte(field, 0) >= 0 {
			return errors.Mark(ErrNulByte, ErrInvalidArgument)
		}
	}

	return nil
}

// ValidateDocID checks that docID is non-empty and free of the entry ID
// separator, so that its entry ID prefix selects only its own entries.
func ValidateDocID(docID string) error {
	if docID == "" {
		return errors.Mark(ErrEmptyDocID, ErrInvalidArgument)
	}
	if strings.Contains(docID, entrySeparator) {
		return errors.Mark(errors.Wrapf(ErrDocIDSeparator, "%q", docID), ErrInvalidArgument)
	}
	return nil
}

// ValidateLanguage checks that code is a usable language directory name.
// Codes are 1-16 characters from [a-z0-9_-]; "all" is reserved.
func ValidateLanguage(code string) error {
	if code == "" || len(code) > maxLanguageLen || code == AllLanguages {
		return errors.Mark(errors.Wrapf(ErrInvalidLanguage, "%q", code), ErrInvalidArgument)
	}
	for _, r := range code {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return errors.Mark(errors.Wrapf(ErrInvalidLanguage, "%q", code), ErrInvalidArgument)
		}
	}
	return nil
}

// ValidateLanguageSelector accepts a language code or AllLanguages.
func ValidateLanguageSelector(selector string) error {
	if selector == AllLanguages {
		return nil
	}
	return ValidateLanguage(selector)
}

// NormalizeLanguage trims and lowercases a language code.
func NormalizeLanguage(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
