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
	"fmt"

	"github.com/cockroachdb/errors"
)

// Error taxonomy. Test with errors.Is.
var (
	// ErrStorage marks index create, open, write and commit failures.
	ErrStorage = errors.New("storage error")

	// ErrInvalidArgument marks caller mistakes such as an unknown mode.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrExtraction marks failures reported by an extractor.
	ErrExtraction = errors.New("extraction error")
)

// Domain validation errors
var (
	// ErrEmptyDocID indicates the document identifier is empty.
	ErrEmptyDocID = errors.New("document id cannot be empty")

	// ErrDocIDSeparator indicates the document identifier contains the
	// entry ID separator.
	ErrDocIDSeparator = errors.New("document id cannot contain " + entrySeparator)

	// ErrEmptyPath indicates the source path is empty.
	ErrEmptyPath = errors.New("path cannot be empty")

	// ErrInvalidPage indicates a page number below 1.
	ErrInvalidPage = errors.New("page number must be >= 1")

	// ErrInvalidLanguage indicates a malformed language code.
	ErrInvalidLanguage = errors.New("invalid language code")

	// ErrNulByte indicates a field contains a NUL byte, which is reserved as a key separator.
	ErrNulByte = errors.New("field contains NUL byte")
)

// StorageError wraps cause with a message and marks it as ErrStorage.
// The cause stays reachable through errors.Is and errors.As.
func StorageError(cause error, format string, args ...any) error {
	if cause == nil {
		return nil
	}
	return errors.Mark(errors.Wrapf(cause, format, args...), ErrStorage)
}

// InvalidArgumentf builds an ErrInvalidArgument error.
func InvalidArgumentf(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}

// ExtractionError reports an extractor failure for one document or one page.
// Page is 0 when the whole document failed.
type ExtractionError struct {
	Path string
	Page int
	Err  error
}

func (e *ExtractionError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("extract %s page %d: %v", e.Path, e.Page, e.Err)
	}
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Is makes every ExtractionError match ErrExtraction.
func (e *ExtractionError) Is(target error) bool {
	return target == ErrExtraction
}
