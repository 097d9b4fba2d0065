package synonym

import "github.com/cockroachdb/errors"

var (
	// ErrMalformedFile is returned when a synonym file is not a JSON object of string arrays.
	ErrMalformedFile = errors.New("malformed synonym file")

	// ErrInvalidDebounce is returned when the watch debounce period is negative.
	ErrInvalidDebounce = errors.New("debounce period cannot be negative")
)
