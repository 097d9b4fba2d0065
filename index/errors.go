package index

import "github.com/cockroachdb/errors"

var (
	// ErrProviderRequired is returned when a registry is built without an index provider.
	ErrProviderRequired = errors.New("index provider required")

	// ErrRegistryClosed is returned by operations on a closed registry.
	ErrRegistryClosed = errors.New("registry closed")
)
