package suggest

import "github.com/cockroachdb/errors"

var (
	// ErrProviderRequired is returned when an engine is built without a term provider.
	ErrProviderRequired = errors.New("term provider required")

	// ErrEngineClosed is returned by operations on a closed engine.
	ErrEngineClosed = errors.New("suggest engine closed")
)
