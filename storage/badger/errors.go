package badger

import "github.com/cockroachdb/errors"

// ErrBackendRequired is returned when a nil backend is passed to a constructor.
var ErrBackendRequired = errors.New("badger backend required")
