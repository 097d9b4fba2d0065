package ingestion

import "github.com/cockroachdb/errors"

var (
	// ErrIndexesRequired is returned when no index registry is provided.
	ErrIndexesRequired = errors.New("index registry required")

	// ErrExtractorRequired is returned when a batch is started without an extractor.
	ErrExtractorRequired = errors.New("extractor required")

	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrPipelineReleased is returned when a batch is started after Release.
	ErrPipelineReleased = errors.New("pipeline released")
)
