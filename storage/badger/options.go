package badger

import (
	"log/slog"

	"github.com/famhp/olrs/analysis"
)

// Option configures backends, indexes and providers.
type Option func(*config)

type config struct {
	logger     *slog.Logger
	syncWrites bool
	ngram      analysis.NGram
}

func newConfig(opts []Option) *config {
	cfg := &config{
		logger:     slog.Default(),
		syncWrites: true,
		ngram:      analysis.NewNGram(analysis.DefaultNGramMin, analysis.DefaultNGramMax),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
	}
}

// WithSyncWrites controls whether commits are fsynced before returning.
// Default is true.
func WithSyncWrites(sync bool) Option {
	return func(c *config) {
		c.syncWrites = sync
	}
}

// WithNGram sets the gram bounds of the partial-match field.
// Default is 3 to 20 runes.
func WithNGram(min, max int) Option {
	return func(c *config) {
		c.ngram = analysis.NewNGram(min, max)
	}
}
