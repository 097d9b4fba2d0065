// Package config loads engine and CLI configuration from YAML or TOML files
// with environment-variable overrides.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"github.com/famhp/olrs/core"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "OLRS_"

// Config is the top-level configuration.
type Config struct {
	IndexRoot    string        `yaml:"indexRoot" toml:"indexRoot"`
	SynonymsPath string        `yaml:"synonymsPath" toml:"synonymsPath"` // Defaults to <IndexRoot>/synonyms.json
	InMemory     bool          `yaml:"inMemory" toml:"inMemory"`
	SyncWrites   bool          `yaml:"syncWrites" toml:"syncWrites"`
	NGramMin     int           `yaml:"ngramMin" toml:"ngramMin"`
	NGramMax     int           `yaml:"ngramMax" toml:"ngramMax"`
	DefaultLimit int           `yaml:"defaultLimit" toml:"defaultLimit"`
	PoolSize     int           `yaml:"poolSize" toml:"poolSize"`
	MaxRetries   int           `yaml:"maxRetries" toml:"maxRetries"`
	RetryDelay   time.Duration `yaml:"retryDelay" toml:"retryDelay"`
	Log          LogConfig     `yaml:"log" toml:"log"`
}

// LogConfig controls structured logging level and output format.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug, info, warn or error
	Format string `yaml:"format" toml:"format"` // text or json
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		IndexRoot:    "olrs-data",
		SyncWrites:   true,
		NGramMin:     3,
		NGramMax:     20,
		DefaultLimit: 50,
		PoolSize:     4,
		MaxRetries:   3,
		RetryDelay:   100 * time.Millisecond,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a config file (if path is not empty), applies environment
// overrides and validates the result. The format follows the extension:
// .yaml and .yml are YAML, .toml is TOML.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading config file %s", path)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return errors.Mark(errors.Wrapf(err, "parsing config file %s", path), core.ErrInvalidArgument)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), c); err != nil {
			return errors.Mark(errors.Wrapf(err, "parsing config file %s", path), core.ErrInvalidArgument)
		}
	default:
		return core.InvalidArgumentf("unsupported config format %q", ext)
	}
	return nil
}

// applyEnv reads OLRS_* variables through getenv and overrides the
// corresponding fields. A malformed value is an error.
func (c *Config) applyEnv(getenv func(string) string) error {
	strs := map[string]*string{
		"INDEX_ROOT":    &c.IndexRoot,
		"SYNONYMS_PATH": &c.SynonymsPath,
		"LOG_LEVEL":     &c.Log.Level,
		"LOG_FORMAT":    &c.Log.Format,
	}
	for name, dst := range strs {
		if v := getenv(EnvPrefix + name); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"NGRAM_MIN":     &c.NGramMin,
		"NGRAM_MAX":     &c.NGramMax,
		"DEFAULT_LIMIT": &c.DefaultLimit,
		"POOL_SIZE":     &c.PoolSize,
		"MAX_RETRIES":   &c.MaxRetries,
	}
	for name, dst := range ints {
		if v := getenv(EnvPrefix + name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return core.InvalidArgumentf("%s%s=%q", EnvPrefix, name, v)
			}
			*dst = n
		}
	}

	bools := map[string]*bool{
		"IN_MEMORY":   &c.InMemory,
		"SYNC_WRITES": &c.SyncWrites,
	}
	for name, dst := range bools {
		if v := getenv(EnvPrefix + name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return core.InvalidArgumentf("%s%s=%q", EnvPrefix, name, v)
			}
			*dst = b
		}
	}

	if v := getenv(EnvPrefix + "RETRY_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return core.InvalidArgumentf("%sRETRY_DELAY=%q", EnvPrefix, v)
		}
		c.RetryDelay = d
	}
	return nil
}

// Validate checks every field. Errors are marked core.ErrInvalidArgument.
func (c *Config) Validate() error {
	switch {
	case !c.InMemory && strings.TrimSpace(c.IndexRoot) == "":
		return core.InvalidArgumentf("indexRoot is required unless inMemory is set")
	case c.NGramMin < 1:
		return core.InvalidArgumentf("ngramMin %d must be >= 1", c.NGramMin)
	case c.NGramMax < c.NGramMin:
		return core.InvalidArgumentf("ngramMax %d must be >= ngramMin %d", c.NGramMax, c.NGramMin)
	case c.DefaultLimit < 1:
		return core.InvalidArgumentf("defaultLimit %d must be >= 1", c.DefaultLimit)
	case c.PoolSize < 1:
		return core.InvalidArgumentf("poolSize %d must be >= 1", c.PoolSize)
	case c.MaxRetries < 1:
		return core.InvalidArgumentf("maxRetries %d must be >= 1", c.MaxRetries)
	case c.RetryDelay < 0:
		return core.InvalidArgumentf("retryDelay %s must not be negative", c.RetryDelay)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return core.InvalidArgumentf("unknown log level %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return core.InvalidArgumentf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// SynonymsFile returns the synonym file path, defaulting to synonyms.json
// under the index root.
func (c *Config) SynonymsFile() string {
	if c.SynonymsPath != "" {
		return c.SynonymsPath
	}
	if c.IndexRoot == "" {
		return ""
	}
	return filepath.Join(c.IndexRoot, "synonyms.json")
}
