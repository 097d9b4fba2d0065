package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/famhp/olrs/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 3, cfg.NGramMin)
	assert.Equal(t, 20, cfg.NGramMax)
	assert.Equal(t, filepath.Join("olrs-data", "synonyms.json"), cfg.SynonymsFile())
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, "olrs.yaml", `
indexRoot: /var/lib/olrs
synonymsPath: /etc/olrs/synonyms.json
syncWrites: false
defaultLimit: 25
retryDelay: 250ms
log:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/olrs", cfg.IndexRoot)
	assert.Equal(t, "/etc/olrs/synonyms.json", cfg.SynonymsFile())
	assert.False(t, cfg.SyncWrites)
	assert.Equal(t, 25, cfg.DefaultLimit)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryDelay)
	assert.Equal(t, LogConfig{Level: "debug", Format: "json"}, cfg.Log)
	assert.Equal(t, 3, cfg.MaxRetries, "unset fields keep defaults")
}

func TestLoad_TOML(t *testing.T) {
	path := writeConfig(t, "olrs.toml", `
indexRoot = "/srv/olrs"
inMemory = true
poolSize = 8
retryDelay = "1s"

[log]
level = "warn"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/olrs", cfg.IndexRoot)
	assert.True(t, cfg.InMemory)
	assert.Equal(t, 8, cfg.PoolSize)
	assert.Equal(t, time.Second, cfg.RetryDelay)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("unknown extension", func(t *testing.T) {
		_, err := Load(writeConfig(t, "olrs.ini", "x=1"))
		assert.True(t, errors.Is(err, core.ErrInvalidArgument))
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "olrs.yml", "indexRoot: [unterminated"))
		assert.True(t, errors.Is(err, core.ErrInvalidArgument))
	})

	t.Run("malformed toml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "olrs.toml", "indexRoot = "))
		assert.True(t, errors.Is(err, core.ErrInvalidArgument))
	})

	t.Run("invalid values", func(t *testing.T) {
		_, err := Load(writeConfig(t, "olrs.yaml", "ngramMin: 5\nngramMax: 4\n"))
		assert.True(t, errors.Is(err, core.ErrInvalidArgument))
	})
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("OLRS_INDEX_ROOT", "/tmp/olrs-env")
	t.Setenv("OLRS_POOL_SIZE", "2")
	t.Setenv("OLRS_IN_MEMORY", "true")
	t.Setenv("OLRS_RETRY_DELAY", "5ms")
	t.Setenv("OLRS_LOG_FORMAT", "json")

	cfg, err := Load(writeConfig(t, "olrs.yaml", "indexRoot: /from/file\npoolSize: 6\n"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/olrs-env", cfg.IndexRoot)
	assert.Equal(t, 2, cfg.PoolSize)
	assert.True(t, cfg.InMemory)
	assert.Equal(t, 5*time.Millisecond, cfg.RetryDelay)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestApplyEnv_Malformed(t *testing.T) {
	tests := map[string]string{
		"OLRS_POOL_SIZE":   "many",
		"OLRS_SYNC_WRITES": "sometimes",
		"OLRS_RETRY_DELAY": "soon",
	}
	for name, value := range tests {
		t.Run(name, func(t *testing.T) {
			env := map[string]string{name: value}
			err := Default().applyEnv(func(k string) string { return env[k] })
			assert.True(t, errors.Is(err, core.ErrInvalidArgument))
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{"defaults", func(*Config) {}, true},
		{"in memory without root", func(c *Config) { c.IndexRoot = ""; c.InMemory = true }, true},
		{"missing root", func(c *Config) { c.IndexRoot = " " }, false},
		{"ngram min zero", func(c *Config) { c.NGramMin = 0 }, false},
		{"limit zero", func(c *Config) { c.DefaultLimit = 0 }, false},
		{"pool zero", func(c *Config) { c.PoolSize = 0 }, false},
		{"retries zero", func(c *Config) { c.MaxRetries = 0 }, false},
		{"negative delay", func(c *Config) { c.RetryDelay = -time.Second }, false},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, false},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, false},
		{"uppercase level", func(c *Config) { c.Log.Level = "DEBUG" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, core.ErrInvalidArgument), err)
			}
		})
	}
}

func TestSynonymsFile_InMemory(t *testing.T) {
	cfg := Default()
	cfg.IndexRoot = ""
	assert.Empty(t, cfg.SynonymsFile())
}
