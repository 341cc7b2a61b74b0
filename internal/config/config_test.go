package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err, "default config file is created")

	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, time.Hour, cfg.Cache.ResponseTTL)
	assert.Equal(t, 0.3, cfg.Classifier.Threshold)
	assert.Equal(t, 5*time.Second, cfg.Classifier.SemanticTimeout)
	assert.Equal(t, 5, cfg.Generation.HistoryPairs)
	assert.Equal(t, "London", cfg.Weather.DefaultCity)
	assert.Equal(t, "@every 1m", cfg.Reminder.Schedule)
	assert.Equal(t, "127.0.0.1:8001", cfg.Server.Addr)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
weather:
  default_city: Paris
classifier:
  threshold: 0.5
logging:
  level: debug
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Paris", cfg.Weather.DefaultCity)
	assert.Equal(t, 10*time.Second, cfg.Weather.Timeout)
	assert.Equal(t, 0.5, cfg.Classifier.Threshold)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 1024, cfg.Summarize.MaxWordsPerChunk)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("CAMPUSECHO_WEATHER_DEFAULT_CITY", "Berlin")
	t.Setenv("CAMPUSECHO_CACHE_RESPONSE_TTL", "30m")
	t.Setenv("CAMPUSECHO_WEATHER_API_KEY", "from-prefix")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Berlin", cfg.Weather.DefaultCity)
	assert.Equal(t, 30*time.Minute, cfg.Cache.ResponseTTL)
	assert.Equal(t, "from-prefix", cfg.Weather.APIKey)
}

func TestLoadAPIKeyFallbacks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
embedding:
  provider: voyage
generation:
  provider: anthropic
`), 0644))
	t.Setenv("VOYAGE_API_KEY", "voy")
	t.Setenv("ANTHROPIC_API_KEY", "ant")
	t.Setenv("OPENWEATHER_API_KEY", "owm")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "voy", cfg.Embedding.APIKey)
	assert.Equal(t, "ant", cfg.Generation.APIKey)
	assert.Equal(t, "owm", cfg.Weather.APIKey)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache:\n  backend: memcached\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.backend")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"threshold above one", func(c *Config) { c.Classifier.Threshold = 1.2 }, "classifier.threshold"},
		{"unknown embedding provider", func(c *Config) { c.Embedding.Provider = "openai" }, "embedding.provider"},
		{"unknown generation provider", func(c *Config) { c.Generation.Provider = "llama" }, "generation.provider"},
		{"zero history", func(c *Config) { c.Generation.HistoryPairs = 0 }, "history_pairs"},
		{"redis without addr", func(c *Config) {
			c.Cache.Backend = "redis"
			c.Cache.Redis.Addr = ""
		}, "cache.redis.addr"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "log level"},
		{"reminders without schedule", func(c *Config) { c.Reminder.Schedule = "" }, "reminder.schedule"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Default()
	cfg.Weather.DefaultCity = "Lagos"
	cfg.Video.Headless = true
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Lagos", loaded.Weather.DefaultCity)
	assert.True(t, loaded.Video.Headless)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "x", "y.db"), ExpandPath("~/x/y.db"))
	assert.Equal(t, "/abs/path", ExpandPath("/abs/path"))
	assert.Equal(t, "", ExpandPath(""))
}
