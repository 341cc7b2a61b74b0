// Package config loads campusecho settings from ~/.campusecho/config.yaml,
// with CAMPUSECHO_* environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. CAMPUSECHO_WEATHER_API_KEY.
const EnvPrefix = "CAMPUSECHO"

// Config holds all application configuration.
type Config struct {
	Storage    StorageConfig    `mapstructure:"storage" yaml:"storage"`
	Cache      CacheConfig      `mapstructure:"cache" yaml:"cache"`
	Classifier ClassifierConfig `mapstructure:"classifier" yaml:"classifier"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding" yaml:"embedding"`
	Generation GenerationConfig `mapstructure:"generation" yaml:"generation"`
	Weather    WeatherConfig    `mapstructure:"weather" yaml:"weather"`
	Summarize  SummarizeConfig  `mapstructure:"summarize" yaml:"summarize"`
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Reminder   ReminderConfig   `mapstructure:"reminder" yaml:"reminder"`
	Video      VideoConfig      `mapstructure:"video" yaml:"video"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
}

type StorageConfig struct {
	// DBPath is the sqlite database file.
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
}

// CacheConfig selects and tunes the response cache.
type CacheConfig struct {
	// Backend is "memory" or "redis".
	Backend     string        `mapstructure:"backend" yaml:"backend"`
	DefaultTTL  time.Duration `mapstructure:"default_ttl" yaml:"default_ttl"`
	ResponseTTL time.Duration `mapstructure:"response_ttl" yaml:"response_ttl"`
	Redis       RedisConfig   `mapstructure:"redis" yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
	Prefix   string `mapstructure:"prefix" yaml:"prefix"`
}

type ClassifierConfig struct {
	// Threshold is the minimum cosine similarity for a semantic match.
	Threshold       float64       `mapstructure:"threshold" yaml:"threshold"`
	SemanticTimeout time.Duration `mapstructure:"semantic_timeout" yaml:"semantic_timeout"`
}

// EmbeddingConfig selects the embedding backend used by the semantic
// classifier stage. Provider "none" leaves the classifier keyword-only.
type EmbeddingConfig struct {
	Provider string `mapstructure:"provider" yaml:"provider"`
	Model    string `mapstructure:"model" yaml:"model"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	APIKey   string `mapstructure:"api_key" yaml:"api_key"`
}

// GenerationConfig selects the text generator behind conversation and
// summarization.
type GenerationConfig struct {
	Provider     string        `mapstructure:"provider" yaml:"provider"`
	Model        string        `mapstructure:"model" yaml:"model"`
	APIKey       string        `mapstructure:"api_key" yaml:"api_key"`
	MaxTokens    int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	HistoryPairs int           `mapstructure:"history_pairs" yaml:"history_pairs"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type WeatherConfig struct {
	APIKey      string        `mapstructure:"api_key" yaml:"api_key"`
	BaseURL     string        `mapstructure:"base_url" yaml:"base_url"`
	DefaultCity string        `mapstructure:"default_city" yaml:"default_city"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type SummarizeConfig struct {
	MaxWordsPerChunk int `mapstructure:"max_words_per_chunk" yaml:"max_words_per_chunk"`
	MinChars         int `mapstructure:"min_chars" yaml:"min_chars"`
	KeyPoints        int `mapstructure:"key_points" yaml:"key_points"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// ReminderConfig drives the background reminder loop of the chat REPL.
type ReminderConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Schedule string `mapstructure:"schedule" yaml:"schedule"`
	// LookaheadDays is how far ahead deadlines count as approaching.
	LookaheadDays int `mapstructure:"lookahead_days" yaml:"lookahead_days"`
}

type VideoConfig struct {
	// Headless returns links instead of opening a browser.
	Headless bool `mapstructure:"headless" yaml:"headless"`
}

// LoggingConfig contains configuration for application logging.
type LoggingConfig struct {
	// Level is "debug", "info", "warn" or "error".
	Level string `mapstructure:"level" yaml:"level"`
	// JSON switches the console sink from human output to JSON lines.
	JSON bool `mapstructure:"json" yaml:"json"`
	// File, when set, receives JSON lines in addition to the console.
	File string `mapstructure:"file" yaml:"file"`
}

// Default returns the configuration written on first run.
func Default() *Config {
	dir := DataDir()
	return &Config{
		Storage: StorageConfig{DBPath: filepath.Join(dir, "campusecho.db")},
		Cache: CacheConfig{
			Backend:     "memory",
			DefaultTTL:  time.Hour,
			ResponseTTL: time.Hour,
			Redis:       RedisConfig{Addr: "localhost:6379", Prefix: "campusecho:cache:"},
		},
		Classifier: ClassifierConfig{Threshold: 0.3, SemanticTimeout: 5 * time.Second},
		Embedding:  EmbeddingConfig{Provider: "none"},
		Generation: GenerationConfig{
			Provider:     "none",
			MaxTokens:    1024,
			HistoryPairs: 5,
			Timeout:      60 * time.Second,
		},
		Weather: WeatherConfig{
			BaseURL:     "https://api.openweathermap.org/data/2.5/weather",
			DefaultCity: "London",
			Timeout:     10 * time.Second,
		},
		Summarize: SummarizeConfig{MaxWordsPerChunk: 1024, MinChars: 100, KeyPoints: 5},
		Server:    ServerConfig{Addr: "127.0.0.1:8001"},
		Reminder:  ReminderConfig{Enabled: true, Schedule: "@every 1m", LookaheadDays: 7},
		Logging:   LoggingConfig{Level: "info"},
	}
}

// DataDir is the campusecho home directory (~/.campusecho).
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".campusecho"
	}
	return filepath.Join(home, ".campusecho")
}

// DefaultPath is the config file location used when none is given.
func DefaultPath() string {
	return filepath.Join(DataDir(), "config.yaml")
}

// Load reads configuration from path and merges environment variables. A
// missing file is created with default values. Keys absent from the file
// keep their defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	path = ExpandPath(path)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := writeConfigFile(path, Default()); err != nil {
			return nil, fmt.Errorf("write default config: %w", err)
		}
	}

	defaults, err := yaml.Marshal(Default())
	if err != nil {
		return nil, fmt.Errorf("marshal defaults: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	// Seeding viper with every default key lets AutomaticEnv override keys
	// the file leaves out.
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, fmt.Errorf("read defaults: %w", err)
	}
	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.MergeInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Storage.DBPath = ExpandPath(cfg.Storage.DBPath)
	cfg.Logging.File = ExpandPath(cfg.Logging.File)
	cfg.applyKeyFallbacks()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyKeyFallbacks fills empty API keys from the providers' conventional
// environment variables.
func (c *Config) applyKeyFallbacks() {
	fill := func(dst *string, env string) {
		if *dst == "" {
			*dst = os.Getenv(env)
		}
	}

	switch c.Embedding.Provider {
	case "voyage":
		fill(&c.Embedding.APIKey, "VOYAGE_API_KEY")
	case "gemini":
		fill(&c.Embedding.APIKey, "GEMINI_API_KEY")
	}
	switch c.Generation.Provider {
	case "anthropic":
		fill(&c.Generation.APIKey, "ANTHROPIC_API_KEY")
	case "gemini":
		fill(&c.Generation.APIKey, "GEMINI_API_KEY")
	}
	fill(&c.Weather.APIKey, "OPENWEATHER_API_KEY")
}

// Validate checks the configuration for values the components cannot run with.
func (c *Config) Validate() error {
	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path cannot be empty")
	}

	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid cache.backend %q, must be one of: memory, redis", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("cache.redis.addr is required for the redis backend")
	}
	if c.Cache.DefaultTTL <= 0 || c.Cache.ResponseTTL <= 0 {
		return fmt.Errorf("cache ttls must be positive")
	}

	if c.Classifier.Threshold < 0 || c.Classifier.Threshold > 1 {
		return fmt.Errorf("classifier.threshold must be between 0 and 1")
	}
	if c.Classifier.SemanticTimeout <= 0 {
		return fmt.Errorf("classifier.semantic_timeout must be positive")
	}

	switch c.Embedding.Provider {
	case "none", "voyage", "ollama", "gemini":
	default:
		return fmt.Errorf("invalid embedding.provider %q, must be one of: none, voyage, ollama, gemini", c.Embedding.Provider)
	}
	switch c.Generation.Provider {
	case "none", "anthropic", "gemini":
	default:
		return fmt.Errorf("invalid generation.provider %q, must be one of: none, anthropic, gemini", c.Generation.Provider)
	}
	if c.Generation.HistoryPairs < 1 {
		return fmt.Errorf("generation.history_pairs must be at least 1")
	}

	if c.Summarize.MaxWordsPerChunk < 1 {
		return fmt.Errorf("summarize.max_words_per_chunk must be at least 1")
	}
	if c.Summarize.KeyPoints < 0 {
		return fmt.Errorf("summarize.key_points cannot be negative")
	}

	if c.Reminder.Enabled && c.Reminder.Schedule == "" {
		return fmt.Errorf("reminder.schedule is required when reminders are enabled")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", c.Logging.Level)
	}
	return nil
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	path = ExpandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return writeConfigFile(path, c)
}

func writeConfigFile(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
