package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/browser"
	"github.com/rs/zerolog"

	"github.com/pbaille/campusecho/internal/cache"
	"github.com/pbaille/campusecho/internal/config"
	"github.com/pbaille/campusecho/internal/dispatch"
	"github.com/pbaille/campusecho/internal/docparse"
	"github.com/pbaille/campusecho/internal/embedding"
	"github.com/pbaille/campusecho/internal/generation"
	"github.com/pbaille/campusecho/internal/handlers"
	"github.com/pbaille/campusecho/internal/intent"
	"github.com/pbaille/campusecho/internal/logging"
	"github.com/pbaille/campusecho/internal/session"
	"github.com/pbaille/campusecho/internal/store"
	"github.com/pbaille/campusecho/internal/summarize"
	"github.com/pbaille/campusecho/internal/weather"
)

// app holds every long-lived component of one CLI invocation.
type app struct {
	cfg        *config.Config
	log        zerolog.Logger
	store      *store.Store
	cache      cache.Store
	classifier *intent.Classifier
	summarizer *summarize.Summarizer
	sessions   *session.Manager
	dispatcher *dispatch.Dispatcher

	closers []io.Closer
}

type appOptions struct {
	// jsonLogs overrides logging.json, for serve.
	jsonLogs bool
	// headless forces video links instead of opening a browser.
	headless bool
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Storage.DBPath = config.ExpandPath(dbPath)
	}
	return cfg, nil
}

func openStore(cfg *config.Config) (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	return store.New(cfg.Storage.DBPath)
}

// getStore opens the database for the management commands, which need
// nothing else.
func getStore() (*store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return openStore(cfg)
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logCfg := cfg.Logging
	if opts.jsonLogs {
		logCfg.JSON = true
	}
	log, logCloser, err := logging.New(logCfg, os.Stderr)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, closers: []io.Closer{logCloser}}

	a.store, err = openStore(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, a.store)

	a.cache, err = buildCache(ctx, cfg.Cache, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	if c, ok := a.cache.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	clfOpts := []intent.Option{
		intent.WithThreshold(cfg.Classifier.Threshold),
		intent.WithSemanticTimeout(cfg.Classifier.SemanticTimeout),
		intent.WithLogger(log),
	}
	emb, err := buildEmbedder(ctx, cfg.Embedding)
	switch {
	case err == nil:
		clfOpts = append(clfOpts, intent.WithEmbedder(embedding.NewCached(emb, time.Hour)))
	case errors.Is(err, embedding.ErrNotConfigured):
		log.Debug().Msg("no embedding backend, classifier is keyword-only")
	default:
		log.Warn().Err(err).Msg("embedding backend unavailable, classifier is keyword-only")
	}
	a.classifier = intent.New(clfOpts...)
	if err == nil {
		if err := a.classifier.Init(ctx); err != nil {
			log.Warn().Err(err).Msg("semantic index not built, classifier is keyword-only")
		}
	}

	gen := buildGenerator(ctx, cfg.Generation, log)
	a.summarizer = summarize.New(gen,
		summarize.WithMaxWords(cfg.Summarize.MaxWordsPerChunk),
		summarize.WithMinChars(cfg.Summarize.MinChars),
		summarize.WithLogger(log),
	)
	if err := a.summarizer.Init(ctx); err != nil {
		log.Debug().Err(err).Msg("summarizer disabled")
	}

	a.sessions = session.NewManager(cfg.Generation.HistoryPairs)

	now := time.Now
	a.dispatcher, err = dispatch.New(dispatch.Config{
		Classifier: a.classifier,
		Handlers: dispatch.Handlers{
			Schedule: &handlers.Schedule{Store: a.store, Now: now},
			Deadline: &handlers.Deadline{Store: a.store, Now: now},
			Task:     &handlers.Task{Store: a.store, Now: now},
			Weather: &handlers.Weather{
				Source:      weather.New(cfg.Weather.APIKey, cfg.Weather.BaseURL, cfg.Weather.Timeout),
				DefaultCity: cfg.Weather.DefaultCity,
			},
			Calculate: handlers.Calculate{},
			Summarize: &handlers.Summarize{
				Summarizer: a.summarizer,
				Parse:      docparse.Parse,
				KeyPoints:  cfg.Summarize.KeyPoints,
			},
			VideoSearch:  &handlers.Video{Headless: opts.headless || cfg.Video.Headless},
			Joke:         handlers.Joke{},
			Conversation: &handlers.Conversation{Generator: gen},
		},
		Cache:          a.cache,
		History:        a.store,
		ResponseTTL:    cfg.Cache.ResponseTTL,
		HandlerTimeout: cfg.Generation.Timeout,
		Logger:         log,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i].Close()
	}
	a.closers = nil
}

func buildCache(ctx context.Context, cfg config.CacheConfig, log zerolog.Logger) (cache.Store, error) {
	if cfg.Backend != "redis" {
		return cache.NewMemory(cache.WithDefaultTTL(cfg.DefaultTTL)), nil
	}

	rs, err := cache.NewRedis(ctx, cache.RedisConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		Prefix:     cfg.Redis.Prefix,
		DefaultTTL: cfg.DefaultTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect redis cache: %w", err)
	}
	log.Debug().Str("addr", cfg.Redis.Addr).Msg("using redis cache")
	return rs, nil
}

func buildEmbedder(ctx context.Context, cfg config.EmbeddingConfig) (embedding.Embedder, error) {
	switch cfg.Provider {
	case "voyage":
		v, err := embedding.NewVoyage(cfg.APIKey, cfg.Model, cfg.Endpoint)
		if err != nil {
			return nil, err
		}
		return v, nil
	case "ollama":
		return embedding.NewOllama(cfg.Endpoint, cfg.Model), nil
	case "gemini":
		g, err := embedding.NewGemini(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, embedding.ErrNotConfigured
	}
}

// buildGenerator never fails: a backend that cannot be built leaves
// conversation and summarization disabled.
func buildGenerator(ctx context.Context, cfg config.GenerationConfig, log zerolog.Logger) generation.Generator {
	var (
		gen generation.Generator
		err error
	)
	switch cfg.Provider {
	case "anthropic":
		gen, err = generation.NewAnthropic(generation.AnthropicConfig{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
			Timeout:   cfg.Timeout,
		})
	case "gemini":
		gen, err = generation.NewGemini(ctx, cfg.APIKey, cfg.Model, cfg.MaxTokens)
	default:
		return generation.Disabled{}
	}
	if err != nil {
		log.Warn().Err(err).Str("provider", cfg.Provider).Msg("generation backend unavailable")
		return generation.Disabled{}
	}
	return gen
}

func init() {
	// Browser launch noise would interleave with the REPL.
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
}
