// Package intent maps free-text utterances to a domain.Intent and pulls
// structured entities out of them.
package intent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pbaille/campusecho/internal/domain"
	"github.com/pbaille/campusecho/internal/embedding"
)

const (
	// DefaultThreshold is the similarity a semantic match must exceed.
	DefaultThreshold = 0.3

	// DefaultSemanticTimeout bounds one semantic classification.
	DefaultSemanticTimeout = 5 * time.Second

	// FallbackIntent is returned whenever nothing better is known.
	FallbackIntent = domain.IntentConversation
)

// ErrNotReady is returned by operations that need the keyword index before
// Init has succeeded.
var ErrNotReady = errors.New("intent classifier not initialized")

// Stage records which part of the classifier produced a decision.
type Stage string

const (
	StageKeyword  Stage = "keyword"
	StageSemantic Stage = "semantic"
	StageFallback Stage = "fallback"
)

// Decision is a classification with its provenance.
type Decision struct {
	Intent     domain.Intent
	Stage      Stage
	Keyword    string
	Similarity float64
}

type state int

const (
	stateUninitialized state = iota
	stateReady
)

// Classifier is a two-stage intent classifier: ordered keyword matching,
// then embedding similarity against the keyword sets.
type Classifier struct {
	rules     []Rule
	embedder  embedding.Embedder
	threshold float64
	timeout   time.Duration
	log       zerolog.Logger

	mu    sync.RWMutex
	state state
	index [][][]float64 // rule -> keyword -> vector
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithEmbedder enables the semantic stage.
func WithEmbedder(e embedding.Embedder) Option {
	return func(c *Classifier) {
		c.embedder = e
	}
}

// WithThreshold overrides the semantic acceptance threshold.
func WithThreshold(threshold float64) Option {
	return func(c *Classifier) {
		c.threshold = threshold
	}
}

// WithSemanticTimeout bounds each semantic classification.
func WithSemanticTimeout(d time.Duration) Option {
	return func(c *Classifier) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRules replaces the routing table.
func WithRules(rules []Rule) Option {
	return func(c *Classifier) {
		c.rules = rules
	}
}

// WithLogger sets the logger used for degraded-path warnings.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Classifier) {
		c.log = log
	}
}

// New creates a Classifier. Without an embedder, or before Init, every
// utterance that misses the keyword stage resolves to FallbackIntent.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		rules:     DefaultRules,
		threshold: DefaultThreshold,
		timeout:   DefaultSemanticTimeout,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Init embeds every keyword set and moves the classifier to the ready
// state. It may be called again to rebuild the index.
func (c *Classifier) Init(ctx context.Context) error {
	if c.embedder == nil {
		return fmt.Errorf("init classifier: %w", embedding.ErrNotConfigured)
	}

	index := make([][][]float64, len(c.rules))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, rule := range c.rules {
		g.Go(func() error {
			vectors, err := c.embedder.EmbedBatch(gctx, rule.Keywords)
			if err != nil {
				return fmt.Errorf("embed %s keywords: %w", rule.Intent, err)
			}
			if len(vectors) != len(rule.Keywords) {
				return fmt.Errorf("embed %s keywords: got %d vectors for %d keywords",
					rule.Intent, len(vectors), len(rule.Keywords))
			}
			index[i] = vectors
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("init classifier: %w", err)
	}

	c.mu.Lock()
	c.index = index
	c.state = stateReady
	c.mu.Unlock()
	return nil
}

// Ready reports whether the semantic stage is available.
func (c *Classifier) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state == stateReady
}

// Classify returns the intent for text. It never fails.
func (c *Classifier) Classify(ctx context.Context, text string) domain.Intent {
	return c.Decide(ctx, text).Intent
}

// Decide classifies text and reports which stage decided.
func (c *Classifier) Decide(ctx context.Context, text string) Decision {
	if d, ok := c.matchKeyword(text); ok {
		return d
	}
	return c.matchSemantic(ctx, text)
}

func (c *Classifier) matchKeyword(text string) (Decision, bool) {
	lower := strings.ToLower(text)
	for _, rule := range c.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				return Decision{Intent: rule.Intent, Stage: StageKeyword, Keyword: kw, Similarity: 1}, true
			}
		}
	}
	return Decision{}, false
}

func (c *Classifier) matchSemantic(ctx context.Context, text string) Decision {
	fallback := Decision{Intent: FallbackIntent, Stage: StageFallback}

	c.mu.RLock()
	index, ready := c.index, c.state == stateReady
	c.mu.RUnlock()
	if !ready || strings.TrimSpace(text) == "" {
		return fallback
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	vec, err := c.embedder.Embed(ctx, text)
	if err != nil {
		c.log.Warn().Err(err).Msg("semantic classification unavailable")
		return fallback
	}

	best := Decision{Intent: FallbackIntent, Similarity: -1}
	for i, rule := range c.rules {
		sim := maxSimilarity(vec, index[i])
		// Strict comparison keeps the earlier rule on ties
		if sim > best.Similarity {
			best = Decision{Intent: rule.Intent, Stage: StageSemantic, Similarity: sim}
		}
	}

	if best.Similarity > c.threshold {
		return best
	}
	fallback.Similarity = best.Similarity
	return fallback
}

// ScoreDocument returns, for every intent, the mean similarity between the
// document and that intent's keywords. It is meant for analysis, not for
// routing a single utterance.
func (c *Classifier) ScoreDocument(ctx context.Context, text string) (map[domain.Intent]float64, error) {
	c.mu.RLock()
	index, ready := c.index, c.state == stateReady
	c.mu.RUnlock()
	if !ready {
		return nil, ErrNotReady
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	vec, err := c.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed document: %w", err)
	}

	scores := make(map[domain.Intent]float64, len(c.rules))
	for i, rule := range c.rules {
		scores[rule.Intent] = meanSimilarity(vec, index[i])
	}
	return scores, nil
}

func maxSimilarity(vec []float64, keywords [][]float64) float64 {
	best := -1.0
	for _, kw := range keywords {
		if s := embedding.CosineSimilarity(vec, kw); s > best {
			best = s
		}
	}
	return best
}

func meanSimilarity(vec []float64, keywords [][]float64) float64 {
	if len(keywords) == 0 {
		return 0
	}
	var sum float64
	for _, kw := range keywords {
		sum += embedding.CosineSimilarity(vec, kw)
	}
	return sum / float64(len(keywords))
}
