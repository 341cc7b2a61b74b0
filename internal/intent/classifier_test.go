package intent

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/pbaille/campusecho/internal/domain"
	"github.com/pbaille/campusecho/internal/embedding"
)

func TestMain(m *testing.M) {
	// genai pulls in opencensus, whose stats worker starts in init.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

// ============================================================================
// Test doubles
// ============================================================================

// tableEmbedder returns fixed vectors per text and a default for the rest.
type tableEmbedder struct {
	vectors  map[string][]float64
	fallback []float64
	embedErr error
	batchErr error
	block    bool
	calls    atomic.Int64
}

func (e *tableEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	e.calls.Add(1)
	if e.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if e.embedErr != nil {
		return nil, e.embedErr
	}
	return e.lookup(text), nil
}

func (e *tableEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if e.batchErr != nil {
		return nil, e.batchErr
	}
	out := make([][]float64, len(texts))
	for i, text := range texts {
		out[i] = e.lookup(text)
	}
	return out, nil
}

func (e *tableEmbedder) lookup(text string) []float64 {
	if v, ok := e.vectors[text]; ok {
		return v
	}
	return e.fallback
}

var _ embedding.Embedder = (*tableEmbedder)(nil)

func readyClassifier(t *testing.T, e embedding.Embedder, opts ...Option) *Classifier {
	t.Helper()
	c := New(append([]Option{WithEmbedder(e)}, opts...)...)
	require.NoError(t, c.Init(context.Background()))
	require.True(t, c.Ready())
	return c
}

// ============================================================================
// Keyword stage
// ============================================================================

func TestClassifyKeywords(t *testing.T) {
	c := New()
	ctx := context.Background()

	tests := []struct {
		input string
		want  domain.Intent
	}{
		{"What's my schedule for Monday?", domain.IntentSchedule},
		{"Show deadlines", domain.IntentDeadline},
		{"remind me to submit the assignment", domain.IntentDeadline},
		{"Add task: buy milk", domain.IntentTask},
		{"What's the weather in London?", domain.IntentWeather},
		{"Calculate 25 + 17", domain.IntentCalculate},
		{"summarize document notes.txt", domain.IntentSummarize},
		{"search youtube for cats", domain.IntentVideoSearch},
		{"play video lofi", domain.IntentVideoSearch},
		{"Tell me a joke", domain.IntentJoke},
		{"hello there", domain.IntentConversation},
		{"WEATHER FORECAST", domain.IntentWeather},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			d := c.Decide(ctx, tt.input)
			assert.Equal(t, tt.want, d.Intent)
			assert.Equal(t, StageKeyword, d.Stage)
		})
	}
}

func TestClassifyEveryKeywordRoutesToItsRule(t *testing.T) {
	c := New()
	ctx := context.Background()

	for i, rule := range DefaultRules {
		for _, kw := range rule.Keywords {
			want := rule.Intent
			// An earlier rule may own a substring of this keyword
			for _, earlier := range DefaultRules[:i] {
				for _, ekw := range earlier.Keywords {
					if strings.Contains(kw, ekw) {
						want = earlier.Intent
					}
				}
			}
			if want != rule.Intent {
				continue
			}
			assert.Equal(t, rule.Intent, c.Classify(ctx, "  "+kw+"  "), kw)
		}
	}
}

func TestClassifyFirstRuleWins(t *testing.T) {
	c := New(WithRules([]Rule{
		{domain.IntentJoke, []string{"funny"}},
		{domain.IntentWeather, []string{"weather"}},
	}))

	d := c.Decide(context.Background(), "funny weather today")
	assert.Equal(t, domain.IntentJoke, d.Intent)
	assert.Equal(t, "funny", d.Keyword)
}

// ============================================================================
// Semantic stage
// ============================================================================

func semanticEmbedder() *tableEmbedder {
	return &tableEmbedder{
		vectors: map[string][]float64{
			"is it cold outside": {1, 0, 0},
			"temperature":        {0.9, 0.1, 0},
			"zzz":                {0, 1, 0},
		},
		fallback: []float64{0, 0, 1},
	}
}

func TestClassifySemanticMatch(t *testing.T) {
	c := readyClassifier(t, semanticEmbedder())

	d := c.Decide(context.Background(), "is it cold outside")
	assert.Equal(t, domain.IntentWeather, d.Intent)
	assert.Equal(t, StageSemantic, d.Stage)
	assert.Greater(t, d.Similarity, DefaultThreshold)
}

func TestClassifySemanticBelowThreshold(t *testing.T) {
	c := readyClassifier(t, semanticEmbedder())

	d := c.Decide(context.Background(), "zzz")
	assert.Equal(t, domain.IntentConversation, d.Intent)
	assert.Equal(t, StageFallback, d.Stage)
	assert.Less(t, d.Similarity, DefaultThreshold)
}

func TestClassifySemanticAtThresholdIsRejected(t *testing.T) {
	e := &tableEmbedder{
		vectors:  map[string][]float64{"qqq": {1, 0}},
		fallback: []float64{0, 1},
	}
	rules := []Rule{{domain.IntentJoke, []string{"kw"}}}
	e.vectors["kw"] = []float64{1, 0}

	c := readyClassifier(t, e, WithRules(rules), WithThreshold(1))
	assert.Equal(t, domain.IntentConversation, c.Classify(context.Background(), "qqq"))
}

func TestClassifySemanticTieKeepsFirstRule(t *testing.T) {
	e := &tableEmbedder{
		vectors: map[string][]float64{
			"qqq":   {1, 0},
			"first": {1, 0},
			"other": {1, 0},
		},
		fallback: []float64{0, 1},
	}
	rules := []Rule{
		{domain.IntentTask, []string{"first"}},
		{domain.IntentJoke, []string{"other"}},
	}

	c := readyClassifier(t, e, WithRules(rules))
	assert.Equal(t, domain.IntentTask, c.Classify(context.Background(), "qqq"))
}

func TestClassifyFailsClosed(t *testing.T) {
	ctx := context.Background()

	t.Run("no embedder", func(t *testing.T) {
		c := New()
		require.ErrorIs(t, c.Init(ctx), embedding.ErrNotConfigured)
		assert.Equal(t, domain.IntentConversation, c.Classify(ctx, "is it cold outside"))
	})

	t.Run("not initialized", func(t *testing.T) {
		e := semanticEmbedder()
		c := New(WithEmbedder(e))
		assert.False(t, c.Ready())
		assert.Equal(t, domain.IntentConversation, c.Classify(ctx, "is it cold outside"))
		assert.Zero(t, e.calls.Load())
	})

	t.Run("init fails", func(t *testing.T) {
		e := semanticEmbedder()
		e.batchErr = errors.New("model offline")
		c := New(WithEmbedder(e))
		assert.Error(t, c.Init(ctx))
		assert.False(t, c.Ready())
		assert.Equal(t, domain.IntentConversation, c.Classify(ctx, "is it cold outside"))
	})

	t.Run("embed fails", func(t *testing.T) {
		e := semanticEmbedder()
		c := readyClassifier(t, e)
		e.embedErr = errors.New("connection refused")
		d := c.Decide(ctx, "is it cold outside")
		assert.Equal(t, domain.IntentConversation, d.Intent)
		assert.Equal(t, StageFallback, d.Stage)
	})

	t.Run("embed times out", func(t *testing.T) {
		e := semanticEmbedder()
		c := readyClassifier(t, e, WithSemanticTimeout(20*time.Millisecond))
		e.block = true

		start := time.Now()
		assert.Equal(t, domain.IntentConversation, c.Classify(ctx, "is it cold outside"))
		assert.Less(t, time.Since(start), 2*time.Second)
	})
}

// ============================================================================
// Document scoring
// ============================================================================

func TestScoreDocumentUsesMean(t *testing.T) {
	e := &tableEmbedder{
		vectors: map[string][]float64{
			"doc":   {1, 0},
			"alpha": {1, 0},
			"beta":  {0, 1},
			"gamma": {1, 1},
		},
	}
	rules := []Rule{
		{domain.IntentSchedule, []string{"alpha", "beta"}},
		{domain.IntentTask, []string{"gamma"}},
	}
	c := readyClassifier(t, e, WithRules(rules))
	ctx := context.Background()

	scores, err := c.ScoreDocument(ctx, "doc")
	require.NoError(t, err)
	assert.Len(t, scores, 2)
	assert.InDelta(t, 0.5, scores[domain.IntentSchedule], 1e-9)
	assert.InDelta(t, 0.7071, scores[domain.IntentTask], 1e-4)

	// Single-utterance routing takes the max instead, so schedule wins here
	assert.Equal(t, domain.IntentSchedule, c.Classify(ctx, "doc"))
}

func TestScoreDocumentNotReady(t *testing.T) {
	c := New(WithEmbedder(semanticEmbedder()))
	_, err := c.ScoreDocument(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrNotReady)
}
