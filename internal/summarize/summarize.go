// Package summarize condenses long text through a generation backend,
// chunking input that is too long for one request.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/pbaille/campusecho/internal/generation"
)

const (
	DefaultMaxWords = 1024
	DefaultMinChars = 100

	// TooShort is returned in place of a summary for tiny inputs.
	TooShort = "Text is too short to summarize effectively."
)

// ErrNotReady is returned before Init has succeeded.
var ErrNotReady = errors.New("summarizer not initialized")

const prompt = "Summarize the following text in a short paragraph. " +
	"Keep names, dates and numbers. Reply with the summary only.\n\n"

// Summarizer is Uninitialized until Init binds a working generator.
type Summarizer struct {
	gen      generation.Generator
	maxWords int
	minChars int
	log      zerolog.Logger

	mu    sync.RWMutex
	ready bool
}

// Option configures a Summarizer.
type Option func(*Summarizer)

// WithMaxWords sets the chunk size in words.
func WithMaxWords(n int) Option {
	return func(s *Summarizer) {
		if n > 0 {
			s.maxWords = n
		}
	}
}

// WithMinChars sets the shortest input worth summarizing.
func WithMinChars(n int) Option {
	return func(s *Summarizer) {
		if n > 0 {
			s.minChars = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Summarizer) { s.log = log }
}

// New creates a Summarizer around gen.
func New(gen generation.Generator, opts ...Option) *Summarizer {
	s := &Summarizer{
		gen:      gen,
		maxWords: DefaultMaxWords,
		minChars: DefaultMinChars,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init marks the summarizer Ready when a generator is configured.
func (s *Summarizer) Init(ctx context.Context) error {
	if s.gen == nil {
		return generation.ErrNotConfigured
	}
	if _, disabled := s.gen.(generation.Disabled); disabled {
		return generation.ErrNotConfigured
	}

	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()
	s.log.Debug().Int("max_words", s.maxWords).Msg("summarizer ready")
	return nil
}

// Ready reports whether Init succeeded.
func (s *Summarizer) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Summarize condenses text. Inputs longer than one chunk are summarized
// per chunk; the joined chunk summaries are summarized once more when there
// are several and they exceed half a chunk.
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	if !s.Ready() {
		return "", ErrNotReady
	}
	text = strings.TrimSpace(text)
	if len(text) < s.minChars {
		return TooShort, nil
	}

	chunks := Chunk(text, s.maxWords)
	if len(chunks) == 1 {
		return s.one(ctx, chunks[0])
	}

	summaries := make([]string, 0, len(chunks))
	for i, c := range chunks {
		sum, err := s.one(ctx, c)
		if err != nil {
			return "", fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		summaries = append(summaries, sum)
	}

	combined := strings.Join(summaries, " ")
	if len(strings.Fields(combined)) > s.maxWords/2 {
		return s.one(ctx, combined)
	}
	return combined, nil
}

func (s *Summarizer) one(ctx context.Context, text string) (string, error) {
	out, err := s.gen.Generate(ctx, []string{prompt + text})
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("summarize: empty summary")
	}
	return out, nil
}

// Chunk splits text into pieces of at most maxWords words.
func Chunk(text string, maxWords int) []string {
	words := strings.Fields(text)
	if maxWords <= 0 || len(words) <= maxWords {
		return []string{strings.Join(words, " ")}
	}

	var chunks []string
	for start := 0; start < len(words); start += maxWords {
		end := min(start+maxWords, len(words))
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}

var (
	sentenceSplit = regexp.MustCompile(`[.!?]+`)
	hasDigit      = regexp.MustCompile(`\d`)
)

// KeyPoints picks up to n sentences, favoring early sentences, sentences of
// 10 to 30 words and sentences carrying numbers.
func KeyPoints(text string, n int) []string {
	var sentences []string
	for _, s := range sentenceSplit.Split(text, -1) {
		if s = strings.TrimSpace(s); len(s) > 20 {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) <= n {
		return sentences
	}

	type scored struct {
		score float64
		text  string
	}
	total := float64(len(sentences))
	ranked := make([]scored, len(sentences))
	for i, s := range sentences {
		score := (total - float64(i)) / total * 10
		if wc := len(strings.Fields(s)); wc >= 10 && wc <= 30 {
			score += 5
		}
		if hasDigit.MatchString(s) {
			score += 3
		}
		ranked[i] = scored{score, s}
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	out := make([]string, n)
	for i := range out {
		out[i] = ranked[i].text
	}
	return out
}
