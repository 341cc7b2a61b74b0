package embedding

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// cacheSize bounds how many vectors Cached keeps.
const cacheSize = 4096

// Cached memoizes vectors from another Embedder for a fixed TTL, evicting
// the least recently used vectors beyond cacheSize.
type Cached struct {
	inner Embedder
	ttl   time.Duration
	now   func() time.Time

	entries *lru.Cache[string, cachedVector]

	mu     sync.Mutex
	hits   int64
	misses int64
}

type cachedVector struct {
	vector    []float64
	expiresAt time.Time
}

// NewCached wraps inner. A non-positive ttl keeps vectors for an hour.
func NewCached(inner Embedder, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = time.Hour
	}
	// lru.New only fails for a non-positive size
	entries, _ := lru.New[string, cachedVector](cacheSize)
	return &Cached{
		inner:   inner,
		ttl:     ttl,
		now:     time.Now,
		entries: entries,
	}
}

// Embed returns the cached vector for text or computes and stores it.
func (c *Cached) Embed(ctx context.Context, text string) ([]float64, error) {
	if v, ok := c.lookup(text); ok {
		return v, nil
	}

	v, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.store(text, v)
	return v, nil
}

// EmbedBatch only sends the texts that are not cached to the inner embedder.
func (c *Cached) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	var missing []string
	var missingIdx []int

	for i, text := range texts {
		if v, ok := c.lookup(text); ok {
			out[i] = v
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return out, nil
	}

	vectors, err := c.inner.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missing) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(missing), len(vectors))
	}
	for j, v := range vectors {
		out[missingIdx[j]] = v
		c.store(missing[j], v)
	}
	return out, nil
}

// Stats returns hit and miss counters.
func (c *Cached) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *Cached) lookup(text string) ([]float64, bool) {
	e, ok := c.entries.Get(text)
	if ok && c.now().After(e.expiresAt) {
		c.entries.Remove(text)
		ok = false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	return e.vector, true
}

func (c *Cached) store(text string, v []float64) {
	c.entries.Add(text, cachedVector{vector: v, expiresAt: c.now().Add(c.ttl)})
}
