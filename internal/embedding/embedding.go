// Package embedding provides text embedding backends used by the intent
// classifier's semantic stage.
package embedding

import (
	"context"
	"errors"
	"math"
)

// ErrNotConfigured is returned when a backend is missing credentials or
// endpoint settings.
var ErrNotConfigured = errors.New("embedding backend not configured")

// Embedder turns text into vectors. Implementations must be deterministic
// for identical input and safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// CosineSimilarity computes similarity between two vectors
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}
