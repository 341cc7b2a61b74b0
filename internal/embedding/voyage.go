package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const voyageAPI = "https://api.voyageai.com/v1/embeddings"

// Voyage generates embeddings via Voyage AI
type Voyage struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewVoyage creates a Voyage embedder. An empty endpoint uses the public API.
func NewVoyage(apiKey, model, endpoint string) (*Voyage, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("voyage: %w", ErrNotConfigured)
	}
	if model == "" {
		model = "voyage-3-lite"
	}
	if endpoint == "" {
		endpoint = voyageAPI
	}

	return &Voyage{
		apiKey:   apiKey,
		model:    model,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Embed generates an embedding vector for the given text
func (v *Voyage) Embed(ctx context.Context, text string) ([]float64, error) {
	vectors, err := v.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding response")
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one request
func (v *Voyage) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	jsonBody, err := json.Marshal(voyageRequest{
		Input: texts,
		Model: v.model,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+v.apiKey)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("api error (status %d): %s", resp.StatusCode, string(body))
	}

	var apiResp voyageResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if len(apiResp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(apiResp.Data))
	}

	// Results carry an index; do not trust response order
	vectors := make([][]float64, len(texts))
	for i, d := range apiResp.Data {
		idx := i
		if d.Index != nil {
			idx = *d.Index
		}
		if idx < 0 || idx >= len(vectors) {
			return nil, fmt.Errorf("embedding index %d out of range", idx)
		}
		vectors[idx] = d.Embedding
	}

	return vectors, nil
}

type voyageRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type voyageResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     *int      `json:"index,omitempty"`
	} `json:"data"`
}
