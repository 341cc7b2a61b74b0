package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurns(t *testing.T) {
	tests := []struct {
		name   string
		window []string
		want   []Turn
	}{
		{
			name:   "single input",
			window: []string{"hi"},
			want:   []Turn{{RoleUser, "hi"}},
		},
		{
			name:   "full pairs",
			window: []string{"hi", "hello!", "how are you"},
			want:   []Turn{{RoleUser, "hi"}, {RoleAssistant, "hello!"}, {RoleUser, "how are you"}},
		},
		{
			name:   "leading assistant dropped",
			window: []string{"hello!", "how are you"},
			want:   []Turn{{RoleUser, "how are you"}},
		},
		{
			name:   "empty",
			window: nil,
			want:   []Turn{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Turns(tt.window))
		})
	}
}

func TestAnthropicGenerate(t *testing.T) {
	var got apiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"content":[{"type":"text","text":"  Doing well, thanks! "}]}`))
	}))
	defer srv.Close()

	a, err := NewAnthropic(AnthropicConfig{APIKey: "test-key", Endpoint: srv.URL})
	require.NoError(t, err)

	reply, err := a.Generate(context.Background(), []string{"hi", "hello!", "how are you"})
	require.NoError(t, err)
	assert.Equal(t, "Doing well, thanks!", reply)

	assert.Equal(t, SystemPrompt, got.System)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "assistant", got.Messages[1].Role)
	assert.Equal(t, "how are you", got.Messages[2].Content)
}

func TestAnthropicErrors(t *testing.T) {
	_, err := NewAnthropic(AnthropicConfig{})
	assert.ErrorIs(t, err, ErrNotConfigured)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"slow down"}}`))
	}))
	defer srv.Close()

	a, err := NewAnthropic(AnthropicConfig{APIKey: "k", Endpoint: srv.URL})
	require.NoError(t, err)

	_, err = a.Generate(context.Background(), []string{"hi"})
	assert.ErrorContains(t, err, "status 429")

	_, err = a.Generate(context.Background(), nil)
	assert.Error(t, err)
}

func TestDisabled(t *testing.T) {
	_, err := Disabled{}.Generate(context.Background(), []string{"hi"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
