// Package generation produces conversational replies from a window of
// alternating user and assistant turns.
package generation

import (
	"context"
	"errors"
	"strings"
)

// ErrNotConfigured is returned when no generation backend is available.
var ErrNotConfigured = errors.New("generation backend not configured")

// SystemPrompt frames every conversation.
const SystemPrompt = "You are CampusEcho, a friendly assistant for university students. " +
	"Answer briefly and conversationally in plain text."

// Generator turns a conversation window into a reply. The last entry of
// window is the newest user input; earlier entries alternate user and
// assistant turns ending with an assistant turn.
type Generator interface {
	Generate(ctx context.Context, window []string) (string, error)
}

// Role names a speaker in a Turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one attributed message.
type Turn struct {
	Role Role
	Text string
}

// Turns assigns roles to a window by walking back from the newest input,
// which is always the user's. A leading assistant turn is dropped so the
// result starts with the user, as chat APIs require.
func Turns(window []string) []Turn {
	turns := make([]Turn, len(window))
	role := RoleUser
	for i := len(window) - 1; i >= 0; i-- {
		turns[i] = Turn{Role: role, Text: window[i]}
		if role == RoleUser {
			role = RoleAssistant
		} else {
			role = RoleUser
		}
	}
	for len(turns) > 0 && turns[0].Role == RoleAssistant {
		turns = turns[1:]
	}
	return turns
}

// Disabled is the Generator used when nothing is configured.
type Disabled struct{}

// Generate always fails with ErrNotConfigured.
func (Disabled) Generate(context.Context, []string) (string, error) {
	return "", ErrNotConfigured
}

// clean strips whitespace and code fences some models wrap replies in.
func clean(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
