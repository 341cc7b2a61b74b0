// Package session holds per-user conversation state. Every exchange on a
// session runs under that session's lock, so concurrent requests for the
// same user never interleave their history updates.
package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// DefaultPairs is how many user/assistant pairs the window keeps.
const DefaultPairs = 5

// Session is one conversation's sliding history window.
type Session struct {
	ID string

	mu     sync.Mutex
	pairs  int
	window []string
}

// New creates a session. An empty id gets a random one.
func New(id string, pairs int) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	if pairs <= 0 {
		pairs = DefaultPairs
	}
	return &Session{ID: id, pairs: pairs}
}

// Exchange calls fn with the window plus input, trimmed to the last
// pairs*2 entries, and on success appends input and reply. The lock is held
// for the whole exchange. When fn fails the window is left untouched, so it
// stays in user/assistant pairs.
func (s *Session) Exchange(ctx context.Context, input string, fn func(ctx context.Context, window []string) (string, error)) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := make([]string, 0, len(s.window)+1)
	view = append(view, s.window...)
	view = append(view, input)
	if limit := s.pairs * 2; len(view) > limit {
		view = view[len(view)-limit:]
	}

	reply, err := fn(ctx, view)
	if err != nil {
		return "", err
	}

	s.window = append(s.window, input, reply)
	s.trim()
	return reply, nil
}

// trim keeps the last pairs*2 entries. Caller holds mu.
func (s *Session) trim() {
	limit := s.pairs * 2
	if len(s.window) > limit {
		s.window = append([]string(nil), s.window[len(s.window)-limit:]...)
	}
}

// Window returns a copy of the current history, oldest first.
func (s *Session) Window() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.window))
	copy(out, s.window)
	return out
}

// Reset clears the history.
func (s *Session) Reset() {
	s.mu.Lock()
	s.window = nil
	s.mu.Unlock()
}

// Manager hands out sessions by id, creating them on first use.
type Manager struct {
	pairs int

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager whose sessions keep pairs exchanges.
func NewManager(pairs int) *Manager {
	return &Manager{pairs: pairs, sessions: make(map[string]*Session)}
}

// Get returns the session for id.
func (m *Manager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok {
		return s
	}
	s := New(id, m.pairs)
	m.sessions[s.ID] = s
	return s
}

// Drop forgets the session for id.
func (m *Manager) Drop(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
