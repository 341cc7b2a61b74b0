package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps entries in process memory.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    map[string]Entry
	defaultTTL time.Duration
	now        func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithDefaultTTL sets the TTL used when Set receives a non-positive one.
func WithDefaultTTL(ttl time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		if ttl > 0 {
			s.defaultTTL = ttl
		}
	}
}

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemory creates an empty in-memory store.
func NewMemory(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		entries:    make(map[string]Entry),
		defaultTTL: DefaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the live value for query.
func (s *MemoryStore) Get(_ context.Context, query string) (string, bool, error) {
	s.mu.RLock()
	e, ok := s.entries[Fingerprint(query)]
	s.mu.RUnlock()

	if !ok || e.Expired(s.now()) {
		return "", false, nil
	}
	return e.Value, true, nil
}

// Set stores value under query's fingerprint.
func (s *MemoryStore) Set(_ context.Context, query, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	fp := Fingerprint(query)

	s.mu.Lock()
	s.entries[fp] = Entry{
		Fingerprint: fp,
		Value:       value,
		CreatedAt:   s.now(),
		TTL:         ttl,
	}
	s.mu.Unlock()
	return nil
}

// Delete removes query's entry if present.
func (s *MemoryStore) Delete(_ context.Context, query string) error {
	s.mu.Lock()
	delete(s.entries, Fingerprint(query))
	s.mu.Unlock()
	return nil
}

// Clear removes every entry.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.entries = make(map[string]Entry)
	s.mu.Unlock()
	return nil
}

// Stats counts live entries and the bytes of their values.
func (s *MemoryStore) Stats(_ context.Context) (Stats, error) {
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var st Stats
	for _, e := range s.entries {
		if e.Expired(now) {
			continue
		}
		st.EntryCount++
		st.TotalBytes += int64(len(e.Value))
	}
	return st, nil
}

// Purge drops expired entries and returns how many were removed.
func (s *MemoryStore) Purge() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for fp, e := range s.entries {
		if e.Expired(now) {
			delete(s.entries, fp)
			n++
		}
	}
	return n
}
