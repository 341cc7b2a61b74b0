// Package cache memoizes assistant responses keyed by a normalized query
// fingerprint. Entries expire lazily: an entry past its TTL reads as absent
// but is not necessarily removed.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"
)

// DefaultTTL applies when Set is called without a positive TTL.
const DefaultTTL = 24 * time.Hour

// Store is a query-response cache. Implementations are safe for concurrent use.
type Store interface {
	Get(ctx context.Context, query string) (string, bool, error)
	Set(ctx context.Context, query, value string, ttl time.Duration) error
	Delete(ctx context.Context, query string) error
	Clear(ctx context.Context) error
	Stats(ctx context.Context) (Stats, error)
}

// Entry is one cached response.
type Entry struct {
	Fingerprint string
	Value       string
	CreatedAt   time.Time
	TTL         time.Duration
}

// Expired reports whether the entry is past its TTL at now.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.CreatedAt.Add(e.TTL))
}

// Stats summarizes live entries.
type Stats struct {
	EntryCount int   `json:"entryCount"`
	TotalBytes int64 `json:"totalBytes"`
}

// Fingerprint hashes the lower-cased, trimmed query. Queries differing only
// in case or surrounding whitespace share a slot.
func Fingerprint(query string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(query))))
	return hex.EncodeToString(sum[:])
}
