package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds configuration for the Redis backend
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	Prefix     string
	DefaultTTL time.Duration
}

// RedisStore keeps entries in Redis; expiry is enforced server-side.
type RedisStore struct {
	rdb        *redis.Client
	prefix     string
	defaultTTL time.Duration
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return newRedisStore(rdb, cfg), nil
}

func newRedisStore(rdb *redis.Client, cfg RedisConfig) *RedisStore {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "campusecho:cache:"
	}
	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, prefix: prefix, defaultTTL: ttl}
}

func (s *RedisStore) key(query string) string {
	return s.prefix + Fingerprint(query)
}

// Get returns the live value for query.
func (s *RedisStore) Get(ctx context.Context, query string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, s.key(query)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return v, true, nil
}

// Set stores value with the given TTL, or the default TTL when ttl <= 0.
func (s *RedisStore) Set(ctx context.Context, query, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	if err := s.rdb.Set(ctx, s.key(query), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes query's entry.
func (s *RedisStore) Delete(ctx context.Context, query string) error {
	if err := s.rdb.Del(ctx, s.key(query)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Clear removes every key under the store's prefix.
func (s *RedisStore) Clear(ctx context.Context) error {
	keys, err := s.keys(ctx)
	if err != nil {
		return err
	}
	for start := 0; start < len(keys); start += 500 {
		end := min(start+500, len(keys))
		if err := s.rdb.Del(ctx, keys[start:end]...).Err(); err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
	}
	return nil
}

// Stats counts keys under the prefix and sums their value lengths.
func (s *RedisStore) Stats(ctx context.Context) (Stats, error) {
	keys, err := s.keys(ctx)
	if err != nil {
		return Stats{}, err
	}

	pipe := s.rdb.Pipeline()
	lens := make([]*redis.IntCmd, len(keys))
	exists := make([]*redis.IntCmd, len(keys))
	for i, k := range keys {
		exists[i] = pipe.Exists(ctx, k)
		lens[i] = pipe.StrLen(ctx, k)
	}
	if len(keys) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return Stats{}, fmt.Errorf("redis stats: %w", err)
		}
	}

	var st Stats
	for i, cmd := range lens {
		// Keys that expired between SCAN and the pipeline no longer exist
		if exists[i].Val() == 0 {
			continue
		}
		st.EntryCount++
		st.TotalBytes += cmd.Val()
	}
	return st, nil
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func (s *RedisStore) keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.rdb.Scan(ctx, 0, s.prefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return keys, nil
}
