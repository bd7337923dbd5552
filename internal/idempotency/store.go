// Package idempotency remembers the response produced for an idempotency key so
// a retried request replays it instead of repeating the side effect.
package idempotency

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyTemplate = "_storefront_idem_"

// Store keeps one value per key for a bounded time.
type Store interface {
	// Get returns the stored value, or ok=false when the key is unknown or expired.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// PutIfAbsent stores value unless the key already holds one, and returns
	// whichever value is stored after the call.
	PutIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) ([]byte, error)
	// Put overwrites the value for key.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// RedisStore implements Store with SETNX.
type RedisStore struct {
	cli *redis.Client
}

func NewRedisStore(cli *redis.Client) *RedisStore {
	return &RedisStore{cli: cli}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.cli.Get(ctx, keyTemplate+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

func (s *RedisStore) PutIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) ([]byte, error) {
	set, err := s.cli.SetNX(ctx, keyTemplate+key, value, ttl).Result()
	if err != nil {
		return nil, err
	}
	if set {
		return value, nil
	}
	existing, ok, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		// expired between SETNX and GET
		return value, nil
	}
	return existing, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.cli.Set(ctx, keyTemplate+key, value, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.cli.Del(ctx, keyTemplate+key).Err()
}

type memEntry struct {
	value   []byte
	expires time.Time
}

// MemoryStore is an in-process Store for tests and single-instance runs.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]memEntry{}, now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && !s.now().Before(e.expires) {
		delete(s.entries, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (s *MemoryStore) PutIfAbsent(_ context.Context, key string, value []byte, ttl time.Duration) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok && (e.expires.IsZero() || s.now().Before(e.expires)) {
		return e.value, nil
	}
	e := memEntry{value: value}
	if ttl > 0 {
		e.expires = s.now().Add(ttl)
	}
	s.entries[key] = e
	return value, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := memEntry{value: value}
	if ttl > 0 {
		e.expires = s.now().Add(ttl)
	}
	s.entries[key] = e
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
