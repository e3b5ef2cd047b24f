// Package idempotency remembers successful checkout responses by the
// client's Idempotency-Key so retried requests are answered without
// settling twice.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Header carries the client supplied key.
	Header = "Idempotency-Key"
	// ReplayHeader is set to "true" on replayed responses.
	ReplayHeader = "Idempotent-Replay"
	// DefaultTTL is how long responses are kept.
	DefaultTTL = 24 * time.Hour

	keyPrefix = "idempotency:"
)

// Key returns the trimmed Idempotency-Key of r, or "".
func Key(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(Header))
}

// Response is a stored HTTP response.
type Response struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// Store keeps responses by key.
type Store interface {
	// Lookup returns the response saved for key, if any.
	Lookup(ctx context.Context, key string) (Response, bool, error)
	// Save stores resp under key unless a response is already stored.
	Save(ctx context.Context, key string, resp Response) error
}

// RedisStore keeps responses in Redis.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore returns a Redis-backed store. ttl <= 0 means DefaultTTL.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

// Lookup implements Store.
func (s *RedisStore) Lookup(ctx context.Context, key string) (Response, bool, error) {
	raw, err := s.rdb.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Response{}, false, nil
	}
	if err != nil {
		return Response{}, false, fmt.Errorf("redis get: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Response{}, false, fmt.Errorf("decode stored response: %w", err)
	}
	return resp, true, nil
}

// Save implements Store. The first saved response for a key wins.
func (s *RedisStore) Save(ctx context.Context, key string, resp Response) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	if err := s.rdb.SetNX(ctx, keyPrefix+key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	return nil
}

type entry struct {
	resp    Response
	expires time.Time
}

// MemoryStore keeps responses in process.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore returns an in-process store. ttl <= 0 means DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{entries: make(map[string]entry), ttl: ttl, now: time.Now}
}

// Lookup implements Store.
func (s *MemoryStore) Lookup(_ context.Context, key string) (Response, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return Response{}, false, nil
	}
	if !s.now().Before(e.expires) {
		delete(s.entries, key)
		return Response{}, false, nil
	}
	return e.resp, true, nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, key string, resp Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.entries[key]; ok && now.Before(e.expires) {
		return nil
	}
	s.entries[key] = entry{resp: resp, expires: now.Add(s.ttl)}
	return nil
}
