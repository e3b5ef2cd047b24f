// Package urlcache keeps signed image URLs in Redis so repeated detail
// requests reuse a URL that is still valid.
package urlcache

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/redis/go-redis/v9"

	"shopmart/pkg/blob"
	"shopmart/pkg/logger"
)

const keyPrefix = "signedurl:"

// Store wraps a blob.Store, caching SignedURL results for the configured
// ttl minus a safety margin. Redis failures fall through to the wrapped
// store.
type Store struct {
	blob.Store
	rdb *redis.Client
	ttl time.Duration
	log *logger.Logger
}

// New returns a caching store. Only SignedURL calls made with ttl are cached.
func New(store blob.Store, rdb *redis.Client, ttl time.Duration, log *logger.Logger) *Store {
	if ttl <= 0 {
		ttl = blob.DefaultURLTTL
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Store{Store: store, rdb: rdb, ttl: ttl, log: log}
}

// CacheFor is how long a URL signed for ttl is served from cache.
func CacheFor(ttl time.Duration) time.Duration {
	margin := ttl / 10
	if margin > 5*time.Minute {
		margin = 5 * time.Minute
	}
	return ttl - margin
}

// SignedURL returns a cached URL for key or signs and caches a new one.
func (s *Store) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = blob.DefaultURLTTL
	}
	if ttl != s.ttl {
		return s.Store.SignedURL(ctx, key, ttl)
	}

	cached, err := s.rdb.Get(ctx, keyPrefix+key).Result()
	switch {
	case err == nil:
		return cached, nil
	case !errors.Is(err, redis.Nil):
		s.log.Warn(ctx, "signed url cache read failed", "key", key, "error", err)
	}

	u, err := s.Store.SignedURL(ctx, key, ttl)
	if err != nil {
		return "", err
	}

	if err := s.rdb.Set(ctx, keyPrefix+key, u, CacheFor(ttl)).Err(); err != nil {
		s.log.Warn(ctx, "signed url cache write failed", "key", key, "error", err)
	}
	return u, nil
}

// Put uploads the image and drops any cached URL for it.
func (s *Store) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	if err := s.Store.Put(ctx, key, body, contentType); err != nil {
		return err
	}
	s.forget(ctx, key)
	return nil
}

// Delete removes the image and drops any cached URL for it.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.Store.Delete(ctx, key); err != nil {
		return err
	}
	s.forget(ctx, key)
	return nil
}

func (s *Store) forget(ctx context.Context, key string) {
	if err := s.rdb.Del(ctx, keyPrefix+key).Err(); err != nil {
		s.log.Warn(ctx, "signed url cache invalidation failed", "key", key, "error", err)
	}
}
