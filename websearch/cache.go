package websearch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	contractx "github.com/loanbotlabs/loanbot-gateway/gateway/contract"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const cacheKeyPrefix = "websearch:"

// Cache is the result-cache contract. RedisCache is the production
// implementation.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type RedisCache struct {
	client *redis.Client
}

var _ Cache = (*RedisCache)(nil)

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// CachingProvider serves repeated queries from the cache within the TTL.
// Cache failures degrade to a direct provider call; they never fail the
// search.
type CachingProvider struct {
	inner Provider
	cache Cache
	ttl   time.Duration
}

var _ Provider = (*CachingProvider)(nil)

func NewCachingProvider(inner Provider, cache Cache, ttl time.Duration) *CachingProvider {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachingProvider{inner: inner, cache: cache, ttl: ttl}
}

func (p *CachingProvider) Search(ctx context.Context, query string) ([]contractx.WebResult, error) {
	key := cacheKey(query)

	if raw, ok, err := p.cache.Get(ctx, key); err != nil {
		log.Warn().Err(err).Msg("websearch cache read failed")
	} else if ok {
		var cached []contractx.WebResult
		if uerr := json.Unmarshal(raw, &cached); uerr == nil {
			return cached, nil
		} else {
			log.Warn().Err(uerr).Msg("websearch cache entry corrupt, refetching")
		}
	}

	results, err := p.inner.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(results); err == nil {
		if err := p.cache.Set(ctx, key, raw, p.ttl); err != nil {
			log.Warn().Err(err).Msg("websearch cache write failed")
		}
	}
	return results, nil
}

func cacheKey(query string) string {
	digest := sha256.Sum256([]byte(query))
	return cacheKeyPrefix + hex.EncodeToString(digest[:])
}
