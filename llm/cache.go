package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"newsdigest/logger"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by a Cache when the key is absent
var ErrCacheMiss = errors.New("cache miss")

// Cache stores generated text by key
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// CachedGenerator serves repeated prompts from a cache. Cache failures are logged and bypassed.
type CachedGenerator struct {
	next  Generator
	cache Cache
}

func NewCachedGenerator(next Generator, cache Cache) *CachedGenerator {
	return &CachedGenerator{next: next, cache: cache}
}

func (c *CachedGenerator) Model() string { return c.next.Model() }

func (c *CachedGenerator) Generate(ctx context.Context, prompt string, temperature float32) (string, error) {
	key := CacheKey(c.next.Model(), temperature, prompt)

	cached, err := c.cache.Get(ctx, key)
	switch {
	case err == nil:
		logger.Log.Debugf("Generation cache hit for %s", c.next.Model())
		return cached, nil
	case !errors.Is(err, ErrCacheMiss):
		logger.Log.Warnf("Generation cache read failed: %v", err)
	}

	out, err := c.next.Generate(ctx, prompt, temperature)
	if err != nil {
		return "", err
	}
	if err := c.cache.Set(ctx, key, out); err != nil {
		logger.Log.Warnf("Generation cache write failed: %v", err)
	}
	return out, nil
}

// CacheKey is sha256(model|temperature|prompt)
func CacheKey(model string, temperature float32, prompt string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{'|'})
	h.Write([]byte(strconv.FormatFloat(float64(temperature), 'f', -1, 32)))
	h.Write([]byte{'|'})
	h.Write([]byte(prompt))
	return hex.EncodeToString(h.Sum(nil))
}

// RedisCache stores generations under prefix+key with a TTL
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisCache(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisCache{client: client, prefix: "newsdigest:gen:", ttl: ttl}, nil
}

func (r *RedisCache) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	return v, err
}

func (r *RedisCache) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, r.prefix+key, value, r.ttl).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
