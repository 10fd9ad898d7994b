package deduplication

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"newsdigest/logger"
	"newsdigest/types"

	"github.com/redis/go-redis/v9"
)

const redisTimeout = 5 * time.Second

// BloomConfig configures the RedisBloom filter that remembers reported articles across runs
type BloomConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
	TTL      time.Duration
	// Capacity and ErrorRate are passed to BF.RESERVE when the key does not exist yet
	Capacity  int
	ErrorRate float64
}

// SeenStore is a set of article hashes
type SeenStore interface {
	Exists(ctx context.Context, hash string) (bool, error)
	Add(ctx context.Context, hash string) error
}

// RedisBloom is a SeenStore backed by RedisBloom BF.* commands
type RedisBloom struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisBloom connects to Redis and reserves the filter if it does not exist
func NewRedisBloom(ctx context.Context, cfg BloomConfig) (*RedisBloom, error) {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 100000
	}
	if cfg.ErrorRate <= 0 {
		cfg.ErrorRate = 0.001
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	exists, err := client.Exists(ctx, cfg.Key).Result()
	if err == nil && exists == 0 {
		// BF.ADD auto-creates the filter when reserve is unavailable, so failure here is tolerable
		if err := client.Do(ctx, "BF.RESERVE", cfg.Key, fmt.Sprintf("%f", cfg.ErrorRate), cfg.Capacity).Err(); err != nil {
			logger.Log.Warnf("BF.RESERVE %s failed: %v", cfg.Key, err)
		}
	}

	return &RedisBloom{client: client, key: cfg.Key, ttl: cfg.TTL}, nil
}

// Close closes the underlying Redis client
func (r *RedisBloom) Close() error {
	return r.client.Close()
}

// Exists checks if the hash is (probably) in the filter
func (r *RedisBloom) Exists(ctx context.Context, hash string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	res, err := r.client.Do(ctx, "BF.EXISTS", r.key, hash).Result()
	if err != nil {
		return false, err
	}

	switch v := res.(type) {
	case int64:
		return v == 1, nil
	case bool:
		return v, nil
	case string:
		return v == "1", nil
	default:
		return false, fmt.Errorf("unexpected BF.EXISTS response type %T: %v", res, res)
	}
}

// Add inserts the hash and slides the key's expiry forward
func (r *RedisBloom) Add(ctx context.Context, hash string) error {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	if err := r.client.Do(ctx, "BF.ADD", r.key, hash).Err(); err != nil {
		return err
	}
	if r.ttl > 0 {
		return r.client.Expire(ctx, r.key, r.ttl).Err()
	}
	return nil
}

// SeenFilter drops articles that earlier runs already reported on
type SeenFilter struct {
	store SeenStore
}

// NewSeenFilter wraps a SeenStore
func NewSeenFilter(store SeenStore) *SeenFilter {
	return &SeenFilter{store: store}
}

// Filter returns the articles not present in the store. Store errors keep the article.
func (f *SeenFilter) Filter(ctx context.Context, articles []*types.Article) []*types.Article {
	fresh := make([]*types.Article, 0, len(articles))
	skipped := 0
	for _, article := range articles {
		seen, err := f.store.Exists(ctx, NormalizeAndHash(article))
		if err != nil {
			logger.Log.Warnf("seen check failed for %s: %v", article.ID, err)
		}
		if err == nil && seen {
			skipped++
			continue
		}
		fresh = append(fresh, article)
	}
	if skipped > 0 {
		logger.Log.Infof("Skipped %d articles reported in earlier runs", skipped)
	}
	return fresh
}

// MarkReported records articles so later runs skip them
func (f *SeenFilter) MarkReported(ctx context.Context, articles []*types.Article) {
	for _, article := range articles {
		if err := f.store.Add(ctx, NormalizeAndHash(article)); err != nil {
			logger.Log.Warnf("failed to mark %s as seen: %v", article.ID, err)
		}
	}
}

// NormalizeAndHash returns sha256(normalizedLink + "|" + normalizedTitle) in hex. Tracking
// parameters, fragments, host case and trailing slashes do not change the hash.
func NormalizeAndHash(article *types.Article) string {
	combined := normalizeURL(article.Link) + "|" + normalizeTitle(article.Title)
	h := sha256.Sum256([]byte(combined))
	return hex.EncodeToString(h[:])
}

func normalizeTitle(t string) string {
	return strings.Join(strings.Fields(strings.ToLower(t)), " ")
}

func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return strings.ToLower(raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") || lk == "fbclid" || lk == "gclid" {
			q.Del(k)
		}
	}
	u.RawQuery = q.Encode()

	return strings.TrimRight(u.String(), "/")
}
