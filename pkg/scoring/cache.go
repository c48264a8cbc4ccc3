package scoring

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// CacheKey identifies one score by record kind and CRM id.
type CacheKey struct {
	Kind     string
	RecordID string
}

func (k CacheKey) String() string {
	return fmt.Sprintf("score:%s:%s", k.Kind, k.RecordID)
}

type ScoreCache interface {
	Get(ctx context.Context, key CacheKey) (int, bool)
	Set(ctx context.Context, key CacheKey, score int)
	Flush(ctx context.Context) error
}

// NewScoreCache picks a backend by name. A nil redis client falls back to memory.
func NewScoreCache(backend string, rdb *redis.Client, ttl time.Duration) ScoreCache {
	switch backend {
	case "none", "":
		return NopCache{}
	case "redis":
		if rdb != nil {
			return NewRedisCache(rdb, ttl)
		}
	}
	return NewMemoryCache(ttl)
}

type NopCache struct{}

func (NopCache) Get(context.Context, CacheKey) (int, bool) { return 0, false }
func (NopCache) Set(context.Context, CacheKey, int)        {}
func (NopCache) Flush(context.Context) error               { return nil }

type MemoryCache struct {
	store *cache.Cache
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{store: cache.New(ttl, 2*ttl)}
}

func (m *MemoryCache) Get(_ context.Context, key CacheKey) (int, bool) {
	v, found := m.store.Get(key.String())
	if !found {
		return 0, false
	}
	score, ok := v.(int)
	return score, ok
}

func (m *MemoryCache) Set(_ context.Context, key CacheKey, score int) {
	m.store.Set(key.String(), score, cache.DefaultExpiration)
}

func (m *MemoryCache) Flush(context.Context) error {
	m.store.Flush()
	return nil
}

// RedisCache shares scores across instances. Redis failures read as misses.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (r *RedisCache) Get(ctx context.Context, key CacheKey) (int, bool) {
	val, err := r.rdb.Get(ctx, key.String()).Result()
	if err != nil {
		return 0, false
	}
	score, err := strconv.Atoi(val)
	if err != nil || score < MinScore || score > MaxScore {
		return 0, false
	}
	return score, true
}

func (r *RedisCache) Set(ctx context.Context, key CacheKey, score int) {
	r.rdb.Set(ctx, key.String(), score, r.ttl)
}

func (r *RedisCache) Flush(ctx context.Context) error {
	iter := r.rdb.Scan(ctx, 0, "score:*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("scan score keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return r.rdb.Del(ctx, keys...).Err()
}
