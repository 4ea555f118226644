package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ndegwamoche/budget-tracker/internal/cache"
)

const redisKeyPrefix = "session:"

// RedisCache caches verified sessions in Redis, shared across instances.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to Redis using a redis:// URL.
func NewRedisCache(ctx context.Context, url string) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &RedisCache{client: client}, nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) Get(ctx context.Context, token string) (Session, bool) {
	raw, err := c.client.Get(ctx, cacheKey(token)).Bytes()
	if err != nil {
		return Session{}, false
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return Session{}, false
	}
	return sess, true
}

func (c *RedisCache) Set(ctx context.Context, token string, sess Session) {
	raw, err := json.Marshal(sess)
	if err != nil {
		return
	}
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return
	}
	c.client.Set(ctx, cacheKey(token), raw, ttl)
}

// cacheKey hashes the token so raw credentials never land in Redis.
func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return redisKeyPrefix + hex.EncodeToString(sum[:])
}

// LocalCache is the in-process fallback used when Redis is not configured.
type LocalCache struct {
	lru *cache.LRUCache[Session]
}

func NewLocalCache(maxSize int, ttl time.Duration) *LocalCache {
	return &LocalCache{lru: cache.NewLRUCache[Session](maxSize, ttl)}
}

func (c *LocalCache) Get(_ context.Context, token string) (Session, bool) {
	return c.lru.Get(cacheKey(token))
}

func (c *LocalCache) Set(_ context.Context, token string, sess Session) {
	c.lru.Set(cacheKey(token), sess)
}
