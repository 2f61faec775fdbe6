package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sagechat-ai/sagechat/pkg/types"
)

// RedisCache 基于 Redis 的缓存实现
type RedisCache struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisCache(client redis.UniversalClient, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	res, err := c.client.Get(ctx, c.key(key)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return res, err
}

func (c *RedisCache) SetEx(ctx context.Context, key, value string, expiresAt time.Duration) error {
	return c.client.SetEx(ctx, c.key(key), value, expiresAt).Err()
}

func (c *RedisCache) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return c.client.Expire(ctx, c.key(key), expiration).Err()
}

var _ types.Cache = (*RedisCache)(nil)

// NoopCache 空实现，未配置 Redis 时使用
type NoopCache struct{}

func (c *NoopCache) Get(ctx context.Context, key string) (string, error) {
	return "", nil
}

func (c *NoopCache) SetEx(ctx context.Context, key, value string, expiresAt time.Duration) error {
	return nil
}

func (c *NoopCache) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return nil
}

var _ types.Cache = (*NoopCache)(nil)
