// internal/cache/redis_cache.go
package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"waypoint-sequencer/internal/interfaces"
)

// RedisCache interfaces.CacheService 의 go-redis 구현
type RedisCache struct {
	client *redis.Client
}

var _ interfaces.CacheService = (*RedisCache)(nil)

// NewRedisCache 캐시 서비스 생성
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) HSet(ctx context.Context, key string, values map[string]interface{}) error {
	return c.client.HSet(ctx, key, values).Err()
}

func (c *RedisCache) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return c.client.HGetAll(ctx, key).Result()
}

func (c *RedisCache) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return c.client.Expire(ctx, key, expiration).Err()
}

func (c *RedisCache) Del(ctx context.Context, keys ...string) error {
	return c.client.Del(ctx, keys...).Err()
}

// Close 연결 종료
func (c *RedisCache) Close() error {
	return c.client.Close()
}
