package store

import (
	"context"
	"path"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"
)

// The redis cache keeps agent payloads under `/<prefix>/agentcache/<key>`
// so that several agent processes can share one warm cache.

type redisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache wraps a Redis client as a Cache.
func NewRedisCache(client *redis.Client, prefix string) Cache {
	return &redisCache{
		client: client,
		prefix: prefix,
	}
}

func (m *redisCache) cacheKey(key string) string {
	return path.Join(m.prefix, "agentcache", key)
}

func (m *redisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := m.client.Get(ctx, m.cacheKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "failed to get value from Redis")
	}
	return data, true, nil
}

func (m *redisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := m.client.Set(ctx, m.cacheKey(key), value, ttl).Err(); err != nil {
		return errors.Wrap(err, "failed to store value in Redis")
	}
	return nil
}

func (m *redisCache) Delete(ctx context.Context, key string) error {
	if err := m.client.Del(ctx, m.cacheKey(key)).Err(); err != nil {
		return errors.Wrap(err, "failed to delete value from Redis")
	}
	return nil
}

// OpenRedis connects and pings the server. Callers fall back to the memory
// cache when the endpoint is unreachable.
func OpenRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}
	logger.KV(xlog.DEBUG, "status", "redis_connected", "addr", addr)
	return client, nil
}
