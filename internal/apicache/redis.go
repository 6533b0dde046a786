package apicache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces cache keys in a shared redis.
const DefaultRedisPrefix = "sitecms:api-cache:"

// Connect creates a Redis client from a redis:// URL and verifies connectivity.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// RedisStore keeps cached payloads in redis under a key prefix. Entries do not
// expire; they are removed by Delete and Flush.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore wraps rdb. An empty prefix falls back to DefaultRedisPrefix.
func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	return r.rdb.Set(ctx, r.prefix+key, value, 0).Err()
}

func (r *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, 0, len(keys))
	for _, key := range keys {
		prefixed = append(prefixed, r.prefix+key)
	}
	return r.rdb.Del(ctx, prefixed...).Err()
}

// Flush deletes every key under the prefix.
func (r *RedisStore) Flush(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := r.rdb.Scan(ctx, cursor, r.prefix+"*", 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
