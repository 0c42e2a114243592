package kvstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores keys as plain redis strings without expiry.
type RedisBackend struct {
	client  redis.UniversalClient
	timeout time.Duration
}

func NewRedisBackend(client redis.UniversalClient) *RedisBackend {
	return &RedisBackend{client: client, timeout: 2 * time.Second}
}

func (r *RedisBackend) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.timeout)
}

func (r *RedisBackend) Get(key string) (string, bool, error) {
	ctx, cancel := r.ctx()
	defer cancel()
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *RedisBackend) Set(key, value string) error {
	ctx, cancel := r.ctx()
	defer cancel()
	return r.client.Set(ctx, key, value, 0).Err()
}

func (r *RedisBackend) Delete(key string) error {
	ctx, cancel := r.ctx()
	defer cancel()
	return r.client.Del(ctx, key).Err()
}

func (r *RedisBackend) Keys(prefix string) ([]string, error) {
	ctx, cancel := r.ctx()
	defer cancel()
	var keys []string
	iter := r.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}
