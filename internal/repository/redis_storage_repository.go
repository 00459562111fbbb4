package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisStorageRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisStorageRepository stores each value under its own key so that
// expiry can be applied per value.
func NewRedisStorageRepository(client *redis.Client) StorageRepository {
	return &redisStorageRepository{client: client, prefix: "storage:"}
}

func (r *redisStorageRepository) key(namespace, key string) string {
	return r.prefix + namespace + ":" + key
}

func (r *redisStorageRepository) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, r.key(namespace, key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (r *redisStorageRepository) Set(ctx context.Context, namespace string, values map[string]string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range values {
			pipe.Set(ctx, r.key(namespace, k), v, ttl)
		}
		return nil
	})
	return err
}

func (r *redisStorageRepository) Delete(ctx context.Context, namespace string, keys ...string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, r.key(namespace, k))
	}
	n, err := r.client.Del(ctx, full...).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
