package persistence

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ecoai-civic/ecoai-client/internal/config"
)

// Redis wraps the go-redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to Redis, retrying until the connect budget is spent.
func NewRedis(ctx context.Context, cfg config.RedisConfig, connect config.ConnectConfig, logger *zap.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := retryConnect(ctx, connect, logger, "redis", func() error {
		return client.Ping(ctx).Err()
	}); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info("connected to redis", zap.String("addr", cfg.Addr))
	return &Redis{Client: client}, nil
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}
