// Package bootstrap opens the storage, notification and tracking backends
// selected by configuration.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ecoai-civic/ecoai-client/internal/config"
	"github.com/ecoai-civic/ecoai-client/internal/credential"
	"github.com/ecoai-civic/ecoai-client/internal/events"
	"github.com/ecoai-civic/ecoai-client/internal/guard"
	"github.com/ecoai-civic/ecoai-client/internal/persistence"
	"github.com/ecoai-civic/ecoai-client/internal/repository"
)

// Storage and event backend names.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendFile     = "file"
)

// Backends holds everything the credential core runs on.
type Backends struct {
	Storage    repository.StorageRepository
	Dispatcher events.Dispatcher
	Tracker    guard.Tracker
	Provider   *credential.Provider

	postgres *persistence.Postgres
	redis    *persistence.Redis
}

// Open connects the configured backends. Redis is dialed once and shared when
// several concerns select it.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Backends, error) {
	b := &Backends{}
	if err := b.open(ctx, cfg, logger); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

func (b *Backends) open(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	needRedis := cfg.Storage.Backend == BackendRedis || cfg.Events.Backend == BackendRedis
	if needRedis {
		r, err := persistence.NewRedis(ctx, cfg.Redis, cfg.Connect, logger)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		b.redis = r
	}

	switch cfg.Storage.Backend {
	case BackendMemory, "":
		b.Storage = repository.NewMemoryStorageRepository()
	case BackendFile:
		b.Storage = repository.NewFileStorageRepository(cfg.Storage.FilePath)
	case BackendRedis:
		b.Storage = repository.NewRedisStorageRepository(b.redis.Client)
	case BackendPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, cfg.Connect, logger)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		b.postgres = pg
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.Pool, persistence.DefaultMigrationsDir, logger); err != nil {
				return err
			}
		}
		b.Storage = repository.NewPostgresStorageRepository(pg.Pool)
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.Storage.Backend)
	}

	switch cfg.Events.Backend {
	case BackendMemory, "":
		b.Dispatcher = events.NewInMemoryDispatcher()
	case BackendRedis:
		b.Dispatcher = events.NewRedisDispatcher(b.redis.Client, cfg.Events.Channel, logger)
	default:
		return fmt.Errorf("unknown EVENTS_BACKEND %q", cfg.Events.Backend)
	}

	if b.redis != nil {
		b.Tracker = guard.NewRedisTracker(b.redis.Client, logger)
	} else {
		b.Tracker = guard.NewMemoryTracker()
	}

	sealer, err := credential.NewSealer(cfg.Storage.Secret)
	if err != nil {
		return err
	}
	b.Provider = credential.NewProvider(b.Storage, sealer, b.Dispatcher, logger)

	logger.Info("backends ready",
		zap.String("storage", cfg.Storage.Backend),
		zap.String("events", cfg.Events.Backend),
	)
	return nil
}

// Postgres returns the database handle, or nil when it is not in use.
func (b *Backends) Postgres() *persistence.Postgres {
	return b.postgres
}

// Redis returns the Redis handle, or nil when it is not in use.
func (b *Backends) Redis() *persistence.Redis {
	return b.redis
}

// Close releases network backends.
func (b *Backends) Close() {
	b.postgres.Close()
	b.redis.Close()
}
