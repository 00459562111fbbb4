package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ecoai-civic/ecoai-client/internal/repository"
)

// StartStorageJanitor purges expired entries every interval until ctx ends.
// The returned channel closes when the janitor has stopped.
func StartStorageJanitor(ctx context.Context, purger repository.ExpiryPurger, interval time.Duration, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if purger == nil || interval <= 0 {
		close(done)
		return done
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := purger.PurgeExpired(ctx)
				if err != nil {
					logger.Warn("purge expired storage", zap.Error(err))
					continue
				}
				if n > 0 {
					logger.Info("purged expired storage", zap.Int("entries", n))
				}
			}
		}
	}()
	return done
}
