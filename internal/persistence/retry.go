package persistence

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"github.com/ecoai-civic/ecoai-client/internal/config"
)

// retryConnect runs attempt with exponential backoff until it succeeds, the
// configured budget is spent or ctx ends.
func retryConnect(ctx context.Context, cfg config.ConnectConfig, logger *zap.Logger, target string, attempt func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = cfg.MaxElapsed()

	return backoff.RetryNotify(attempt, backoff.WithContext(bo, ctx), func(err error, wait time.Duration) {
		logger.Warn("retrying connection",
			zap.String("target", target),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	})
}
