package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/ecoai-civic/ecoai-client/internal/api/http"
	"github.com/ecoai-civic/ecoai-client/internal/api/http/handlers"
	"github.com/ecoai-civic/ecoai-client/internal/auth"
	"github.com/ecoai-civic/ecoai-client/internal/bootstrap"
	"github.com/ecoai-civic/ecoai-client/internal/config"
	"github.com/ecoai-civic/ecoai-client/internal/gateway"
	"github.com/ecoai-civic/ecoai-client/internal/guard"
	"github.com/ecoai-civic/ecoai-client/internal/observability"
	"github.com/ecoai-civic/ecoai-client/internal/repository"
	"github.com/ecoai-civic/ecoai-client/internal/service"
	"github.com/ecoai-civic/ecoai-client/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backends, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open backends", zap.Error(err))
	}
	defer backends.Close()

	metrics := observability.NewMetrics()
	gw := gateway.New(gateway.Options{
		BaseURL:   cfg.API.BaseURL,
		LoginPath: cfg.Session.LoginPath,
		Timeout:   cfg.API.Timeout(),
		Logger:    logger,
		Metrics:   metrics,
	})
	accounts := service.NewAccountService(gw, logger)

	stopAudit := worker.StartSessionAuditWorker(service.NewSessionAuditService(backends.Dispatcher, logger, metrics))
	defer stopAudit()
	var janitorDone <-chan struct{}
	if purger, ok := backends.Storage.(repository.ExpiryPurger); ok {
		janitorDone = worker.StartStorageJanitor(ctx, purger, cfg.Storage.PurgeInterval(), logger)
	}

	deps := map[string]handlers.Pinger{}
	if pg := backends.Postgres(); pg != nil {
		deps["postgres"] = pg
	}
	if r := backends.Redis(); r != nil {
		deps["redis"] = r
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:   handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps, metrics),
		Accounts: handlers.NewAccountHandler(accounts, backends.Dispatcher, cfg.Session, logger),
		Views:    handlers.NewViewHandler(backends.Dispatcher, cfg.Session.LoginPath, logger),
		Nav:      handlers.NewNavHandler(backends.Dispatcher, cfg.Session.LoginPath, 0, logger),
		Proxy:    handlers.NewProxyHandler(),
		Session:  auth.NewSessionMiddleware(cfg.Session, backends.Provider, gw, logger),
		Guard:    guard.New(backends.Tracker, logger, metrics),
		Policy:   guard.Policy{LoginPath: cfg.Session.LoginPath, HomePath: cfg.Session.HomePath},
		Routes:   guard.Routes,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	cancel()
	if janitorDone != nil {
		<-janitorDone
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
