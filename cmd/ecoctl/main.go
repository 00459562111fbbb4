package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ecoai-civic/ecoai-client/internal/cli"
	"github.com/ecoai-civic/ecoai-client/internal/config"
	"github.com/ecoai-civic/ecoai-client/internal/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	// the CLI keeps its credentials on disk unless told otherwise
	if os.Getenv("STORAGE_BACKEND") == "" {
		cfg.Storage.Backend = "file"
	}
	cfg.Logger.Level = envOr("ECOCTL_LOG_LEVEL", "error")
	cfg.Logger.Output = "stderr"

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if err := cli.ExecuteContext(ctx, &cli.Env{Config: cfg, Logger: logger}, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if ctx.Err() == context.Canceled {
			fmt.Fprintln(os.Stderr, "\nOperation cancelled by user")
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
