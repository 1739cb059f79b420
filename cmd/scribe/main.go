// Package main is the entry point for the Scribe CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/scribe/internal/adapters/driving/cli"
	"github.com/custodia-labs/scribe/internal/config"
	"github.com/custodia-labs/scribe/internal/logger"
	"github.com/custodia-labs/scribe/internal/observability"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "none"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration in %s: %v\n", cfg.File(), err)
		return 2
	}
	if cfg.Verbose() {
		logger.SetVerbose(true)
	}

	shutdown, err := observability.SetupTelemetry(ctx, &observability.TelemetryConfig{
		Enabled:  cfg.TelemetryEnabled() || observability.IsTelemetryEnabled(),
		Endpoint: cfg.TelemetryEndpoint(),
		Version:  version + "+" + commit,
	})
	if err != nil {
		logger.Warn("telemetry initialization failed: %v", err)
	}

	w := newWiring(cfg)
	defer func() {
		if err := w.close(); err != nil {
			logger.Warn("shutdown: %v", err)
		}
		if shutdown != nil {
			flushCtx, cancel := context.WithTimeout(context.Background(), config.DefaultShutdownTimeout)
			defer cancel()
			if err := shutdown(flushCtx); err != nil {
				logger.Warn("flushing telemetry: %v", err)
			}
		}
	}()

	cli.SetVersion(version)
	cli.SetRuntime(w.runtime())

	if err := cli.Execute(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return 130
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
