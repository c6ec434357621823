// Package main provides the entry point for the neurosift CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/flatironinstitute/neurosift/internal/bootstrap"
	"github.com/flatironinstitute/neurosift/internal/cli"
	"github.com/flatironinstitute/neurosift/internal/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Interrupts cancel the context; the launcher stops the server and
	// cleans up before returning.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cli.NewRootCmd(newBackends, version).ExecuteContext(ctx)
}

func newBackends(ctx context.Context) (*cli.Backends, error) {
	// Load configuration from environment
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// Create structured logger
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	logger.Debug("configuration loaded",
		slog.String("viewer_url", cfg.ViewerURL),
		slog.String("server_dir", cfg.ServerDir),
		slog.Bool("skip_install", cfg.SkipInstall),
		slog.Int("port_attempts", cfg.PortAttempts),
		slog.Duration("ready_timeout", cfg.ReadyTimeout),
		slog.Bool("s3_enabled", cfg.S3Enabled()),
	)

	// Initialize dependencies using bootstrap
	deps, err := bootstrap.NewDependencies(ctx, cfg, logger, bootstrap.Output{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize dependencies: %w", err)
	}

	return &cli.Backends{
		Viewer: deps.Launcher,
		Sharer: deps.Sharer,
	}, nil
}
