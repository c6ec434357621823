// Package bootstrap provides dependency initialization for the neurosift CLI.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/flatironinstitute/neurosift/internal/browser"
	"github.com/flatironinstitute/neurosift/internal/config"
	"github.com/flatironinstitute/neurosift/internal/launcher"
	"github.com/flatironinstitute/neurosift/internal/procexec"
	"github.com/flatironinstitute/neurosift/internal/share"
	"github.com/flatironinstitute/neurosift/internal/storage"
	"github.com/flatironinstitute/neurosift/internal/toolchain"
	"github.com/flatironinstitute/neurosift/internal/viewer"
)

// Dependencies holds the initialized command backends.
type Dependencies struct {
	Launcher *launcher.Launcher
	Sharer   *share.Sharer
}

// Output is where child tools write their stdout and stderr.
type Output struct {
	Stdout io.Writer
	Stderr io.Writer
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger, out Output) (*Dependencies, error) {
	viewerURL := viewer.NewBuilder(cfg.ViewerURL)
	opener := initOpener(cfg, logger)

	// Initialize process runner and npm/node toolchain
	runner := procexec.New(logger)
	runner.SetGrace(cfg.StopGrace)
	tools := toolchain.New(runner, logger,
		toolchain.WithNPM(cfg.NPM),
		toolchain.WithNode(cfg.Node),
		toolchain.WithMinNodeMajor(cfg.MinNodeMajor),
		toolchain.WithOutput(out.Stdout, out.Stderr),
	)

	l := launcher.New(tools, opener, logger,
		launcher.WithViewer(viewerURL),
		launcher.WithServerDir(cfg.ServerDir),
		launcher.WithTempRoot(cfg.TempDir),
		launcher.WithSkipInstall(cfg.SkipInstall),
		launcher.WithPortAttempts(cfg.PortAttempts),
		launcher.WithReadyTimeout(cfg.ReadyTimeout),
		launcher.WithSettle(cfg.Settle),
	)

	// Initialize storage
	uploader, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	s := share.New(uploader, opener, logger,
		share.WithViewer(viewerURL),
		share.WithPrefix(cfg.S3Prefix),
	)

	return &Dependencies{
		Launcher: l,
		Sharer:   s,
	}, nil
}

// initOpener returns the system browser, or an opener that only logs when
// browser launching is turned off.
func initOpener(cfg *config.Config, logger *slog.Logger) browser.Opener {
	if cfg.NoBrowser {
		return browser.OpenerFunc(func(url string) error {
			logger.Info("browser disabled, open the URL manually", slog.String("url", url))
			return nil
		})
	}
	return browser.System{}
}

// initStorage creates the appropriate upload backend based on configuration.
func initStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Uploader, error) {
	if !cfg.S3Enabled() {
		logger.Debug("S3 storage not configured")
		return storage.Disabled{}, nil
	}

	s3Store, err := storage.NewS3Storage(ctx, storage.S3Config{
		Bucket:          cfg.S3Bucket,
		Region:          cfg.S3Region,
		Endpoint:        cfg.S3Endpoint,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create S3 storage: %w", err)
	}
	logger.Debug("S3 storage configured",
		slog.String("bucket", cfg.S3Bucket),
		slog.String("region", cfg.S3Region),
	)
	return s3Store, nil
}
