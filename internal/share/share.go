// Package share uploads a data file to object storage and opens the viewer
// on the uploaded copy.
package share

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"time"

	"github.com/flatironinstitute/neurosift/internal/browser"
	"github.com/flatironinstitute/neurosift/internal/id"
	"github.com/flatironinstitute/neurosift/internal/input"
	"github.com/flatironinstitute/neurosift/internal/storage"
	"github.com/flatironinstitute/neurosift/internal/viewer"
)

// Sharer runs the share flow.
type Sharer struct {
	uploader storage.Uploader
	opener   browser.Opener
	viewer   *viewer.Builder
	prefix   string
	logger   *slog.Logger
}

// Option configures a Sharer.
type Option func(*Sharer)

// WithViewer sets the viewer URL builder.
func WithViewer(b *viewer.Builder) Option {
	return func(s *Sharer) {
		if b != nil {
			s.viewer = b
		}
	}
}

// WithPrefix sets the key prefix uploads are stored under.
func WithPrefix(prefix string) Option {
	return func(s *Sharer) {
		s.prefix = prefix
	}
}

// New creates a Sharer.
func New(uploader storage.Uploader, opener browser.Opener, logger *slog.Logger, opts ...Option) *Sharer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sharer{
		uploader: uploader,
		opener:   opener,
		viewer:   viewer.NewBuilder(""),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the object key a file with the given base name is stored
// under.
func (s *Sharer) Key(base string) string {
	if s.prefix == "" {
		return base
	}
	return path.Join(s.prefix, base)
}

// ShareFile uploads the file at p, opens the viewer on it and returns the
// viewer URL. A browser failure is logged and does not fail the share.
func (s *Sharer) ShareFile(ctx context.Context, p string) (string, error) {
	file, err := input.Resolve(p)
	if err != nil {
		return "", err
	}

	f, err := os.Open(file.Abs) // #nosec G304 - validated by input.Resolve
	if err != nil {
		return "", fmt.Errorf("%w: %w", input.ErrFileNotFound, err)
	}
	defer f.Close()

	key := s.Key(file.Base)
	logger := s.logger.With(slog.String("share_id", id.Generate("share")))
	start := time.Now()
	logger.Info("uploading file",
		slog.String("file", file.Abs),
		slog.String("key", key),
		slog.Int64("size_bytes", file.Size),
	)

	objectURL, err := s.uploader.Upload(ctx, key, f, file.Size)
	if err != nil {
		return "", fmt.Errorf("share %s: %w", file.Base, err)
	}
	logger.Info("upload complete",
		slog.String("object_url", objectURL),
		slog.Duration("elapsed", time.Since(start)),
	)

	url := s.viewer.NWB(objectURL)
	logger.Info("opening viewer", slog.String("url", url))
	if oerr := s.opener.Open(url); oerr != nil {
		logger.Warn("could not open a browser, open the URL manually",
			slog.String("url", url),
			slog.String("error", oerr.Error()),
		)
	}
	return url, nil
}
