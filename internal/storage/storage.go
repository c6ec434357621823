// Package storage uploads data files to S3-compatible object storage so they
// can be opened in the viewer without a local server.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrS3NotConfigured is returned when an upload is attempted without a
// bucket and region.
var ErrS3NotConfigured = errors.New("S3 storage is not configured")

// Uploader stores objects and returns the URL they can be fetched from.
type Uploader interface {
	// Upload stores size bytes read from data under key and returns the
	// object's public URL.
	Upload(ctx context.Context, key string, data io.Reader, size int64) (url string, err error)
}

// Disabled is the Uploader used when S3 is not configured.
type Disabled struct{}

// Upload always returns ErrS3NotConfigured.
func (Disabled) Upload(context.Context, string, io.Reader, int64) (string, error) {
	return "", ErrS3NotConfigured
}
