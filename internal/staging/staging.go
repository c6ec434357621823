// Package staging provides the ephemeral directory through which a data
// file is exposed to the local file server.
package staging

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DefaultPrefix names staging directories created for the viewer.
const DefaultPrefix = "view_nwb"

// Area is a uniquely named temporary directory holding links to the files
// it exposes. Close removes it and everything in it.
type Area struct {
	dir string

	closeOnce sync.Once
	closeErr  error
}

// New creates a staging directory under root. If root is empty,
// os.TempDir() is used. root is created if it doesn't exist.
func New(ctx context.Context, root, prefix string) (*Area, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	if root == "" {
		root = os.TempDir()
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}

	if err := os.MkdirAll(root, 0750); err != nil {
		return nil, fmt.Errorf("create staging root: %w", err)
	}

	dir, err := os.MkdirTemp(root, prefix)
	if err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}

	return &Area{dir: dir}, nil
}

// Dir returns the staging directory path.
func (a *Area) Dir() string {
	return a.dir
}

// Link exposes target inside the area under its own base name and returns
// the link path. A symbolic link is used where the platform allows it,
// otherwise a hard link. The data itself is never copied.
func (a *Area) Link(target string) (string, error) {
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", target, err)
	}

	link := filepath.Join(a.dir, filepath.Base(abs))
	symErr := os.Symlink(abs, link)
	if symErr == nil {
		return link, nil
	}
	if hardErr := os.Link(abs, link); hardErr != nil {
		return "", fmt.Errorf("link %s into staging dir: %w", abs, errors.Join(symErr, hardErr))
	}
	return link, nil
}

// Close removes the staging directory recursively. Links are removed,
// never their targets. It is safe to call more than once.
func (a *Area) Close() error {
	a.closeOnce.Do(func() {
		if err := os.RemoveAll(a.dir); err != nil {
			a.closeErr = fmt.Errorf("remove staging dir %s: %w", a.dir, err)
		}
	})
	return a.closeErr
}
