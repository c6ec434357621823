// Package input validates the data file a command was pointed at.
package input

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrFileNotFound is returned when the input path is not an existing,
// readable regular file.
var ErrFileNotFound = errors.New("file not found")

// File is a validated input file.
type File struct {
	// Abs is the absolute path of the file.
	Abs string
	// Base is the file's base name.
	Base string
	// Size is the file size in bytes.
	Size int64
}

// Resolve checks that path names a readable regular file and returns its
// absolute path and base name.
func Resolve(path string) (File, error) {
	if path == "" {
		return File{}, fmt.Errorf("%w: empty path", ErrFileNotFound)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return File{}, fmt.Errorf("%w: %s: %w", ErrFileNotFound, path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return File{}, fmt.Errorf("%w: %s: %w", ErrFileNotFound, path, err)
	}
	if !info.Mode().IsRegular() {
		return File{}, fmt.Errorf("%w: %s is not a regular file", ErrFileNotFound, path)
	}

	f, err := os.Open(abs) // #nosec G304 - the user asked for this file
	if err != nil {
		return File{}, fmt.Errorf("%w: %s: %w", ErrFileNotFound, path, err)
	}
	_ = f.Close()

	return File{Abs: abs, Base: filepath.Base(abs), Size: info.Size()}, nil
}
