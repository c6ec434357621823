package launcher

import (
	"errors"

	"github.com/flatironinstitute/neurosift/internal/input"
	"github.com/flatironinstitute/neurosift/internal/toolchain"
)

// Errors returned by ViewFile. Match them with errors.Is.
var (
	// ErrFileNotFound is returned when the input is not a readable file.
	ErrFileNotFound = input.ErrFileNotFound
	// ErrMissingDependency is returned when npm or node cannot be invoked.
	ErrMissingDependency = toolchain.ErrMissingDependency
	// ErrUnsupportedVersion is returned when node is older than required.
	ErrUnsupportedVersion = toolchain.ErrUnsupportedVersion
	// ErrInvalidVersion is returned when node reports an unparsable version.
	ErrInvalidVersion = toolchain.ErrInvalidVersion
	// ErrInstallFailure is returned when npm install exits unsuccessfully.
	ErrInstallFailure = toolchain.ErrInstallFailure
	// ErrPortBind is returned when no local port could be obtained.
	ErrPortBind = errors.New("port bind failed")
	// ErrServerSpawn is returned when the local server cannot be started or
	// exits before it starts listening.
	ErrServerSpawn = errors.New("server spawn failed")
)
