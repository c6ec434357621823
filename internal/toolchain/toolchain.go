// Package toolchain drives the npm/node pair that the local file server
// project runs on: discovery, version checks, dependency installation and
// starting the server itself.
package toolchain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/flatironinstitute/neurosift/internal/procexec"
)

// DefaultMinNodeMajor is the oldest node major version the server runs on.
const DefaultMinNodeMajor = 16

// Static errors for toolchain checks.
var (
	// ErrMissingDependency is returned when npm or node cannot be invoked.
	ErrMissingDependency = errors.New("missing dependency")
	// ErrUnsupportedVersion is returned when node is older than the minimum.
	ErrUnsupportedVersion = errors.New("unsupported version")
	// ErrInvalidVersion is returned when a version string is not vMAJOR.MINOR.PATCH.
	ErrInvalidVersion = errors.New("invalid version string")
	// ErrInstallFailure is returned when npm install exits unsuccessfully.
	ErrInstallFailure = errors.New("dependency install failed")
)

// Finder resolves an executable name to a path.
type Finder interface {
	LookPath(file string) (string, error)
}

// PathFinder resolves executables through the PATH environment variable.
type PathFinder struct{}

// LookPath implements Finder.
func (PathFinder) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

// Versions holds the reported tool versions.
type Versions struct {
	NPM       string
	Node      string
	NodeMajor int
}

// Toolchain runs npm and node through a procexec.Runner.
type Toolchain struct {
	npm          string
	node         string
	minNodeMajor int
	finder       Finder
	runner       procexec.Runner
	logger       *slog.Logger
	stdout       io.Writer
	stderr       io.Writer
}

// Option configures a Toolchain.
type Option func(*Toolchain)

// WithNPM overrides the npm executable name or path.
func WithNPM(name string) Option {
	return func(t *Toolchain) {
		if name != "" {
			t.npm = name
		}
	}
}

// WithNode overrides the node executable name or path.
func WithNode(name string) Option {
	return func(t *Toolchain) {
		if name != "" {
			t.node = name
		}
	}
}

// WithMinNodeMajor sets the minimum accepted node major version.
func WithMinNodeMajor(n int) Option {
	return func(t *Toolchain) {
		if n > 0 {
			t.minNodeMajor = n
		}
	}
}

// WithFinder replaces the PATH based executable lookup.
func WithFinder(f Finder) Option {
	return func(t *Toolchain) {
		if f != nil {
			t.finder = f
		}
	}
}

// WithOutput sets where npm install and the server write their output.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(t *Toolchain) {
		t.stdout = stdout
		t.stderr = stderr
	}
}

// New creates a Toolchain. By default it looks up "npm" and "node" on PATH
// and requires node >= DefaultMinNodeMajor.
func New(runner procexec.Runner, logger *slog.Logger, opts ...Option) *Toolchain {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Toolchain{
		npm:          "npm",
		node:         "node",
		minNodeMajor: DefaultMinNodeMajor,
		finder:       PathFinder{},
		runner:       runner,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Verify checks that npm and node can be invoked and that node is recent
// enough.
func (t *Toolchain) Verify(ctx context.Context) (Versions, error) {
	npmVersion, err := t.version(ctx, t.npm)
	if err != nil {
		return Versions{}, err
	}
	t.logger.Info("npm found", slog.String("version", npmVersion))

	nodeVersion, err := t.version(ctx, t.node)
	if err != nil {
		return Versions{}, err
	}
	t.logger.Info("node found", slog.String("version", nodeVersion))

	major, err := NodeMajor(nodeVersion)
	if err != nil {
		return Versions{}, err
	}
	if major < t.minNodeMajor {
		return Versions{}, fmt.Errorf("%w: node %s, need >= %d.0.0", ErrUnsupportedVersion, nodeVersion, t.minNodeMajor)
	}

	return Versions{NPM: npmVersion, Node: nodeVersion, NodeMajor: major}, nil
}

// Install runs npm install in dir.
func (t *Toolchain) Install(ctx context.Context, dir string) error {
	npm, err := t.resolve(t.npm)
	if err != nil {
		return err
	}

	t.logger.Info("installing server dependencies", slog.String("dir", dir))
	err = t.runner.Run(ctx, procexec.Spec{
		Name:   npm,
		Args:   []string{"install"},
		Dir:    dir,
		Stdout: t.stdout,
		Stderr: t.stderr,
	})
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		return fmt.Errorf("%w: %w", ErrInstallFailure, err)
	}
	return nil
}

// Serve starts "npm run start <root>" in dir with PORT set to port. The
// server is expected to expose root under http://localhost:<port>/files/.
func (t *Toolchain) Serve(ctx context.Context, dir, root string, port int) (procexec.Process, error) {
	npm, err := t.resolve(t.npm)
	if err != nil {
		return nil, err
	}

	return t.runner.Start(ctx, procexec.Spec{
		Name:   npm,
		Args:   []string{"run", "start", root},
		Dir:    dir,
		Env:    []string{"PORT=" + strconv.Itoa(port)},
		Stdout: t.stdout,
		Stderr: t.stderr,
	})
}

func (t *Toolchain) resolve(name string) (string, error) {
	path, err := t.finder.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: unable to find %s: %w", ErrMissingDependency, name, err)
	}
	return path, nil
}

func (t *Toolchain) version(ctx context.Context, name string) (string, error) {
	path, err := t.resolve(name)
	if err != nil {
		return "", err
	}

	out, err := t.runner.Output(ctx, procexec.Spec{Name: path, Args: []string{"--version"}})
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		return "", fmt.Errorf("%w: unable to run %s: %w", ErrMissingDependency, name, err)
	}
	return strings.TrimSpace(out), nil
}

// NodeMajor extracts the major number from a node version string such as
// "v18.17.1".
func NodeMajor(version string) (int, error) {
	v := strings.TrimSpace(version)
	if !semver.IsValid(v) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidVersion, version)
	}
	major, err := strconv.Atoi(strings.TrimPrefix(semver.Major(v), "v"))
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidVersion, version, err)
	}
	return major, nil
}
