// Package launcher stages a data file for the local file server, starts
// that server and points the Neurosift web viewer at it.
//
// A run walks a fixed sequence of stages:
//
//	INIT -> STAGING_READY -> DEPENDENCIES_VERIFIED -> SERVER_STARTING ->
//	BROWSER_OPENED -> WAITING_ON_CHILD -> TEARDOWN -> DONE
//
// Any failure jumps straight to TEARDOWN and ends in FAILED. Teardown always
// stops the server before it removes the staging directory.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/flatironinstitute/neurosift/internal/browser"
	"github.com/flatironinstitute/neurosift/internal/input"
	"github.com/flatironinstitute/neurosift/internal/netport"
	"github.com/flatironinstitute/neurosift/internal/procexec"
	"github.com/flatironinstitute/neurosift/internal/staging"
	"github.com/flatironinstitute/neurosift/internal/toolchain"
	"github.com/flatironinstitute/neurosift/internal/viewer"
)

// Defaults for the server start-up loop.
const (
	DefaultPortAttempts  = 3
	DefaultReadyTimeout  = 30 * time.Second
	DefaultReadyInterval = netport.DefaultInterval
	DefaultSettle        = 500 * time.Millisecond
)

// readyHost is where the local server is probed and linked from the viewer.
const readyHost = "localhost"

// Toolchain is the npm/node pair that installs and runs the file server.
type Toolchain interface {
	Verify(ctx context.Context) (toolchain.Versions, error)
	Install(ctx context.Context, dir string) error
	Serve(ctx context.Context, dir, root string, port int) (procexec.Process, error)
}

// PortPicker chooses a free local TCP port.
type PortPicker func(ctx context.Context) (int, error)

// Launcher runs the view flow.
type Launcher struct {
	tools  Toolchain
	opener browser.Opener
	viewer *viewer.Builder
	logger *slog.Logger

	serverDir     string
	tempRoot      string
	skipInstall   bool
	portAttempts  int
	readyTimeout  time.Duration
	readyInterval time.Duration
	settle        time.Duration
	pickPort      PortPicker
	observe       func(*Session)
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithViewer sets the viewer URL builder.
func WithViewer(b *viewer.Builder) Option {
	return func(l *Launcher) {
		if b != nil {
			l.viewer = b
		}
	}
}

// WithServerDir sets the directory of the file server's npm project.
func WithServerDir(dir string) Option {
	return func(l *Launcher) {
		l.serverDir = dir
	}
}

// WithTempRoot sets where staging directories are created.
// Empty means os.TempDir().
func WithTempRoot(dir string) Option {
	return func(l *Launcher) {
		l.tempRoot = dir
	}
}

// WithSkipInstall skips npm install.
func WithSkipInstall(skip bool) Option {
	return func(l *Launcher) {
		l.skipInstall = skip
	}
}

// WithPortAttempts sets how many ports are tried before giving up on
// starting the server.
func WithPortAttempts(n int) Option {
	return func(l *Launcher) {
		if n > 0 {
			l.portAttempts = n
		}
	}
}

// WithReadyTimeout bounds the wait for the server to accept connections.
// After it elapses the run continues with a warning. Zero disables the
// readiness wait entirely.
func WithReadyTimeout(d time.Duration) Option {
	return func(l *Launcher) {
		if d >= 0 {
			l.readyTimeout = d
		}
	}
}

// WithReadyInterval sets the pause between readiness probes.
func WithReadyInterval(d time.Duration) Option {
	return func(l *Launcher) {
		if d > 0 {
			l.readyInterval = d
		}
	}
}

// WithSettle sets how long the server must keep running after it first
// accepts connections before the start counts as successful. Zero disables
// the check.
func WithSettle(d time.Duration) Option {
	return func(l *Launcher) {
		if d >= 0 {
			l.settle = d
		}
	}
}

// WithPortPicker replaces netport.Pick.
func WithPortPicker(p PortPicker) Option {
	return func(l *Launcher) {
		if p != nil {
			l.pickPort = p
		}
	}
}

// WithObserver registers a callback invoked after every stage transition.
func WithObserver(fn func(*Session)) Option {
	return func(l *Launcher) {
		l.observe = fn
	}
}

// New creates a Launcher.
func New(tools Toolchain, opener browser.Opener, logger *slog.Logger, opts ...Option) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Launcher{
		tools:         tools,
		opener:        opener,
		viewer:        viewer.NewBuilder(""),
		logger:        logger,
		portAttempts:  DefaultPortAttempts,
		readyTimeout:  DefaultReadyTimeout,
		readyInterval: DefaultReadyInterval,
		settle:        DefaultSettle,
		pickPort:      netport.Pick,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ViewFile exposes the file at path through a local server, opens the
// viewer on it and blocks until the server exits or ctx is cancelled.
// Whatever the outcome, the server is stopped and the staging directory
// removed before ViewFile returns. Cancellation once the server is being
// started, or while waiting on it, is a normal way to finish and returns
// nil. Cancellation before that returns the context error.
func (l *Launcher) ViewFile(ctx context.Context, path string) (err error) {
	file, err := input.Resolve(path)
	if err != nil {
		return err
	}

	sess := NewSession()
	logger := l.logger.With(slog.String("session_id", sess.ID))

	var (
		area *staging.Area
		proc procexec.Process
	)
	defer func() {
		l.advance(logger, sess, StageTeardown)
		if proc != nil {
			if serr := proc.Stop(); serr != nil {
				logger.Warn("failed to stop local server", slog.String("error", serr.Error()))
			}
		}
		if area != nil {
			if cerr := area.Close(); cerr != nil {
				err = errors.Join(err, cerr)
			}
		}
		if err != nil {
			logger.Error("view failed", slog.String("error", err.Error()))
			l.advance(logger, sess, StageFailed)
			return
		}
		l.advance(logger, sess, StageDone)
	}()

	area, err = staging.New(ctx, l.tempRoot, staging.DefaultPrefix)
	if err != nil {
		return err
	}
	sess.set(func(s *Session) { s.StagingDir = area.Dir() })

	link, err := area.Link(file.Abs)
	if err != nil {
		return err
	}
	logger.Info("file staged",
		slog.String("file", file.Abs),
		slog.String("link", link),
	)
	l.advance(logger, sess, StageStagingReady)

	if _, err = l.tools.Verify(ctx); err != nil {
		return err
	}
	l.advance(logger, sess, StageDependenciesVerified)

	if l.skipInstall {
		logger.Info("skipping server dependency install")
	} else if err = l.tools.Install(ctx, l.serverDir); err != nil {
		return err
	}

	l.advance(logger, sess, StageServerStarting)
	var port int
	proc, port, err = l.startServer(ctx, logger, area.Dir())
	if err != nil {
		if ctx.Err() != nil {
			logger.Info("interrupted while starting local server")
			return nil
		}
		return err
	}

	url := l.viewer.NWB(viewer.LocalFileURL(port, file.Base))
	sess.set(func(s *Session) {
		s.Port = port
		s.URL = url
	})
	logger.Info("opening viewer", slog.String("url", url))
	if oerr := l.opener.Open(url); oerr != nil {
		logger.Warn("could not open a browser, open the URL manually",
			slog.String("url", url),
			slog.String("error", oerr.Error()),
		)
	}
	l.advance(logger, sess, StageBrowserOpened)

	l.advance(logger, sess, StageWaitingOnChild)
	select {
	case <-proc.Done():
		logger.Info("local server exited", slog.String("status", exitStatus(proc.Wait())))
	case <-ctx.Done():
		logger.Info("interrupted, stopping local server")
	}
	return nil
}

// startServer starts the file server on a fresh port per attempt. A port
// that already accepts connections is skipped, and a server that exits
// before it has been up for the settle window is retried: both mean another
// process took the port between Pick and the server's own bind.
func (l *Launcher) startServer(ctx context.Context, logger *slog.Logger, root string) (procexec.Process, int, error) {
	var lastErr error
	for attempt := 1; attempt <= l.portAttempts; attempt++ {
		port, err := l.pickPort(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, 0, err
			}
			return nil, 0, fmt.Errorf("%w: %w", ErrPortBind, err)
		}
		if netport.InUse(ctx, readyHost, port, l.readyInterval) {
			lastErr = fmt.Errorf("port %d already in use", port)
			logger.Warn("picked port is already in use, trying another",
				slog.Int("port", port),
				slog.Int("attempt", attempt),
			)
			continue
		}

		logger.Info("starting local server",
			slog.Int("port", port),
			slog.Int("attempt", attempt),
			slog.String("server_dir", l.serverDir),
		)
		proc, err := l.tools.Serve(ctx, l.serverDir, root, port)
		if err != nil {
			if ctx.Err() != nil {
				return nil, 0, err
			}
			return nil, 0, fmt.Errorf("%w: %w", ErrServerSpawn, err)
		}

		ready, err := l.awaitReady(ctx, logger, proc, port)
		if err != nil {
			_ = proc.Stop()
			return nil, 0, err
		}
		if ready {
			return proc, port, nil
		}

		lastErr = proc.Wait()
		logger.Warn("local server exited during start-up",
			slog.Int("port", port),
			slog.Int("attempt", attempt),
			slog.String("status", exitStatus(lastErr)),
		)
	}
	return nil, 0, fmt.Errorf("%w: server did not stay up after %d attempts: %s",
		ErrServerSpawn, l.portAttempts, exitStatus(lastErr))
}

// awaitReady reports whether the server came up and stayed up for the
// settle window. It returns false if the server exited first. An expired
// readiness timeout is only a warning while the server is still running.
func (l *Launcher) awaitReady(ctx context.Context, logger *slog.Logger, proc procexec.Process, port int) (bool, error) {
	if l.readyTimeout == 0 {
		return true, nil
	}

	readyCtx, cancel := context.WithTimeout(ctx, l.readyTimeout)
	defer cancel()
	go func() {
		select {
		case <-proc.Done():
			cancel()
		case <-readyCtx.Done():
		}
	}()

	err := netport.WaitReady(readyCtx, readyHost, port, l.readyInterval)

	select {
	case <-proc.Done():
		return false, nil
	default:
	}
	if err != nil {
		if ctx.Err() != nil {
			return false, fmt.Errorf("wait for local server: %w", ctx.Err())
		}
		logger.Warn("local server not accepting connections yet, continuing",
			slog.Int("port", port),
			slog.Duration("waited", l.readyTimeout),
		)
	}
	return l.settled(ctx, proc)
}

// settled reports whether proc is still running at the end of the settle
// window.
func (l *Launcher) settled(ctx context.Context, proc procexec.Process) (bool, error) {
	if l.settle == 0 {
		return true, nil
	}
	timer := time.NewTimer(l.settle)
	defer timer.Stop()

	select {
	case <-proc.Done():
		return false, nil
	case <-ctx.Done():
		return false, fmt.Errorf("wait for local server: %w", ctx.Err())
	case <-timer.C:
		return true, nil
	}
}

func (l *Launcher) advance(logger *slog.Logger, sess *Session, stage Stage) {
	from := sess.CurrentStage()
	if err := sess.TransitionTo(stage); err != nil {
		logger.Error("unexpected stage transition",
			slog.String("from", string(from)),
			slog.String("to", string(stage)),
		)
		return
	}
	logger.Debug("stage", slog.String("from", string(from)), slog.String("to", string(stage)))
	if l.observe != nil {
		l.observe(sess)
	}
}

func exitStatus(err error) string {
	if err == nil {
		return "exit status 0"
	}
	return err.Error()
}
