// Package procexec spawns external tools behind a single interface that
// hides whether the host platform needs them wrapped in a shell.
package procexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// DefaultGrace is how long Stop waits after a graceful termination request
// before force-killing the process group.
const DefaultGrace = 5 * time.Second

// Mode selects how a tool is invoked.
type Mode int

const (
	// ModeDirect executes the tool binary itself.
	ModeDirect Mode = iota
	// ModeShell runs the tool through the platform command interpreter.
	// npm and friends ship as .cmd scripts on Windows and need this.
	ModeShell
)

func (m Mode) String() string {
	switch m {
	case ModeDirect:
		return "direct"
	case ModeShell:
		return "shell"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ModeFor returns the invocation mode for the given GOOS and whether the
// platform is recognized. Unrecognized platforms get ModeDirect.
func ModeFor(goos string) (Mode, bool) {
	switch goos {
	case "windows":
		return ModeShell, true
	case "linux", "darwin", "freebsd", "openbsd", "netbsd", "dragonfly",
		"solaris", "illumos", "aix", "android", "ios":
		return ModeDirect, true
	default:
		return ModeDirect, false
	}
}

// Spec describes one invocation of an external tool.
type Spec struct {
	// Name is the tool name or path.
	Name string
	// Args are passed to the tool after Name.
	Args []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Env holds KEY=VALUE pairs layered over the parent's environment.
	Env []string
	// Stdout and Stderr receive the tool's output for Run and Start.
	// Nil discards it.
	Stdout io.Writer
	Stderr io.Writer
}

// Process is a started tool invocation.
type Process interface {
	// Pid returns the OS process id.
	Pid() int
	// Done is closed once the process has exited.
	Done() <-chan struct{}
	// Wait blocks until the process exits and returns its exit error.
	// It may be called any number of times.
	Wait() error
	// Stop terminates the process and its children and waits for exit.
	// Stopping an exited process is a no-op.
	Stop() error
}

// Runner spawns external tools.
type Runner interface {
	// Output runs the tool to completion and returns its stdout.
	Output(ctx context.Context, spec Spec) (string, error)
	// Run runs the tool to completion.
	Run(ctx context.Context, spec Spec) error
	// Start launches the tool and returns without waiting for it.
	Start(ctx context.Context, spec Spec) (Process, error)
}

// Exec implements Runner with os/exec.
type Exec struct {
	mode  Mode
	grace time.Duration
}

// New creates an Exec using the invocation mode of the running platform.
// An unrecognized platform falls back to direct invocation with a warning.
func New(logger *slog.Logger) *Exec {
	if logger == nil {
		logger = slog.Default()
	}
	mode, known := ModeFor(runtime.GOOS)
	if !known {
		logger.Warn("unrecognized platform, invoking tools without a shell",
			slog.String("goos", runtime.GOOS),
		)
	}
	return NewWithMode(mode)
}

// NewWithMode creates an Exec with an explicit invocation mode.
func NewWithMode(mode Mode) *Exec {
	return &Exec{mode: mode, grace: DefaultGrace}
}

// Mode returns the invocation mode in use.
func (e *Exec) Mode() Mode {
	return e.mode
}

// SetGrace changes how long Stop waits before force-killing.
func (e *Exec) SetGrace(d time.Duration) {
	if d > 0 {
		e.grace = d
	}
}

// Output runs the tool and returns its standard output.
func (e *Exec) Output(ctx context.Context, spec Spec) (string, error) {
	cmd := e.command(ctx, spec)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", e.wrap(ctx, spec, cmd, stderr.String(), err)
	}
	return stdout.String(), nil
}

// Run runs the tool, streaming its output to spec.Stdout and spec.Stderr.
func (e *Exec) Run(ctx context.Context, spec Spec) error {
	cmd := e.command(ctx, spec)

	var stderr bytes.Buffer
	cmd.Stdout = spec.Stdout
	cmd.Stderr = &stderr
	if spec.Stderr != nil {
		cmd.Stderr = io.MultiWriter(spec.Stderr, &stderr)
	}

	if err := cmd.Run(); err != nil {
		return e.wrap(ctx, spec, cmd, stderr.String(), err)
	}
	return nil
}

// Start launches the tool in its own process group. The returned Process
// outlives ctx; use Stop to end it.
func (e *Exec) Start(ctx context.Context, spec Spec) (Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s cancelled: %w", spec.Name, err)
	}

	name, args := e.argv(spec)
	// #nosec G204 - tool names come from configuration, not remote input
	cmd := exec.Command(name, args...)
	e.prepare(cmd, spec)
	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr

	if err := cmd.Start(); err != nil {
		return nil, &CommandError{Name: spec.Name, Args: cmd.Args, Err: err}
	}

	p := &process{
		cmd:   cmd,
		done:  make(chan struct{}),
		grace: e.grace,
	}
	go func() {
		p.err = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

func (e *Exec) command(ctx context.Context, spec Spec) *exec.Cmd {
	name, args := e.argv(spec)
	// #nosec G204 - tool names come from configuration, not remote input
	cmd := exec.CommandContext(ctx, name, args...)
	e.prepare(cmd, spec)
	cmd.Cancel = func() error { return signalGroup(cmd, false) }
	cmd.WaitDelay = e.grace
	return cmd
}

func (e *Exec) prepare(cmd *exec.Cmd, spec Spec) {
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		// Later entries win, so spec.Env overrides the inherited values.
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	setGroup(cmd)
	if e.mode == ModeShell {
		setCmdLine(cmd, shellCommandLine(spec))
	}
}

func (e *Exec) argv(spec Spec) (string, []string) {
	if e.mode == ModeShell {
		return "cmd.exe", []string{"/S", "/C", shellCommand(spec)}
	}
	return spec.Name, spec.Args
}

// shellCommandLine is the raw command line handed to cmd.exe. With /S the
// interpreter strips exactly the outer pair of quotes and runs the rest, so
// a quoted program path followed by quoted arguments survives intact.
func shellCommandLine(spec Spec) string {
	return `cmd.exe /S /C "` + shellCommand(spec) + `"`
}

func shellCommand(spec Spec) string {
	parts := make([]string, 0, len(spec.Args)+1)
	parts = append(parts, quoteArg(spec.Name))
	for _, a := range spec.Args {
		parts = append(parts, quoteArg(a))
	}
	return strings.Join(parts, " ")
}

// quoteArg quotes s for the Windows argument parser. Arguments holding
// cmd.exe metacharacters are quoted too so the interpreter passes them
// through literally.
func quoteArg(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\"&|<>^()") {
		return s
	}

	var b strings.Builder
	b.WriteByte('"')
	slashes := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			slashes++
		case '"':
			// Backslashes before a quote are doubled and the quote escaped.
			b.WriteString(strings.Repeat(`\`, slashes+1))
			slashes = 0
		default:
			slashes = 0
		}
		b.WriteByte(c)
	}
	// Trailing backslashes would escape the closing quote.
	b.WriteString(strings.Repeat(`\`, slashes))
	b.WriteByte('"')
	return b.String()
}

func (e *Exec) wrap(ctx context.Context, spec Spec, cmd *exec.Cmd, stderr string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%s cancelled: %w", spec.Name, ctx.Err())
	}
	return &CommandError{
		Name:   spec.Name,
		Args:   cmd.Args,
		Stderr: stderr,
		Err:    err,
	}
}

type process struct {
	cmd   *exec.Cmd
	done  chan struct{}
	err   error
	grace time.Duration
}

func (p *process) Pid() int {
	return p.cmd.Process.Pid
}

func (p *process) Done() <-chan struct{} {
	return p.done
}

func (p *process) Wait() error {
	<-p.done
	return p.err
}

// Stop sends a graceful termination request to the process group, then
// force-kills it if it is still alive after the grace period.
func (p *process) Stop() error {
	select {
	case <-p.done:
		return nil
	default:
	}

	if err := signalGroup(p.cmd, false); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return p.kill(err)
	}

	select {
	case <-p.done:
		return nil
	case <-time.After(p.grace):
	}
	return p.kill(nil)
}

func (p *process) kill(cause error) error {
	if err := signalGroup(p.cmd, true); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill pid %d: %w", p.Pid(), errors.Join(cause, err))
	}
	<-p.done
	return nil
}

// CommandError reports a failed tool invocation together with whatever it
// wrote to stderr.
type CommandError struct {
	Name   string
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s failed: %v (args: %s)", e.Name, e.Err, strings.Join(e.Args, " "))
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += "\nstderr: " + s
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExitCode returns the tool's exit status, or -1 if it never ran to exit.
func (e *CommandError) ExitCode() int {
	var exitErr *exec.ExitError
	if errors.As(e.Err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
