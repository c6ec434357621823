// Package netport picks ephemeral TCP ports and waits for servers to start
// listening on them.
package netport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// ErrInvalidPort is returned when the OS hands back a port outside 1-65535.
var ErrInvalidPort = errors.New("invalid port")

// DefaultInterval is the pause between readiness probes.
const DefaultInterval = 200 * time.Millisecond

// Pick asks the OS for a free TCP port by binding port 0, then releases it.
// Another process may claim the port before the caller binds it; callers
// that care must detect the failed bind and pick again.
func Pick(ctx context.Context) (int, error) {
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	var lc net.ListenConfig
	l, err := lc.Listen(ctx, "tcp", ":0")
	if err != nil {
		return 0, fmt.Errorf("bind ephemeral port: %w", err)
	}

	addr, ok := l.Addr().(*net.TCPAddr)
	if cerr := l.Close(); cerr != nil {
		return 0, fmt.Errorf("release ephemeral port: %w", cerr)
	}
	if !ok {
		return 0, fmt.Errorf("%w: unexpected address %s", ErrInvalidPort, l.Addr())
	}
	if addr.Port < 1 || addr.Port > 65535 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidPort, addr.Port)
	}
	return addr.Port, nil
}

// InUse reports whether something already accepts TCP connections on
// host:port. A failed or timed out dial counts as free.
func InUse(ctx context.Context, host string, port int, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = DefaultInterval
	}
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// WaitReady polls host:port until a TCP connection succeeds or ctx ends.
func WaitReady(ctx context.Context, host string, port int, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	dialer := net.Dialer{Timeout: interval}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			_ = conn.Close()
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for %s: %w", addr, ctx.Err())
		case <-ticker.C:
		}
	}
}
