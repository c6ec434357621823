package netport

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPick(t *testing.T) {
	ctx := context.Background()

	t.Run("returns a bindable port in range", func(t *testing.T) {
		port, err := Pick(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, port, 1)
		assert.LessOrEqual(t, port, 65535)

		// The port was released and can be bound again.
		l, err := net.Listen("tcp", ":"+strconv.Itoa(port))
		require.NoError(t, err)
		_ = l.Close()
	})

	t.Run("sequential picks do not block", func(t *testing.T) {
		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := 0; i < 20; i++ {
				_, err := Pick(ctx)
				assert.NoError(t, err)
			}
		}()

		select {
		case <-done:
		case <-time.After(10 * time.Second):
			t.Fatal("Pick deadlocked")
		}
	})

	t.Run("does not return a port that is held", func(t *testing.T) {
		l, err := net.Listen("tcp", ":0")
		require.NoError(t, err)
		defer func() { _ = l.Close() }()
		held := l.Addr().(*net.TCPAddr).Port

		port, err := Pick(ctx)
		require.NoError(t, err)
		assert.NotEqual(t, held, port)
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := Pick(cctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestWaitReady(t *testing.T) {
	t.Run("returns once the port accepts", func(t *testing.T) {
		port, err := Pick(context.Background())
		require.NoError(t, err)

		go func() {
			time.Sleep(150 * time.Millisecond)
			l, err := net.Listen("tcp", "127.0.0.1:"+strconv.Itoa(port))
			if err != nil {
				return
			}
			time.Sleep(2 * time.Second)
			_ = l.Close()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, WaitReady(ctx, "127.0.0.1", port, 50*time.Millisecond))
	})

	t.Run("times out when nothing listens", func(t *testing.T) {
		port, err := Pick(context.Background())
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		defer cancel()
		err = WaitReady(ctx, "127.0.0.1", port, 50*time.Millisecond)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestInUse(t *testing.T) {
	ctx := context.Background()

	t.Run("held port", func(t *testing.T) {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		defer func() { _ = l.Close() }()

		assert.True(t, InUse(ctx, "127.0.0.1", l.Addr().(*net.TCPAddr).Port, time.Second))
	})

	t.Run("free port", func(t *testing.T) {
		port, err := Pick(ctx)
		require.NoError(t, err)

		assert.False(t, InUse(ctx, "127.0.0.1", port, 200*time.Millisecond))
	})
}
