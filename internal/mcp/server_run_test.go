package mcp

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"
)

// runAsync starts s.Run and returns a channel receiving its result
func runAsync(ctx context.Context, s *Server) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()
	return done
}

func waitRun(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return in time")
		return nil
	}
}

func TestServer_Run_StdioClosedInput(t *testing.T) {
	s, _ := newTestServer(t, nil)
	s.stdin = strings.NewReader("")
	s.stdout = io.Discard

	if err := waitRun(t, runAsync(context.Background(), s)); err != nil {
		t.Errorf("Run() error = %v, want nil on closed input", err)
	}
}

func TestServer_Run_StdioContextCancellation(t *testing.T) {
	s, _ := newTestServer(t, nil)
	r, w := io.Pipe()
	defer w.Close()
	s.stdin = r
	s.stdout = io.Discard

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, s)
	time.Sleep(50 * time.Millisecond)
	cancel()

	if err := waitRun(t, done); err != nil {
		t.Errorf("Run() error = %v, want nil after cancellation", err)
	}
}

func TestServer_Run_ServerMode(t *testing.T) {
	s, _ := newTestServer(t, nil)
	s.config.Mode = "server"
	s.config.Port = 0

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, s)
	time.Sleep(100 * time.Millisecond)
	cancel()

	if err := waitRun(t, done); err != nil {
		t.Errorf("Run() error = %v, want graceful shutdown", err)
	}
}
