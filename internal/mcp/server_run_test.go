package mcp

import (
	"context"
	"testing"
	"time"
)

func TestServer_Run_ServerModeGracefulShutdown(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Mode = "server"
	cfg.Port = 0 // ephemeral port so parallel test runs do not collide

	server, err := NewServer(cfg, testService(t, nil))
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- server.Run(ctx)
	}()

	// Give the listener time to come up, then trigger shutdown.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, expected clean shutdown", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Run() did not return after context cancellation")
	}
}

func TestServer_Run_ServerModeImmediateCancel(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Mode = "server"
	cfg.Port = 0

	server, err := NewServer(cfg, testService(t, nil))
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() {
		done <- server.Run(ctx)
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, expected clean shutdown", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Run() did not return after context cancellation")
	}
}
