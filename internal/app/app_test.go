package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"
)

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer func() { _ = ln.Close() }()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestAppLifecycle(t *testing.T) {
	slog.SetDefault(slog.New(slog.DiscardHandler))

	port := freePort(t)
	cfg, err := LoadConfig("", nil, environ(
		"CLAUDINE_SERVER__PORT="+strconv.Itoa(port),
		"CLAUDINE_UPSTREAM__PROVIDER=anthropic",
		"CLAUDINE_AUTH__STORAGE=env",
	))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	application, err := New(t.Context(), cfg, BuildInfo{Version: "test"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if application.health.IsReady() {
		t.Error("IsReady() = true before Start, want false")
	}

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- application.Start(ctx) }()

	base := "http://" + cfg.Server.Addr()
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(base + "/health/readiness")
		if err == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("proxy did not become ready: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() error = %v, want nil after cancellation", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Start() did not return after cancellation")
	}
	if application.health.IsReady() {
		t.Error("IsReady() = true after shutdown, want false")
	}
}

func TestStartFailsOnBusyPort(t *testing.T) {
	slog.SetDefault(slog.New(slog.DiscardHandler))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer func() { _ = ln.Close() }()

	port := ln.Addr().(*net.TCPAddr).Port
	cfg, err := LoadConfig("", nil, environ(
		"CLAUDINE_SERVER__PORT="+strconv.Itoa(port),
		"CLAUDINE_UPSTREAM__PROVIDER=anthropic",
		"CLAUDINE_AUTH__STORAGE=env",
	))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	application, err := New(t.Context(), cfg, BuildInfo{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := application.Start(t.Context()); err == nil {
		t.Error("Start() error = nil, want listen error")
	}
}
