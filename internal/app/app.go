// Package app wires configuration, credentials, the generation engine and the
// HTTP proxy together and runs them.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/florianilch/claudine-gateway/internal/messagesadapter"
	"github.com/florianilch/claudine-gateway/internal/proxy"
	"github.com/florianilch/claudine-gateway/internal/tokensource"
)

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version string
	Commit  string
}

// readiness reports whether the proxy may receive traffic.
type readiness struct {
	ready atomic.Bool
}

// Compile-time check that readiness implements proxy.ReadinessChecker interface
var _ proxy.ReadinessChecker = (*readiness)(nil)

func (r *readiness) IsReady() bool {
	return r.ready.Load()
}

// App orchestrates the lifecycle of the proxy server and related services.
type App struct {
	cfg    *Config
	proxy  *proxy.Proxy
	health *readiness
}

// Option configures an App.
type Option func(*options)

type options struct {
	upstreamTransport http.RoundTripper
}

// WithUpstreamTransport sets the base transport for upstream calls.
func WithUpstreamTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.upstreamTransport = rt
	}
}

// New builds the credential store, generation engine, model catalog and proxy
// described by cfg.
func New(ctx context.Context, cfg *Config, build BuildInfo, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	store, err := cfg.Auth.NewTokenStore()
	if err != nil {
		return nil, fmt.Errorf("failed to create token store: %w", err)
	}

	source, err := cfg.Upstream.NewSource(ctx, tokensource.New(store), o.upstreamTransport)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s source: %w", cfg.Upstream.Provider, err)
	}

	catalog, err := cfg.Models.NewCatalog(cfg.Upstream.Provider)
	if err != nil {
		return nil, fmt.Errorf("failed to build model catalog: %w", err)
	}

	health := &readiness{}
	proxyServer, err := proxy.New(messagesadapter.New(source, catalog), catalog, health,
		proxy.WithMaxRequestBytes(cfg.Server.MaxRequestBytes),
		proxy.WithTimeouts(cfg.Server.ReadHeaderTimeout, cfg.Server.WriteTimeout),
		proxy.WithInfo(proxy.Info{
			Name:     "claudine",
			Version:  build.Version,
			Provider: cfg.Upstream.Provider,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create proxy: %w", err)
	}

	slog.DebugContext(ctx, "app configured",
		"provider", cfg.Upstream.Provider,
		"token_storage", cfg.Auth.Storage,
		"models", len(catalog.List()),
		"default_model", catalog.Default().ID,
	)

	return &App{
		cfg:    cfg,
		proxy:  proxyServer,
		health: health,
	}, nil
}

// Start starts all services and blocks until ctx is cancelled or a service fails.
// Uses errgroup for runtime error monitoring and shutdown function collection for coordinated cleanup.
func (a *App) Start(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	var shutdownFuncs []func(context.Context) error

	// Startup phase: Start services
	slog.InfoContext(gCtx, "starting proxy server")
	proxyErrCh, err := a.proxy.Start(gCtx, a.cfg.Server.Addr())
	if err != nil {
		return fmt.Errorf("proxy startup failed: %w", err)
	}
	shutdownFuncs = append(shutdownFuncs, a.proxy.Shutdown)

	a.health.ready.Store(true)

	// Monitor runtime errors - errgroup cancels context on first error
	g.Go(func() error {
		select {
		case err, ok := <-proxyErrCh:
			if ok && err != nil {
				slog.ErrorContext(gCtx, "proxy runtime error", "error", err)
				return fmt.Errorf("proxy: %w", err)
			}
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	runtimeErr := g.Wait()

	a.health.ready.Store(false)
	slog.InfoContext(ctx, "shutting down services")

	// Shutdown phase: Stop all services
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if runtimeErr != nil {
		errs = append(errs, fmt.Errorf("runtime: %w", runtimeErr))
	}

	for i := len(shutdownFuncs) - 1; i >= 0; i-- {
		if err := shutdownFuncs[i](shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "service shutdown failed", "error", err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	slog.InfoContext(ctx, "application stopped")
	return nil
}
