// Package proxy serves the Anthropic Messages API over HTTP.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/florianilch/claudine-gateway/internal/messagesadapter"
	"github.com/florianilch/claudine-gateway/internal/messagesadapter/types"
	"github.com/florianilch/claudine-gateway/internal/models"
	"github.com/florianilch/claudine-gateway/internal/observability/middleware"
)

// ReadinessChecker reports whether the application can serve traffic.
type ReadinessChecker interface {
	IsReady() bool
}

const defaultMaxRequestBytes = 32 << 20

type options struct {
	maxRequestBytes   int64
	readHeaderTimeout time.Duration
	writeTimeout      time.Duration
	logger            *slog.Logger
	info              Info
}

// Option configures a Proxy.
type Option func(*options)

// WithMaxRequestBytes limits the size of request bodies on /v1/messages.
func WithMaxRequestBytes(n int64) Option {
	return func(o *options) {
		o.maxRequestBytes = n
	}
}

// WithTimeouts sets the server's header read timeout and response write
// timeout. A zero write timeout leaves streams unbounded.
func WithTimeouts(readHeader, write time.Duration) Option {
	return func(o *options) {
		o.readHeaderTimeout = readHeader
		o.writeTimeout = write
	}
}

// WithLogger sets the logger used for request logs.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithInfo sets the document served at GET /.
func WithInfo(info Info) Option {
	return func(o *options) {
		o.info = info
	}
}

// Proxy is the HTTP front of the gateway.
type Proxy struct {
	handler http.Handler
	server  *http.Server
}

// Compile-time check to ensure Proxy implements http.Handler
var _ http.Handler = (*Proxy)(nil)

// New builds the router and middleware chain.
func New(
	adapter messagesadapter.MessagesAdapter,
	catalog *models.Catalog,
	health ReadinessChecker,
	opts ...Option,
) (*Proxy, error) {
	if adapter == nil {
		return nil, errors.New("adapter is required")
	}
	if catalog == nil {
		return nil, errors.New("model catalog is required")
	}
	if health == nil {
		return nil, errors.New("readiness checker is required")
	}

	o := options{
		maxRequestBytes:   defaultMaxRequestBytes,
		readHeaderTimeout: 10 * time.Second,
		logger:            slog.Default(),
		info: Info{
			Name:    "claudine",
			Version: "dev",
		},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.info.Endpoints == nil {
		o.info.Endpoints = []string{"POST /v1/messages", "GET /v1/models", "GET /v1/models/{id}"}
	}
	if o.info.Capabilities == nil {
		o.info.Capabilities = []string{"messages", "streaming", "tools"}
	}

	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSONAnthropicError(r.Context(), w,
			types.NewErrorResponse(types.ErrorTypeNotFound, "not found: "+r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(r.Context(), w,
			types.NewErrorResponse(types.ErrorTypeInvalidRequest, "method not allowed: "+r.Method),
			http.StatusMethodNotAllowed)
	})

	r.Get("/", infoHandler(o.info))
	r.Get("/health/liveness", livenessHandler())
	r.Get("/health/readiness", readinessHandler(health))

	r.Route("/v1", func(r chi.Router) {
		r.With(RequestSizeLimit(o.maxRequestBytes)).
			Method(http.MethodPost, "/messages", &MessagesHandler{Adapter: adapter})
		r.Get("/models", modelsHandler(catalog))
		r.Get("/models/{id}", modelHandler(catalog))
	})

	handler := applyMiddlewares(r,
		middleware.RequestIDGeneration,
		middleware.Logging(o.logger),
		middleware.TraceContextExtraction,
		middleware.RequestIDPropagation,
		Recovery,
	)

	return &Proxy{
		handler: handler,
		server: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: o.readHeaderTimeout,
			WriteTimeout:      o.writeTimeout,
		},
	}, nil
}

// ServeHTTP implements http.Handler.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.handler.ServeHTTP(w, r)
}

// Start listens on addr and serves in the background. The returned channel
// receives a runtime error, or is closed after Shutdown.
func (p *Proxy) Start(ctx context.Context, addr string) (<-chan error, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := p.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	slog.InfoContext(ctx, "proxy listening", "addr", ln.Addr().String())
	return errCh, nil
}

// Shutdown gracefully stops the server, waiting for in-flight requests until
// ctx is done.
func (p *Proxy) Shutdown(ctx context.Context) error {
	if err := p.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("proxy shutdown: %w", err)
	}
	return nil
}
