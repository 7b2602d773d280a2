package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/httplog/v3"
)

// Logging logs one ECS record per request. Successful health probes are not
// logged.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS.Concise(true),

		// Headers may carry upstream credentials and bodies carry prompts.
		LogRequestHeaders:  []string{"Content-Type", "Origin", "Anthropic-Version"},
		LogResponseHeaders: []string{},

		Skip: func(r *http.Request, status int) bool {
			return strings.HasPrefix(r.URL.Path, "/health/") && status < http.StatusBadRequest
		},

		RecoverPanics: false, // handled by the proxy's Recovery middleware
	})
}

// SetLogAttrs sets attributes on the request log. It is a no-op outside the
// Logging middleware.
func SetLogAttrs(ctx context.Context, attrs ...slog.Attr) {
	httplog.SetAttrs(ctx, attrs...)
}
