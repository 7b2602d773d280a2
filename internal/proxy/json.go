package proxy

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/florianilch/claudine-gateway/internal/json"
	"github.com/florianilch/claudine-gateway/internal/messagesadapter/types"
)

// statusOverloaded is Anthropic's non-standard status for overloaded_error.
const statusOverloaded = 529

// writeJSON writes a JSON response with the given status code.
// Logs encoding failures internally using the provided context.
func writeJSON(ctx context.Context, w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	// Headers and status are written before encoding to avoid buffering.
	// If encoding fails, the client may receive a partial response.
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.ErrorContext(ctx, "failed to encode JSON response", "error", err)
	}
}

// writeJSONAnthropicError writes an Anthropic error envelope with the HTTP
// status code that belongs to its error type.
func writeJSONAnthropicError(ctx context.Context, w http.ResponseWriter, errResp *types.ErrorResponse) {
	writeJSON(ctx, w, errResp, errorStatus(errResp.Err.Type))
}

// errorStatus maps Anthropic error types to HTTP status codes.
// https://docs.claude.com/en/api/errors
func errorStatus(errType string) int {
	switch errType {
	case types.ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case types.ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case types.ErrorTypePermission:
		return http.StatusForbidden
	case types.ErrorTypeNotFound:
		return http.StatusNotFound
	case types.ErrorTypeRequestTooLarge:
		return http.StatusRequestEntityTooLarge
	case types.ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case types.ErrorTypeOverloaded:
		return statusOverloaded
	default:
		return http.StatusInternalServerError
	}
}
