package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/florianilch/claudine-gateway/internal/json"
	"github.com/florianilch/claudine-gateway/internal/messagesadapter"
	"github.com/florianilch/claudine-gateway/internal/messagesadapter/types"
	"github.com/florianilch/claudine-gateway/internal/observability/middleware"
)

// MessagesHandler serves POST /v1/messages.
type MessagesHandler struct {
	Adapter messagesadapter.MessagesAdapter
}

// Compile-time check to ensure MessagesHandler implements http.Handler
var _ http.Handler = (*MessagesHandler)(nil)

// ServeHTTP implements http.Handler interface for streaming or non-streaming requests.
func (h *MessagesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, errResp := decodeMessagesRequest(ctx, r.Body)
	if errResp != nil {
		writeJSONAnthropicError(ctx, w, errResp)
		return
	}

	middleware.SetLogAttrs(ctx,
		slog.String("model", req.Model),
		slog.Bool("stream", req.IsStreaming()),
	)

	if req.IsStreaming() {
		h.streamResponse(ctx, w, req)
	} else {
		h.writeResponse(ctx, w, req)
	}
}

// decodeMessagesRequest reads and validates the request body.
func decodeMessagesRequest(ctx context.Context, body io.Reader) (*types.MessagesRequest, *types.ErrorResponse) {
	data, err := io.ReadAll(body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			slog.WarnContext(ctx, "request exceeds size limit", "limit_bytes", maxBytesErr.Limit)
			return nil, types.NewErrorResponse(types.ErrorTypeRequestTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", maxBytesErr.Limit))
		}
		slog.ErrorContext(ctx, "failed to read request", "error", err)
		return nil, types.NewErrorResponse(types.ErrorTypeInvalidRequest, "failed to read request body")
	}

	var req types.MessagesRequest
	if err := json.Unmarshal(data, &req); err != nil {
		slog.WarnContext(ctx, "failed to decode request", "error", err)
		return nil, types.NewErrorResponse(types.ErrorTypeInvalidRequest, "invalid request body: "+err.Error())
	}

	if err := req.Validate(); err != nil {
		slog.WarnContext(ctx, "invalid request", "error", err)
		var errResp *types.ErrorResponse
		if errors.As(err, &errResp) {
			return nil, errResp
		}
		return nil, types.NewErrorResponse(types.ErrorTypeInvalidRequest, err.Error())
	}

	return &req, nil
}

// writeResponse handles non-streaming message requests.
func (h *MessagesHandler) writeResponse(ctx context.Context, w http.ResponseWriter, req *types.MessagesRequest) {
	if ctx.Err() != nil {
		return
	}
	msg, err := h.Adapter.ProcessRequest(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			slog.DebugContext(ctx, "client disconnected before response")
			return
		}
		slog.ErrorContext(ctx, "request failed", "error", err)
		writeJSONAnthropicError(ctx, w, asErrorResponse(err))
		return
	}

	writeJSON(ctx, w, msg, http.StatusOK)
}

// streamResponse streams message events using SSE. Each event is flushed
// before the next one is pulled from the adapter.
func (h *MessagesHandler) streamResponse(ctx context.Context, w http.ResponseWriter, req *types.MessagesRequest) {
	if ctx.Err() != nil {
		return
	}
	stream, err := h.Adapter.ProcessStreamingRequest(ctx, req)
	if err != nil {
		slog.ErrorContext(ctx, "streaming request failed", "error", err)
		writeJSONAnthropicError(ctx, w, asErrorResponse(err))
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		slog.ErrorContext(ctx, "SSE not supported", "error", err)
		return
	}

	for ev := range stream {
		if ctx.Err() != nil {
			slog.DebugContext(ctx, "client disconnected during stream")
			return
		}

		if ev.Event == types.EventError {
			slog.ErrorContext(ctx, "stream error", "error", ev.Data)
		}

		if err := sse.WriteEvent(ev.Event, ev.Data); err != nil {
			slog.ErrorContext(ctx, "failed to write event", "event", ev.Event, "error", err)
			return
		}
	}
}

// asErrorResponse returns err as an Anthropic error envelope, wrapping
// unexpected errors as api_error.
func asErrorResponse(err error) *types.ErrorResponse {
	var errResp *types.ErrorResponse
	if errors.As(err, &errResp) {
		return errResp
	}
	return types.NewErrorResponse(types.ErrorTypeAPI, http.StatusText(http.StatusInternalServerError))
}
