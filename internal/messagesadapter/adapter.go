package messagesadapter

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/florianilch/claudine-gateway/internal/generation"
	"github.com/florianilch/claudine-gateway/internal/messagesadapter/types"
	"github.com/florianilch/claudine-gateway/internal/models"
)

// Adapter defines the contract for serving a client protocol on top of a
// generation Source.
//
// Type parameters:
//   - TRequest:  Client-specific request structure
//   - TResponse: Client-specific response structure
//   - TEvent:    Client-specific streaming event
type Adapter[TRequest, TResponse, TEvent any] interface {
	// ProcessRequest normalizes the client request, consumes the whole generation
	// and returns the aggregated response.
	ProcessRequest(ctx context.Context, clientReq *TRequest) (*TResponse, error)

	// ProcessStreamingRequest normalizes the client request and returns a lazy
	// sequence of client events. Generation starts when the sequence is ranged over.
	ProcessStreamingRequest(ctx context.Context, clientReq *TRequest) (iter.Seq[TEvent], error)
}

// Type aliases for the Anthropic Messages operation.
type (
	MessagesRequest = types.MessagesRequest
	Message         = types.Message
	StreamEvent     = types.StreamEvent

	MessagesAdapter = Adapter[MessagesRequest, Message, StreamEvent]
)

// GenerationAdapter serves the Messages API from a generation Source.
// It holds no per-request state and is safe for concurrent use.
type GenerationAdapter struct {
	source  generation.Source
	catalog *models.Catalog
}

// Compile-time check to ensure GenerationAdapter implements MessagesAdapter
var _ MessagesAdapter = (*GenerationAdapter)(nil)

// New returns an adapter reading from source and resolving models against catalog.
func New(source generation.Source, catalog *models.Catalog) *GenerationAdapter {
	return &GenerationAdapter{source: source, catalog: catalog}
}

// ProcessRequest implements MessagesAdapter.
func (a *GenerationAdapter) ProcessRequest(ctx context.Context, req *MessagesRequest) (*Message, error) {
	genReq, err := a.normalize(ctx, req)
	if err != nil {
		return nil, err
	}

	msg, err := Aggregate(ctx, newMessageID(), a.responseModel(req), a.source.Stream(ctx, genReq))
	if err != nil {
		return nil, types.NewErrorResponse(types.ErrorTypeAPI, err.Error())
	}
	return msg, nil
}

// ProcessStreamingRequest implements MessagesAdapter.
func (a *GenerationAdapter) ProcessStreamingRequest(ctx context.Context, req *MessagesRequest) (iter.Seq[StreamEvent], error) {
	genReq, err := a.normalize(ctx, req)
	if err != nil {
		return nil, err
	}

	enc := NewStreamEncoder(newMessageID(), a.responseModel(req))
	return enc.EncodeStream(a.source.Stream(ctx, genReq)), nil
}

func (a *GenerationAdapter) normalize(ctx context.Context, req *MessagesRequest) (*generation.Request, error) {
	genReq, err := Normalize(req, a.catalog)
	if err != nil {
		var errResp *types.ErrorResponse
		if errors.As(err, &errResp) {
			return nil, errResp
		}
		return nil, types.NewErrorResponse(types.ErrorTypeInvalidRequest, err.Error())
	}

	slog.DebugContext(ctx, "normalized request",
		"model", req.Model,
		"backend_model", genReq.Params.Model,
		"turns", len(genReq.Conversation),
		"tools", len(genReq.Tools),
		"tool_choice", genReq.ToolChoice.Mode.String(),
	)
	return genReq, nil
}

// responseModel echoes the requested model, or the catalog default when none was given.
func (a *GenerationAdapter) responseModel(req *MessagesRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return a.catalog.Default().ID
}

func newMessageID() string {
	return "msg_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
