package anthropicclaude

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/tidwall/gjson"

	"github.com/florianilch/claudine-gateway/internal/generation"
	"github.com/florianilch/claudine-gateway/internal/json"
)

// Source generates responses with the Anthropic Messages streaming API.
type Source struct {
	client *anthropic.Client
}

// Compile-time check to ensure Source implements generation.Source
var _ generation.Source = (*Source)(nil)

// Option configures a Source.
type Option func(*options)

type options struct {
	baseURL string
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(o *options) {
		o.baseURL = baseURL
	}
}

// New creates a Source. The transport must authenticate requests, see NewAuthTransport.
func New(transport http.RoundTripper, opts ...Option) (*Source, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	client, err := newClient(transport, o.baseURL)
	if err != nil {
		return nil, err
	}
	return &Source{client: client}, nil
}

// Stream implements generation.Source.
func (s *Source) Stream(ctx context.Context, req *generation.Request) iter.Seq[generation.Event] {
	return func(yield func(generation.Event) bool) {
		params, err := toMessageNewParams(req)
		if err != nil {
			yield(generation.StreamError{Err: err})
			return
		}

		stream := s.client.Messages.NewStreaming(ctx, params)
		defer func() {
			if err := stream.Close(); err != nil {
				slog.DebugContext(ctx, "failed to close upstream stream", "error", err)
			}
		}()

		translateStream(ctx, stream, yield)
	}
}

// messageStream is the subset of the SDK stream consumed by translateStream.
type messageStream interface {
	Next() bool
	Current() anthropic.MessageStreamEventUnion
	Err() error
}

// toolBlock tracks a streamed tool_use content block.
type toolBlock struct {
	id   string
	name string
	args []byte
}

// translateStream maps Anthropic stream events to generation events.
//
// Content block indices are Anthropic's mixed text/tool indices; tool blocks
// are tracked by index to correlate deltas and stops with their call id.
func translateStream(ctx context.Context, stream messageStream, yield func(generation.Event) bool) {
	var (
		tools        = make(map[int64]*toolBlock)
		inputTokens  int64
		outputTokens int64
		stopReason   anthropic.StopReason
	)

	for stream.Next() {
		event := stream.Current()

		// AsAny() returns the concrete type for Anthropic SDK union discrimination.
		switch ev := event.AsAny().(type) {
		case anthropic.MessageStartEvent:
			inputTokens = ev.Message.Usage.InputTokens

		case anthropic.ContentBlockStartEvent:
			switch ev.ContentBlock.Type {
			case "tool_use":
				tools[ev.Index] = &toolBlock{id: ev.ContentBlock.ID, name: ev.ContentBlock.Name}
				if !yield(generation.ToolCallStart{ID: ev.ContentBlock.ID, Name: ev.ContentBlock.Name}) {
					return
				}
			case "text":
				if ev.ContentBlock.Text != "" && !yield(generation.TextDelta{Text: ev.ContentBlock.Text}) {
					return
				}
			}
			// Thinking and server tool blocks have no counterpart in generation events.

		case anthropic.ContentBlockDeltaEvent:
			switch delta := ev.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if !yield(generation.TextDelta{Text: delta.Text}) {
					return
				}
			case anthropic.InputJSONDelta:
				tool, ok := tools[ev.Index]
				if !ok {
					continue
				}
				tool.args = append(tool.args, delta.PartialJSON...)
				if !yield(generation.ToolCallDelta{ID: tool.id, PartialJSON: delta.PartialJSON}) {
					return
				}
			}

		case anthropic.ContentBlockStopEvent:
			tool, ok := tools[ev.Index]
			if !ok {
				continue
			}
			delete(tools, ev.Index)
			if !yield(generation.ToolCallEnd{ID: tool.id}) {
				return
			}
			if !yield(generation.ToolCallComplete{ID: tool.id, Name: tool.name, Input: parseToolInput(ctx, tool)}) {
				return
			}

		case anthropic.MessageDeltaEvent:
			stopReason = ev.Delta.StopReason
			outputTokens = ev.Usage.OutputTokens
			if ev.Usage.InputTokens > 0 {
				inputTokens = ev.Usage.InputTokens
			}

		case anthropic.MessageStopEvent:
			if !yield(generation.StepFinish{
				Reason:       toFinishReason(stopReason),
				InputTokens:  inputTokens,
				OutputTokens: outputTokens,
			}) {
				return
			}
			yield(generation.StreamFinish{})
			return
		}
	}

	if err := stream.Err(); err != nil {
		yield(generation.StreamError{Err: toError(err)})
		return
	}
	if err := ctx.Err(); err != nil {
		yield(generation.StreamError{Err: err})
		return
	}
	yield(generation.StreamError{Err: errors.New("upstream stream ended before message_stop")})
}

// parseToolInput decodes the accumulated tool arguments. Empty or malformed
// arguments yield an empty object.
func parseToolInput(ctx context.Context, tool *toolBlock) map[string]any {
	input := map[string]any{}
	if !gjson.ValidBytes(tool.args) || !gjson.ParseBytes(tool.args).IsObject() {
		if len(tool.args) > 0 {
			slog.WarnContext(ctx, "discarding malformed tool input", "tool", tool.name, "tool_call_id", tool.id)
		}
		return input
	}
	if err := json.Unmarshal(tool.args, &input); err != nil {
		slog.WarnContext(ctx, "discarding malformed tool input", "tool", tool.name, "tool_call_id", tool.id, "error", err)
		return map[string]any{}
	}
	return input
}

// toFinishReason maps Anthropic stop reasons to generation finish reasons.
func toFinishReason(stopReason anthropic.StopReason) generation.FinishReason {
	switch stopReason {
	case anthropic.StopReasonEndTurn, anthropic.StopReasonStopSequence:
		return generation.FinishReasonStop
	case anthropic.StopReasonMaxTokens:
		return generation.FinishReasonLength
	case anthropic.StopReasonToolUse:
		return generation.FinishReasonToolCalls
	default:
		// Refusal and pause_turn have no dedicated finish reason.
		return generation.FinishReasonOther
	}
}
