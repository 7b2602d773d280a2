package messagesadapter

import (
	"iter"

	"github.com/florianilch/claudine-gateway/internal/generation"
	"github.com/florianilch/claudine-gateway/internal/messagesadapter/types"
)

type blockKind int

const (
	blockNone blockKind = iota
	blockText
	blockTool
)

// StreamEncoder re-encodes generation events as Messages SSE events.
//
// At most one content block is open at a time. Block indices start at zero
// and are never reused. A StepFinish or StreamError ends the stream; later
// events are ignored. An encoder serves a single response.
type StreamEncoder struct {
	id    string
	model string

	nextIndex int
	open      blockKind
	started   bool
	done      bool
}

// NewStreamEncoder returns an encoder for the message with the given id and model.
func NewStreamEncoder(id, model string) *StreamEncoder {
	return &StreamEncoder{id: id, model: model}
}

// Done reports whether the stream has reached a terminal state.
func (e *StreamEncoder) Done() bool {
	return e.done
}

// Encode returns the SSE events produced by ev, in emission order.
func (e *StreamEncoder) Encode(ev generation.Event) []types.StreamEvent {
	if e.done {
		return nil
	}

	var out []types.StreamEvent
	if !e.started {
		e.started = true
		out = append(out, e.messageStart())
	}

	switch ev := ev.(type) {
	case generation.TextDelta:
		if ev.Text == "" {
			break
		}
		if e.open != blockText {
			out = e.closeBlock(out)
			out = append(out, e.startBlock(blockText, types.NewTextBlock("")))
		}
		out = append(out, e.delta(types.TextDelta{Type: types.DeltaTypeText, Text: ev.Text}))

	case generation.ToolCallStart:
		out = e.closeBlock(out)
		out = append(out, e.startBlock(blockTool, types.NewToolUseBlock(ev.ID, ev.Name, nil)))

	case generation.ToolCallDelta:
		// Fragments outside a tool block have nowhere to go.
		if e.open == blockTool {
			out = append(out, e.delta(types.InputJSONDelta{Type: types.DeltaTypeInputJSON, PartialJSON: ev.PartialJSON}))
		}

	case generation.ToolCallEnd:
		if e.open == blockTool {
			out = e.closeBlock(out)
		}

	case generation.ToolCallComplete:
		// The streamed deltas already carried the input.

	case generation.StepFinish:
		out = e.closeBlock(out)
		out = append(out,
			types.StreamEvent{
				Event: types.EventMessageDelta,
				Data: types.MessageDeltaEvent{
					Type:  types.EventMessageDelta,
					Delta: types.MessageDelta{StopReason: stopReason(ev.Reason)},
					Usage: types.DeltaUsage{OutputTokens: ev.OutputTokens},
				},
			},
			types.StreamEvent{
				Event: types.EventMessageStop,
				Data:  types.MessageStopEvent{Type: types.EventMessageStop},
			},
		)
		e.done = true

	case generation.StreamFinish:
		out = e.closeBlock(out)
		e.done = true

	case generation.StreamError:
		// No cleanup events follow an error.
		out = append(out, types.StreamEvent{
			Event: types.EventError,
			Data:  types.NewErrorResponse(types.ErrorTypeAPI, ev.Message()),
		})
		e.done = true
	}

	return out
}

// Finish returns the events that end a sequence which stopped without a
// terminal event. An encoder that never saw an event emits nothing.
func (e *StreamEncoder) Finish() []types.StreamEvent {
	if e.done || !e.started {
		e.done = true
		return nil
	}
	e.done = true
	return e.closeBlock(nil)
}

// EncodeStream lazily re-encodes events. Each source event is pulled only after
// the events produced by the previous one have been consumed. Stopping the
// returned sequence early stops the source.
func (e *StreamEncoder) EncodeStream(events iter.Seq[generation.Event]) iter.Seq[types.StreamEvent] {
	return func(yield func(types.StreamEvent) bool) {
		for ev := range events {
			for _, out := range e.Encode(ev) {
				if !yield(out) {
					return
				}
			}
			if e.done {
				return
			}
		}
		for _, out := range e.Finish() {
			if !yield(out) {
				return
			}
		}
	}
}

func (e *StreamEncoder) messageStart() types.StreamEvent {
	return types.StreamEvent{
		Event: types.EventMessageStart,
		Data: types.MessageStartEvent{
			Type:    types.EventMessageStart,
			Message: types.NewMessage(e.id, e.model),
		},
	}
}

func (e *StreamEncoder) startBlock(kind blockKind, block types.ContentBlock) types.StreamEvent {
	e.open = kind
	return types.StreamEvent{
		Event: types.EventContentBlockStart,
		Data: types.ContentBlockStartEvent{
			Type:         types.EventContentBlockStart,
			Index:        e.nextIndex,
			ContentBlock: block,
		},
	}
}

func (e *StreamEncoder) delta(delta any) types.StreamEvent {
	return types.StreamEvent{
		Event: types.EventContentBlockDelta,
		Data: types.ContentBlockDeltaEvent{
			Type:  types.EventContentBlockDelta,
			Index: e.nextIndex,
			Delta: delta,
		},
	}
}

// closeBlock appends a content_block_stop for the open block, if any.
func (e *StreamEncoder) closeBlock(out []types.StreamEvent) []types.StreamEvent {
	if e.open == blockNone {
		return out
	}
	out = append(out, types.StreamEvent{
		Event: types.EventContentBlockStop,
		Data: types.ContentBlockStopEvent{
			Type:  types.EventContentBlockStop,
			Index: e.nextIndex,
		},
	})
	e.open = blockNone
	e.nextIndex++
	return out
}
