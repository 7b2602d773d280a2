package types

import "github.com/anthropics/anthropic-sdk-go"

// SSE event names of the Messages streaming protocol.
const (
	EventMessageStart      = "message_start"
	EventContentBlockStart = "content_block_start"
	EventContentBlockDelta = "content_block_delta"
	EventContentBlockStop  = "content_block_stop"
	EventMessageDelta      = "message_delta"
	EventMessageStop       = "message_stop"
	EventError             = "error"
)

// Delta type discriminators.
const (
	DeltaTypeText      = "text_delta"
	DeltaTypeInputJSON = "input_json_delta"
)

// MessageStartEvent opens a stream.
type MessageStartEvent struct {
	Type    string  `json:"type"`
	Message Message `json:"message"`
}

// ContentBlockStartEvent opens the content block at Index.
type ContentBlockStartEvent struct {
	Type         string       `json:"type"`
	Index        int          `json:"index"`
	ContentBlock ContentBlock `json:"content_block"`
}

// ContentBlockDeltaEvent appends to the open content block. Delta is a
// TextDelta or an InputJSONDelta.
type ContentBlockDeltaEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
	Delta any    `json:"delta"`
}

// TextDelta appends text to a text block.
type TextDelta struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// InputJSONDelta appends a raw JSON fragment to a tool_use block's input.
type InputJSONDelta struct {
	Type        string `json:"type"`
	PartialJSON string `json:"partial_json"`
}

// ContentBlockStopEvent closes the content block at Index.
type ContentBlockStopEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
}

// MessageDeltaEvent reports the stop reason and final output usage.
type MessageDeltaEvent struct {
	Type  string       `json:"type"`
	Delta MessageDelta `json:"delta"`
	Usage DeltaUsage   `json:"usage"`
}

// MessageDelta carries top-level message changes.
type MessageDelta struct {
	StopReason   anthropic.StopReason `json:"stop_reason"`
	StopSequence *string              `json:"stop_sequence"`
}

// DeltaUsage is the cumulative output usage.
type DeltaUsage struct {
	OutputTokens int64 `json:"output_tokens"`
}

// MessageStopEvent ends a successful stream.
type MessageStopEvent struct {
	Type string `json:"type"`
}

// StreamEvent is one server-sent event: its name and JSON payload.
type StreamEvent struct {
	Event string
	Data  any
}
