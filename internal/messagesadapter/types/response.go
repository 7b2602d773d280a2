package types

import (
	"github.com/anthropics/anthropic-sdk-go"

	"github.com/florianilch/claudine-gateway/internal/json"
)

// Message is the assistant response returned by POST /v1/messages.
type Message struct {
	ID           string                `json:"id"`
	Type         string                `json:"type"`
	Role         string                `json:"role"`
	Model        string                `json:"model"`
	Content      []ContentBlock        `json:"content"`
	StopReason   *anthropic.StopReason `json:"stop_reason"`
	StopSequence *string               `json:"stop_sequence"`
	Usage        Usage                 `json:"usage"`
}

// NewMessage returns an empty assistant message with zeroed usage.
func NewMessage(id, model string) Message {
	return Message{
		ID:      id,
		Type:    "message",
		Role:    "assistant",
		Model:   model,
		Content: []ContentBlock{},
	}
}

// Usage carries token counts.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// ContentBlock is an output content block: text or tool_use.
type ContentBlock struct {
	Type  string         `json:"type"`
	Text  string         `json:"text,omitempty"`
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`
}

// NewTextBlock returns a text block.
func NewTextBlock(text string) ContentBlock {
	return ContentBlock{Type: ContentBlockTypeText, Text: text}
}

// NewToolUseBlock returns a tool_use block. A nil input is encoded as {}.
func NewToolUseBlock(id, name string, input map[string]any) ContentBlock {
	return ContentBlock{Type: ContentBlockTypeToolUse, ID: id, Name: name, Input: input}
}

// MarshalJSON emits exactly the fields of the block's type. Text blocks always
// carry "text" and tool_use blocks always carry "input".
func (b ContentBlock) MarshalJSON() ([]byte, error) {
	switch b.Type {
	case ContentBlockTypeToolUse:
		input := b.Input
		if input == nil {
			input = map[string]any{}
		}
		return json.Marshal(struct {
			Type  string         `json:"type"`
			ID    string         `json:"id"`
			Name  string         `json:"name"`
			Input map[string]any `json:"input"`
		}{b.Type, b.ID, b.Name, input})
	default:
		return json.Marshal(struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}{b.Type, b.Text})
	}
}

// ModelList is the body of GET /v1/models. It merges the Anthropic and OpenAI
// list shapes; clients ignore the fields they do not know.
type ModelList struct {
	Object  string      `json:"object"`
	Data    []ModelInfo `json:"data"`
	HasMore bool        `json:"has_more"`
	FirstID *string     `json:"first_id"`
	LastID  *string     `json:"last_id"`
}

// ModelInfo is one model entry.
type ModelInfo struct {
	ID            string `json:"id"`
	Object        string `json:"object"`
	Type          string `json:"type"`
	DisplayName   string `json:"display_name"`
	Created       int64  `json:"created"`
	CreatedAt     string `json:"created_at"`
	OwnedBy       string `json:"owned_by"`
	ContextWindow int    `json:"context_window"`
}
