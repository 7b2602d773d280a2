package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/florianilch/claudine-gateway/internal/json"
)

// Content block type discriminators.
const (
	ContentBlockTypeText       = "text"
	ContentBlockTypeToolUse    = "tool_use"
	ContentBlockTypeToolResult = "tool_result"
)

// Tool choice type discriminators.
const (
	ToolChoiceTypeAuto = "auto"
	ToolChoiceTypeAny  = "any"
	ToolChoiceTypeTool = "tool"
	ToolChoiceTypeNone = "none"
)

// MessagesRequest is the body of POST /v1/messages.
// https://docs.claude.com/en/api/messages
type MessagesRequest struct {
	Model string `json:"model"`

	// MaxTokens is optional here; the adapter applies a default when unset.
	MaxTokens *int64 `json:"max_tokens,omitempty" validate:"omitempty,gt=0"`

	Messages []MessageParam `json:"messages" validate:"required,min=1,dive"`

	System *SystemPrompt `json:"system,omitempty"`

	Tools []Tool `json:"tools,omitempty" validate:"omitempty,dive"`

	ToolChoice *ToolChoice `json:"tool_choice,omitempty"`

	Temperature *float64 `json:"temperature,omitempty" validate:"omitempty,gte=0"`
	TopP        *float64 `json:"top_p,omitempty" validate:"omitempty,gte=0,lte=1"`
	TopK        *int64   `json:"top_k,omitempty" validate:"omitempty,gte=0"`

	StopSequences []string `json:"stop_sequences,omitempty"`

	Stream *bool `json:"stream,omitempty"`

	// Metadata is accepted for compatibility and otherwise ignored.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// IsStreaming reports whether the client asked for an SSE response.
func (r *MessagesRequest) IsStreaming() bool {
	return r.Stream != nil && *r.Stream
}

// MessageParam is one input message.
type MessageParam struct {
	Role    string         `json:"role" validate:"required,oneof=user assistant"`
	Content MessageContent `json:"content"`
}

// MessageContent is either a plain string or an ordered list of content blocks.
type MessageContent struct {
	Text   string
	Blocks []ContentBlockParam `validate:"dive"`

	// decoded is set once content was read from JSON.
	decoded bool
}

// IsText reports whether the content was sent as a plain string.
func (c MessageContent) IsText() bool {
	return c.Blocks == nil
}

// UnmarshalJSON decodes a string or an array of content blocks.
func (c *MessageContent) UnmarshalJSON(data []byte) error {
	text, blocks, err := decodeStringOrBlocks(data)
	if err != nil {
		return fmt.Errorf("message content: %w", err)
	}
	c.Text, c.Blocks = text, blocks
	c.decoded = true
	return nil
}

// MarshalJSON encodes the content in the shape it was received in.
func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.IsText() {
		return json.Marshal(c.Text)
	}
	return json.Marshal(c.Blocks)
}

// ContentBlockParam is an input content block. Only the fields relevant to
// the block's Type are populated; unknown block types are carried through
// undecoded and ignored by the adapter.
type ContentBlockParam struct {
	Type string `json:"type" validate:"required"`

	// text
	Text string `json:"text,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result. Name is also read from tool_result blocks when a client
	// embeds the tool name alongside the id.
	ToolUseID string             `json:"tool_use_id,omitempty"`
	Content   *ToolResultContent `json:"content,omitempty"`
	IsError   bool               `json:"is_error,omitempty"`
}

// ToolResultContent is either a plain string or a list of content blocks.
type ToolResultContent struct {
	Text   string
	Blocks []ContentBlockParam
}

// UnmarshalJSON decodes a string or an array of content blocks.
func (c *ToolResultContent) UnmarshalJSON(data []byte) error {
	text, blocks, err := decodeStringOrBlocks(data)
	if err != nil {
		return fmt.Errorf("tool result content: %w", err)
	}
	c.Text, c.Blocks = text, blocks
	return nil
}

// MarshalJSON encodes the content in the shape it was received in.
func (c ToolResultContent) MarshalJSON() ([]byte, error) {
	if c.Blocks == nil {
		return json.Marshal(c.Text)
	}
	return json.Marshal(c.Blocks)
}

// String concatenates the text of the content without a separator.
func (c *ToolResultContent) String() string {
	if c == nil {
		return ""
	}
	if c.Blocks == nil {
		return c.Text
	}
	var sb strings.Builder
	for _, b := range c.Blocks {
		if b.Type == ContentBlockTypeText {
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}

// SystemPrompt is either a plain string or a list of text blocks.
type SystemPrompt struct {
	Text   string
	Blocks []SystemBlock
}

// SystemBlock is one entry of a list-form system prompt.
type SystemBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// UnmarshalJSON decodes a string or an array of text blocks.
func (s *SystemPrompt) UnmarshalJSON(data []byte) error {
	switch result := gjson.ParseBytes(data); {
	case result.Type == gjson.String:
		s.Text = result.String()
		s.Blocks = nil
		return nil
	case result.IsArray():
		var blocks []SystemBlock
		if err := json.Unmarshal(data, &blocks); err != nil {
			return fmt.Errorf("system: %w", err)
		}
		s.Blocks = blocks
		if s.Blocks == nil {
			s.Blocks = []SystemBlock{}
		}
		return nil
	default:
		return errors.New("system must be either a string or an array of text blocks")
	}
}

// MarshalJSON encodes the prompt in the shape it was received in.
func (s SystemPrompt) MarshalJSON() ([]byte, error) {
	if s.Blocks == nil {
		return json.Marshal(s.Text)
	}
	return json.Marshal(s.Blocks)
}

// String returns the prompt text, joining list entries with a newline.
func (s *SystemPrompt) String() string {
	if s == nil {
		return ""
	}
	if s.Blocks == nil {
		return s.Text
	}
	texts := make([]string, 0, len(s.Blocks))
	for _, b := range s.Blocks {
		texts = append(texts, b.Text)
	}
	return strings.Join(texts, "\n")
}

// Tool is a client tool definition.
type Tool struct {
	Name        string         `json:"name" validate:"required"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
}

// ToolChoice is the caller's tool-use directive.
type ToolChoice struct {
	Type string `json:"type" validate:"required,oneof=auto any tool none"`
	Name string `json:"name,omitempty"`

	DisableParallelToolUse *bool `json:"disable_parallel_tool_use,omitempty"`
}

// decodeStringOrBlocks decodes a union of a JSON string and an array of
// content blocks. Arrays always yield a non-nil slice.
func decodeStringOrBlocks(data []byte) (string, []ContentBlockParam, error) {
	result := gjson.ParseBytes(data)
	switch {
	case result.Type == gjson.String:
		return result.String(), nil, nil
	case result.IsArray():
		var blocks []ContentBlockParam
		if err := json.Unmarshal(data, &blocks); err != nil {
			return "", nil, err
		}
		if blocks == nil {
			blocks = []ContentBlockParam{}
		}
		return "", blocks, nil
	default:
		return "", nil, errors.New("must be either a string or an array of content blocks")
	}
}
