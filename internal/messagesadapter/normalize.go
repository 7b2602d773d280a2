package messagesadapter

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/florianilch/claudine-gateway/internal/generation"
	"github.com/florianilch/claudine-gateway/internal/json"
	"github.com/florianilch/claudine-gateway/internal/messagesadapter/types"
	"github.com/florianilch/claudine-gateway/internal/models"
)

const (
	// defaultMaxTokens applies when the client leaves max_tokens unset.
	defaultMaxTokens = 8192

	// unknownToolName names a tool result whose call cannot be found.
	unknownToolName = "unknown"
)

// Normalize converts a Messages request into a provider-neutral generation request.
// The model id is resolved against catalog; unknown ids fall back to its default.
// A trailing assistant turn without content is dropped.
func Normalize(req *types.MessagesRequest, catalog *models.Catalog) (*generation.Request, error) {
	conv, err := normalizeConversation(req)
	if err != nil {
		return nil, err
	}

	return &generation.Request{
		Conversation: conv.TrimTrailingEmptyAssistant(),
		Tools:        normalizeTools(req.Tools),
		ToolChoice:   normalizeToolChoice(req.ToolChoice),
		Params:       normalizeParams(req, catalog),
	}, nil
}

func normalizeConversation(req *types.MessagesRequest) (generation.Conversation, error) {
	conv := make(generation.Conversation, 0, len(req.Messages)+1)

	if req.System != nil {
		conv = append(conv, generation.SystemTurn{Text: req.System.String()})
	}

	// Tool results carry only the call id, so names are resolved from a full pass first.
	toolNames := collectToolNames(req.Messages)

	for i, msg := range req.Messages {
		switch msg.Role {
		case "user":
			conv = append(conv, normalizeUserMessage(msg.Content, toolNames)...)
		case "assistant":
			turn, err := normalizeAssistantMessage(msg.Content)
			if err != nil {
				return nil, fmt.Errorf("messages[%d]: %w", i, err)
			}
			conv = append(conv, turn)
		default:
			return nil, types.NewErrorResponse(types.ErrorTypeInvalidRequest,
				fmt.Sprintf("messages[%d].role: unsupported role %q", i, msg.Role))
		}
	}

	return conv, nil
}

// collectToolNames maps every tool_use id in the conversation to its tool name.
func collectToolNames(messages []types.MessageParam) map[string]string {
	names := make(map[string]string)
	for _, msg := range messages {
		if msg.Role != "assistant" {
			continue
		}
		for _, block := range msg.Content.Blocks {
			if block.Type == types.ContentBlockTypeToolUse && block.ID != "" {
				names[block.ID] = block.Name
			}
		}
	}
	return names
}

// normalizeUserMessage emits the tool results of a message before its text,
// regardless of how the blocks were interleaved.
func normalizeUserMessage(content types.MessageContent, toolNames map[string]string) []generation.Turn {
	if content.IsText() {
		return []generation.Turn{generation.UserTextTurn{Text: content.Text}}
	}

	var (
		results []generation.ToolResult
		texts   []string
	)
	for _, block := range content.Blocks {
		switch block.Type {
		case types.ContentBlockTypeToolResult:
			results = append(results, generation.ToolResult{
				ToolCallID: block.ToolUseID,
				ToolName:   resolveToolName(block, toolNames),
				Output:     block.Content.String(),
				IsError:    block.IsError,
			})
		case types.ContentBlockTypeText:
			texts = append(texts, block.Text)
		}
	}

	var turns []generation.Turn
	if len(results) > 0 {
		turns = append(turns, generation.ToolResultTurn{Results: results})
	}
	if len(texts) > 0 {
		turns = append(turns, generation.UserTextTurn{Text: strings.Join(texts, "\n")})
	}
	return turns
}

func resolveToolName(block types.ContentBlockParam, toolNames map[string]string) string {
	if name, ok := toolNames[block.ToolUseID]; ok && name != "" {
		return name
	}
	if block.Name != "" {
		return block.Name
	}
	return unknownToolName
}

func normalizeAssistantMessage(content types.MessageContent) (generation.AssistantTurn, error) {
	if content.IsText() {
		return generation.AssistantTurn{
			Parts: []generation.Part{generation.TextPart{Text: content.Text}},
		}, nil
	}

	parts := make([]generation.Part, 0, len(content.Blocks))
	for _, block := range content.Blocks {
		switch block.Type {
		case types.ContentBlockTypeText:
			parts = append(parts, generation.TextPart{Text: block.Text})
		case types.ContentBlockTypeToolUse:
			input, err := toolInput(block.Input)
			if err != nil {
				return generation.AssistantTurn{}, fmt.Errorf("tool_use %q input: %w", block.ID, err)
			}
			parts = append(parts, generation.ToolCallPart{ID: block.ID, Name: block.Name, Input: input})
		}
	}
	return generation.AssistantTurn{Parts: parts}, nil
}

// toolInput decodes a tool_use input. Anything but a JSON object becomes {}.
func toolInput(raw json.RawMessage) (map[string]any, error) {
	if !gjson.ParseBytes(raw).IsObject() {
		return map[string]any{}, nil
	}
	input := make(map[string]any)
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, err
	}
	return input, nil
}

func normalizeTools(tools []types.Tool) []generation.ToolSpec {
	if len(tools) == 0 {
		return nil
	}
	specs := make([]generation.ToolSpec, 0, len(tools))
	for _, tool := range tools {
		specs = append(specs, generation.ToolSpec{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		})
	}
	return specs
}

// normalizeToolChoice maps the client's tool choice. A "tool" choice without a
// name degrades to auto.
func normalizeToolChoice(choice *types.ToolChoice) generation.ToolChoice {
	if choice == nil {
		return generation.ToolChoice{Mode: generation.ToolChoiceAuto}
	}
	switch choice.Type {
	case types.ToolChoiceTypeAny:
		return generation.ToolChoice{Mode: generation.ToolChoiceAny}
	case types.ToolChoiceTypeTool:
		if choice.Name == "" {
			return generation.ToolChoice{Mode: generation.ToolChoiceAuto}
		}
		return generation.ToolChoice{Mode: generation.ToolChoiceTool, Name: choice.Name}
	case types.ToolChoiceTypeNone:
		return generation.ToolChoice{Mode: generation.ToolChoiceNone}
	default:
		return generation.ToolChoice{Mode: generation.ToolChoiceAuto}
	}
}

func normalizeParams(req *types.MessagesRequest, catalog *models.Catalog) generation.Params {
	maxTokens := int64(defaultMaxTokens)
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	return generation.Params{
		Model:         catalog.Resolve(req.Model).BackendID,
		MaxTokens:     maxTokens,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		TopK:          req.TopK,
		StopSequences: req.StopSequences,
	}
}
