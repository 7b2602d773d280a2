package anthropicclaude

import (
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/florianilch/claudine-gateway/internal/generation"
)

// toMessageNewParams converts a generation request to Anthropic Messages parameters.
func toMessageNewParams(req *generation.Request) (anthropic.MessageNewParams, error) {
	params := anthropic.MessageNewParams{
		Model:         anthropic.Model(req.Params.Model),
		MaxTokens:     req.Params.MaxTokens,
		StopSequences: req.Params.StopSequences,
	}

	if system, ok := req.Conversation.System(); ok && system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	messages, err := fromConversation(req.Conversation)
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}
	params.Messages = messages

	if req.Params.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Params.Temperature)
	}
	if req.Params.TopP != nil {
		params.TopP = anthropic.Float(*req.Params.TopP)
	}
	if req.Params.TopK != nil {
		params.TopK = anthropic.Int(*req.Params.TopK)
	}

	// Anthropic rejects tool_choice without tools.
	if len(req.Tools) > 0 {
		params.Tools = fromToolSpecs(req.Tools)
		params.ToolChoice = fromToolChoice(req.ToolChoice)
	}

	return params, nil
}

// fromConversation converts turns to Anthropic messages. Consecutive turns of
// the same role are merged into one message (required by Anthropic's role
// alternation rules), e.g. tool results followed by user text.
func fromConversation(conv generation.Conversation) ([]anthropic.MessageParam, error) {
	messages := make([]anthropic.MessageParam, 0, len(conv))

	appendBlocks := func(role anthropic.MessageParamRole, blocks []anthropic.ContentBlockParamUnion) {
		if len(blocks) == 0 {
			return
		}
		if n := len(messages); n > 0 && messages[n-1].Role == role {
			messages[n-1].Content = append(messages[n-1].Content, blocks...)
			return
		}
		messages = append(messages, anthropic.MessageParam{Role: role, Content: blocks})
	}

	for i, turn := range conv {
		switch t := turn.(type) {
		case generation.SystemTurn:
			// Hoisted to MessageNewParams.System.

		case generation.UserTextTurn:
			if t.Text != "" {
				appendBlocks(anthropic.MessageParamRoleUser, []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(t.Text)})
			}

		case generation.ToolResultTurn:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(t.Results))
			for _, result := range t.Results {
				blocks = append(blocks, anthropic.NewToolResultBlock(result.ToolCallID, result.Output, result.IsError))
			}
			appendBlocks(anthropic.MessageParamRoleUser, blocks)

		case generation.AssistantTurn:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(t.Parts))
			for _, part := range t.Parts {
				switch p := part.(type) {
				case generation.TextPart:
					// Anthropic rejects empty text blocks.
					if p.Text != "" {
						blocks = append(blocks, anthropic.NewTextBlock(p.Text))
					}
				case generation.ToolCallPart:
					input := p.Input
					if input == nil {
						input = map[string]any{}
					}
					blocks = append(blocks, anthropic.NewToolUseBlock(p.ID, input, p.Name))
				}
			}
			appendBlocks(anthropic.MessageParamRoleAssistant, blocks)

		default:
			return nil, fmt.Errorf("unsupported turn %d of type %T", i, turn)
		}
	}

	return messages, nil
}

// fromToolSpecs transforms tool specifications to Anthropic format.
func fromToolSpecs(specs []generation.ToolSpec) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, 0, len(specs))
	for _, spec := range specs {
		toolParam := anthropic.ToolParam{
			Name:        spec.Name,
			InputSchema: anthropic.ToolInputSchemaParam{},
		}
		if spec.Description != "" {
			toolParam.Description = anthropic.String(spec.Description)
		}

		// Anthropic separates properties/required into distinct fields with
		// remaining schema fields in ExtraFields.
		if schema := spec.InputSchema; schema != nil {
			if props, ok := schema["properties"]; ok {
				toolParam.InputSchema.Properties = props
			}

			if req, ok := schema["required"].([]any); ok {
				var required []string
				for _, r := range req {
					if s, ok := r.(string); ok {
						required = append(required, s)
					}
				}
				toolParam.InputSchema.Required = required
			}

			// Preserve schema fields without dedicated struct fields (e.g., additionalProperties).
			var extraFields map[string]any
			for key, value := range schema {
				if key != "type" && key != "properties" && key != "required" {
					if extraFields == nil {
						extraFields = make(map[string]any)
					}
					extraFields[key] = value
				}
			}
			toolParam.InputSchema.ExtraFields = extraFields
		}

		tools = append(tools, anthropic.ToolUnionParam{OfTool: &toolParam})
	}
	return tools
}

// fromToolChoice converts the tool-choice policy to Anthropic ToolChoiceUnionParam.
func fromToolChoice(choice generation.ToolChoice) anthropic.ToolChoiceUnionParam {
	switch choice.Mode {
	case generation.ToolChoiceAny:
		return anthropic.ToolChoiceUnionParam{OfAny: &anthropic.ToolChoiceAnyParam{}}
	case generation.ToolChoiceTool:
		return anthropic.ToolChoiceUnionParam{OfTool: &anthropic.ToolChoiceToolParam{Name: choice.Name}}
	case generation.ToolChoiceNone:
		return anthropic.ToolChoiceUnionParam{OfNone: &anthropic.ToolChoiceNoneParam{}}
	default:
		return anthropic.ToolChoiceUnionParam{OfAuto: &anthropic.ToolChoiceAutoParam{}}
	}
}
