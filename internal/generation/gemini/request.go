package gemini

import (
	"math"

	"google.golang.org/genai"

	"github.com/florianilch/claudine-gateway/internal/generation"
)

// toGenerateContent converts a generation request to Gemini contents and config.
func toGenerateContent(req *generation.Request) ([]*genai.Content, *genai.GenerateContentConfig) {
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: clampInt32(req.Params.MaxTokens),
		StopSequences:   req.Params.StopSequences,
	}

	if system, ok := req.Conversation.System(); ok && system != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}

	if t := req.Params.Temperature; t != nil {
		config.Temperature = genai.Ptr(float32(*t))
	}
	if p := req.Params.TopP; p != nil {
		config.TopP = genai.Ptr(float32(*p))
	}
	if k := req.Params.TopK; k != nil {
		config.TopK = genai.Ptr(float32(*k))
	}

	if len(req.Tools) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: fromToolSpecs(req.Tools)}}
		config.ToolConfig = &genai.ToolConfig{FunctionCallingConfig: fromToolChoice(req.ToolChoice)}
	}

	return fromConversation(req.Conversation), config
}

// fromConversation maps turns to contents. Assistant turns use the "model"
// role and consecutive contents of the same role are merged.
func fromConversation(conv generation.Conversation) []*genai.Content {
	contents := make([]*genai.Content, 0, len(conv))

	appendParts := func(role string, parts []*genai.Part) {
		if len(parts) == 0 {
			return
		}
		if n := len(contents); n > 0 && contents[n-1].Role == role {
			contents[n-1].Parts = append(contents[n-1].Parts, parts...)
			return
		}
		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}

	for _, turn := range conv {
		switch t := turn.(type) {
		case generation.UserTextTurn:
			if t.Text != "" {
				appendParts(genai.RoleUser, []*genai.Part{{Text: t.Text}})
			}

		case generation.ToolResultTurn:
			parts := make([]*genai.Part, 0, len(t.Results))
			for _, result := range t.Results {
				response := map[string]any{"output": result.Output}
				if result.IsError {
					response = map[string]any{"error": result.Output}
				}
				parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
					ID:       result.ToolCallID,
					Name:     result.ToolName,
					Response: response,
				}})
			}
			appendParts(genai.RoleUser, parts)

		case generation.AssistantTurn:
			parts := make([]*genai.Part, 0, len(t.Parts))
			for _, part := range t.Parts {
				switch p := part.(type) {
				case generation.TextPart:
					if p.Text != "" {
						parts = append(parts, &genai.Part{Text: p.Text})
					}
				case generation.ToolCallPart:
					parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
						ID:   p.ID,
						Name: p.Name,
						Args: p.Input,
					}})
				}
			}
			appendParts(genai.RoleModel, parts)
		}
	}

	return contents
}

func fromToolSpecs(specs []generation.ToolSpec) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(specs))
	for _, spec := range specs {
		decl := &genai.FunctionDeclaration{
			Name:        spec.Name,
			Description: spec.Description,
		}
		// Sent as raw JSON Schema rather than the OpenAPI Schema subset.
		if spec.InputSchema != nil {
			decl.ParametersJsonSchema = spec.InputSchema
		}
		decls = append(decls, decl)
	}
	return decls
}

func fromToolChoice(choice generation.ToolChoice) *genai.FunctionCallingConfig {
	switch choice.Mode {
	case generation.ToolChoiceAny:
		return &genai.FunctionCallingConfig{Mode: genai.FunctionCallingConfigModeAny}
	case generation.ToolChoiceTool:
		return &genai.FunctionCallingConfig{
			Mode:                 genai.FunctionCallingConfigModeAny,
			AllowedFunctionNames: []string{choice.Name},
		}
	case generation.ToolChoiceNone:
		return &genai.FunctionCallingConfig{Mode: genai.FunctionCallingConfigModeNone}
	default:
		return &genai.FunctionCallingConfig{Mode: genai.FunctionCallingConfigModeAuto}
	}
}

func clampInt32(v int64) int32 {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(v)
}
