package gemini

import (
	"context"
	"iter"
	"maps"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/florianilch/claudine-gateway/internal/generation"
	"github.com/florianilch/claudine-gateway/internal/json"
)

// translateResponses maps streamed Gemini responses to generation events.
//
// Gemini delivers function calls whole, so each call is emitted as a complete
// start/delta/end/complete group. Usage metadata is cumulative; the last
// reported value wins. Breaking out of the responses sequence cancels the
// upstream stream.
func translateResponses(
	ctx context.Context,
	responses iter.Seq2[*genai.GenerateContentResponse, error],
	yield func(generation.Event) bool,
) {
	var (
		sawToolCall  bool
		finish       genai.FinishReason
		inputTokens  int64
		outputTokens int64
	)

	for resp, err := range responses {
		if err != nil {
			yield(generation.StreamError{Err: err})
			return
		}
		if resp == nil {
			continue
		}

		if usage := resp.UsageMetadata; usage != nil {
			inputTokens = int64(usage.PromptTokenCount)
			outputTokens = int64(usage.CandidatesTokenCount)
		}

		if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
			continue
		}
		candidate := resp.Candidates[0]
		if candidate.FinishReason != "" {
			finish = candidate.FinishReason
		}
		if candidate.Content == nil {
			continue
		}

		for _, part := range candidate.Content.Parts {
			switch {
			case part == nil || part.Thought:
				// Thinking summaries are not part of the answer.
			case part.FunctionCall != nil:
				sawToolCall = true
				for _, ev := range functionCallEvents(part.FunctionCall) {
					if !yield(ev) {
						return
					}
				}
			case part.Text != "":
				if !yield(generation.TextDelta{Text: part.Text}) {
					return
				}
			}
		}
	}

	// The SDK may end the sequence quietly when ctx is cancelled.
	if err := ctx.Err(); err != nil {
		yield(generation.StreamError{Err: err})
		return
	}

	if !yield(generation.StepFinish{
		Reason:       toFinishReason(finish, sawToolCall),
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
	}) {
		return
	}
	yield(generation.StreamFinish{})
}

// functionCallEvents expands a whole function call into the streamed tool call
// events. Calls without an id get a generated one.
func functionCallEvents(call *genai.FunctionCall) []generation.Event {
	id := call.ID
	if id == "" {
		id = newToolCallID()
	}

	input := maps.Clone(call.Args)
	if input == nil {
		input = map[string]any{}
	}

	args, err := json.Marshal(input)
	if err != nil {
		args = []byte("{}")
	}

	return []generation.Event{
		generation.ToolCallStart{ID: id, Name: call.Name},
		generation.ToolCallDelta{ID: id, PartialJSON: string(args)},
		generation.ToolCallEnd{ID: id},
		generation.ToolCallComplete{ID: id, Name: call.Name, Input: input},
	}
}

// toFinishReason maps Gemini finish reasons to generation finish reasons.
// Gemini reports STOP for turns ending in function calls, so calls take precedence.
func toFinishReason(reason genai.FinishReason, sawToolCall bool) generation.FinishReason {
	if sawToolCall {
		return generation.FinishReasonToolCalls
	}
	switch reason {
	case genai.FinishReasonStop, genai.FinishReasonUnspecified, "":
		return generation.FinishReasonStop
	case genai.FinishReasonMaxTokens:
		return generation.FinishReasonLength
	default:
		return generation.FinishReasonOther
	}
}

// newToolCallID generates an Anthropic-style tool call ID (format: toolu_<uuid without dashes>).
func newToolCallID() string {
	return "toolu_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
