package messagesadapter

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/florianilch/claudine-gateway/internal/generation"
	"github.com/florianilch/claudine-gateway/internal/messagesadapter/types"
)

// Aggregate folds an event sequence into a single message.
//
// All generated text is collected into one text block placed first, followed
// by a tool_use block per completed tool call. Usage is summed over steps and
// the last step decides the stop reason. A StreamError fails the whole
// aggregation; no partial message is returned.
func Aggregate(ctx context.Context, id, model string, events iter.Seq[generation.Event]) (*types.Message, error) {
	msg := types.NewMessage(id, model)
	reason := anthropic.StopReasonEndTurn

	var (
		text     strings.Builder
		toolUses []types.ContentBlock
	)

loop:
	for ev := range events {
		switch ev := ev.(type) {
		case generation.TextDelta:
			text.WriteString(ev.Text)
		case generation.ToolCallComplete:
			toolUses = append(toolUses, types.NewToolUseBlock(ev.ID, ev.Name, ev.Input))
		case generation.StepFinish:
			msg.Usage.InputTokens += ev.InputTokens
			msg.Usage.OutputTokens += ev.OutputTokens
			reason = stopReason(ev.Reason)
		case generation.StreamError:
			if ev.Err == nil {
				return nil, errors.New("generation failed")
			}
			return nil, fmt.Errorf("generation failed: %w", ev.Err)
		case generation.StreamFinish:
			break loop
		}
	}

	// A cancelled source may end its sequence without reporting the error.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("generation aborted: %w", err)
	}

	if text.Len() > 0 {
		msg.Content = append(msg.Content, types.NewTextBlock(text.String()))
	}
	msg.Content = append(msg.Content, toolUses...)
	msg.StopReason = &reason

	return &msg, nil
}
