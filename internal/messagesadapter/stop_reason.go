package messagesadapter

import (
	"github.com/anthropics/anthropic-sdk-go"

	"github.com/florianilch/claudine-gateway/internal/generation"
)

// stopReason maps a generation finish reason onto the Messages stop_reason.
func stopReason(reason generation.FinishReason) anthropic.StopReason {
	switch reason {
	case generation.FinishReasonToolCalls:
		return anthropic.StopReasonToolUse
	case generation.FinishReasonLength:
		return anthropic.StopReasonMaxTokens
	default:
		return anthropic.StopReasonEndTurn
	}
}
