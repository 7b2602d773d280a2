package anthropicclaude

import (
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/florianilch/claudine-gateway/internal/json"
)

// Error is a failure reported by the Anthropic API.
type Error struct {
	// Type is the Anthropic error type, e.g. "overloaded_error".
	Type    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("anthropic %s: %s", e.Type, e.Message)
}

// toError converts an SDK error into an *Error when it carries an Anthropic
// error body. Anthropic SDK returns different error shapes for streaming vs
// non-streaming requests; both are normalized here. Other errors (network,
// timeouts) are returned unchanged.
func toError(err error) error {
	if err == nil {
		return nil
	}

	// Non-streaming: *anthropic.Error provides structured error via RawJSON()
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		if errorResp, parseErr := parseErrorResponseJSON(apiErr.RawJSON()); parseErr == nil {
			return &Error{Type: errorResp.Error.Type, Message: errorResp.Error.Message}
		}
		return &Error{Type: "api_error", Message: apiErr.Error()}
	}

	// streamingErrorPrefix is the prefix used by the Anthropic SDK when wrapping streaming errors.
	const streamingErrorPrefix = "received error while streaming: "

	// Streaming: SDK embeds JSON in error string with known prefix
	if jsonStr, ok := strings.CutPrefix(err.Error(), streamingErrorPrefix); ok {
		if errorResp, parseErr := parseErrorResponseJSON(jsonStr); parseErr == nil {
			return &Error{Type: errorResp.Error.Type, Message: errorResp.Error.Message}
		}
	}

	return err
}

// parseErrorResponseJSON parses Anthropic error JSON into structured ErrorResponse.
// Shared by both non-streaming (RawJSON) and streaming (error string) error paths.
func parseErrorResponseJSON(jsonStr string) (*anthropic.ErrorResponse, error) {
	var errorResp anthropic.ErrorResponse
	if err := json.Unmarshal([]byte(jsonStr), &errorResp); err != nil {
		return nil, fmt.Errorf("failed to parse Anthropic error JSON: %w", err)
	}
	if errorResp.Error.Message == "" {
		return nil, errors.New("anthropic error JSON without message")
	}
	return &errorResp, nil
}
