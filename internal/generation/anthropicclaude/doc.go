// Package anthropicclaude implements a generation.Source backed by the
// Anthropic Messages API.
//
// The source handles:
//
//   - Message transformation: The system turn is hoisted to Anthropic's System
//     field. Consecutive turns of the same role are merged (required by
//     Anthropic's role alternation rules), so tool results and the user text
//     that followed them travel in one user message.
//
//   - Tool calling: Tool specifications are split into Anthropic's
//     properties/required/extra schema fields. Streamed tool_use blocks are
//     tracked by content block index to attach input_json_delta fragments to
//     their call id.
//
//   - Streaming: Anthropic SSE events are translated to generation events.
//     Thinking and server tool blocks are dropped. Upstream failures become a
//     StreamError carrying an *Error.
//
// Authentication is the transport's job; NewAuthTransport presents the
// credential as an API key or an OAuth bearer token.
package anthropicclaude
