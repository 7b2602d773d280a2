// Package generation defines the protocol-neutral vocabulary shared by the
// Messages adapter and the upstream generation engines.
//
// A Request carries a normalized Conversation, the available tools, a tool
// choice policy and sampling parameters. A Source answers it with a lazy
// sequence of Events:
//
//	for ev := range source.Stream(ctx, req) {
//		switch ev := ev.(type) {
//		case generation.TextDelta:
//			// ...
//		case generation.StreamError:
//			// terminal
//		}
//	}
//
// Streamed tool calls arrive as ToolCallStart, zero or more ToolCallDelta and
// ToolCallEnd, followed by a ToolCallComplete carrying the parsed input.
//
// Implementations live in subpackages: gemini (Google Gen AI) and
// anthropicclaude (Anthropic Messages API).
package generation
