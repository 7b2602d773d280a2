// Package messagesadapter serves the Anthropic Messages API on top of a
// provider-neutral generation Source.
//
// A request passes through three stages:
//
//   - Normalize turns the block-structured request into a generation.Request.
//     Tool result names are resolved from a pre-scan of the whole conversation,
//     and within one user message tool results are placed before text.
//   - The Source produces a flat sequence of generation events.
//   - StreamEncoder re-encodes the events as SSE events with strict content
//     block lifecycle, or Aggregate folds them into a single Message.
package messagesadapter
