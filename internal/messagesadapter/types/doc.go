// Package types provides Anthropic Messages API types for server-side request
// decoding and response encoding.
//
// The types are hand-modelled rather than taken from anthropic-sdk-go:
//
//  1. SERVER-SIDE vs CLIENT-SIDE: The SDK's param types are built for encoding
//     outbound requests (param.Opt[T], omitzero unions) and its response types
//     for decoding inbound ones. This package does the opposite in both
//     directions.
//
//  2. UNIONS: Fields that accept either a string or a block list (message
//     content, system, tool result content) decode into a struct holding both
//     shapes. The shape is detected with gjson before decoding.
//
//  3. WIRE EXACTNESS: Streaming payloads must carry fields the SDK would omit,
//     such as an empty "input": {} on tool_use block starts and explicit null
//     stop reasons in message_start.
package types
