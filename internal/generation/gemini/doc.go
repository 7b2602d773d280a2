// Package gemini implements a generation.Source backed by Gemini models,
// served by either the Gemini Developer API or Vertex AI.
//
// Conversation turns map onto Gemini contents: assistant turns use the
// "model" role, tool results become FunctionResponse parts named after the
// resolved tool, and the system turn becomes the SystemInstruction. Tool
// specifications are declared with their JSON Schema unchanged.
//
// Gemini streams function calls whole rather than as argument fragments, so
// each call is expanded into a single start/delta/end/complete group.
package gemini
