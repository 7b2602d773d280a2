package generation

// Event is a protocol-neutral unit emitted by a Source.
type Event interface {
	isEvent()
}

// TextDelta is a fragment of generated text.
type TextDelta struct {
	Text string
}

// ToolCallStart opens a streamed tool call.
type ToolCallStart struct {
	ID   string
	Name string
}

// ToolCallDelta carries a raw fragment of the tool call's JSON arguments.
// Fragments are not individually valid JSON.
type ToolCallDelta struct {
	ID          string
	PartialJSON string
}

// ToolCallEnd closes the streamed tool call with the given ID.
type ToolCallEnd struct {
	ID string
}

// ToolCallComplete is the fully materialized tool call. Sources emit it after
// the matching ToolCallEnd.
type ToolCallComplete struct {
	ID    string
	Name  string
	Input map[string]any
}

// FinishReason explains why a generation step ended.
type FinishReason string

const (
	FinishReasonStop      FinishReason = "stop"
	FinishReasonLength    FinishReason = "length"
	FinishReasonToolCalls FinishReason = "tool-calls"
	FinishReasonOther     FinishReason = "other"
)

// StepFinish ends one generation step and reports its token usage.
type StepFinish struct {
	Reason       FinishReason
	InputTokens  int64
	OutputTokens int64
}

// StreamFinish marks the regular end of the sequence.
type StreamFinish struct{}

// StreamError aborts the sequence. No events follow it.
type StreamError struct {
	Err error
}

// Message returns a human-readable description of the failure.
func (e StreamError) Message() string {
	if e.Err == nil {
		return "unknown error"
	}
	return e.Err.Error()
}

func (TextDelta) isEvent()        {}
func (ToolCallStart) isEvent()    {}
func (ToolCallDelta) isEvent()    {}
func (ToolCallEnd) isEvent()      {}
func (ToolCallComplete) isEvent() {}
func (StepFinish) isEvent()       {}
func (StreamFinish) isEvent()     {}
func (StreamError) isEvent()      {}
