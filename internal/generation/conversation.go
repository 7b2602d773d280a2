package generation

// Conversation is the ordered, role-tagged history handed to a Source.
type Conversation []Turn

// Turn is one logical contribution to a Conversation. The concrete types are
// SystemTurn, UserTextTurn, ToolResultTurn and AssistantTurn.
type Turn interface {
	isTurn()
}

// SystemTurn carries the system prompt. A conversation holds at most one and
// it is always first.
type SystemTurn struct {
	Text string
}

// UserTextTurn is plain user input.
type UserTextTurn struct {
	Text string
}

// ToolResultTurn carries the outputs of previously requested tool calls.
type ToolResultTurn struct {
	Results []ToolResult
}

// ToolResult is the output of a single tool call.
type ToolResult struct {
	ToolCallID string
	ToolName   string
	Output     string
	IsError    bool
}

// AssistantTurn is model output from an earlier exchange.
type AssistantTurn struct {
	Parts []Part
}

func (SystemTurn) isTurn()     {}
func (UserTextTurn) isTurn()   {}
func (ToolResultTurn) isTurn() {}
func (AssistantTurn) isTurn()  {}

// Part is one element of an AssistantTurn: TextPart or ToolCallPart.
type Part interface {
	isPart()
}

// TextPart is generated text.
type TextPart struct {
	Text string
}

// ToolCallPart is a tool invocation requested by the model.
type ToolCallPart struct {
	ID    string
	Name  string
	Input map[string]any
}

func (TextPart) isPart()     {}
func (ToolCallPart) isPart() {}

// IsEmpty reports whether the turn has neither non-empty text nor tool calls.
func (t AssistantTurn) IsEmpty() bool {
	for _, part := range t.Parts {
		switch p := part.(type) {
		case TextPart:
			if p.Text != "" {
				return false
			}
		case ToolCallPart:
			return false
		}
	}
	return true
}

// TrimTrailingEmptyAssistant drops the final turn when it is an AssistantTurn
// without content. At most one turn is removed.
func (c Conversation) TrimTrailingEmptyAssistant() Conversation {
	if len(c) == 0 {
		return c
	}
	if last, ok := c[len(c)-1].(AssistantTurn); ok && last.IsEmpty() {
		return c[:len(c)-1]
	}
	return c
}

// System returns the system prompt, if the conversation starts with one.
func (c Conversation) System() (string, bool) {
	if len(c) == 0 {
		return "", false
	}
	if s, ok := c[0].(SystemTurn); ok {
		return s.Text, true
	}
	return "", false
}

// ToolSpec describes a tool the model may call.
type ToolSpec struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// ToolChoiceMode is the caller's directive on tool use.
type ToolChoiceMode int

const (
	// ToolChoiceAuto lets the model decide.
	ToolChoiceAuto ToolChoiceMode = iota
	// ToolChoiceAny requires at least one tool call.
	ToolChoiceAny
	// ToolChoiceTool requires a call to the tool named in ToolChoice.Name.
	ToolChoiceTool
	// ToolChoiceNone forbids tool calls.
	ToolChoiceNone
)

// ToolChoice is the tool-choice policy. The zero value is ToolChoiceAuto.
type ToolChoice struct {
	Mode ToolChoiceMode
	Name string
}

func (m ToolChoiceMode) String() string {
	switch m {
	case ToolChoiceAuto:
		return "auto"
	case ToolChoiceAny:
		return "any"
	case ToolChoiceTool:
		return "tool"
	case ToolChoiceNone:
		return "none"
	default:
		return "unknown"
	}
}

// Params are sampling and length controls. Nil pointers mean "upstream default".
type Params struct {
	// Model is the backend model identifier, already resolved from the client-facing id.
	Model         string
	MaxTokens     int64
	Temperature   *float64
	TopP          *float64
	TopK          *int64
	StopSequences []string
}

// Request is everything a Source needs to generate one response.
type Request struct {
	Conversation Conversation
	Tools        []ToolSpec
	ToolChoice   ToolChoice
	Params       Params
}
