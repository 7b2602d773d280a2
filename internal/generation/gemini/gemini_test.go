package gemini

import (
	"context"
	"errors"
	"io"
	"iter"
	"net/http"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tidwall/gjson"
	"go.uber.org/goleak"
	"golang.org/x/oauth2"
	"google.golang.org/genai"

	"github.com/florianilch/claudine-gateway/internal/generation"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// responses replays chunks, optionally ending with an error.
func responses(err error, chunks ...*genai.GenerateContentResponse) iter.Seq2[*genai.GenerateContentResponse, error] {
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for _, chunk := range chunks {
			if !yield(chunk, nil) {
				return
			}
		}
		if err != nil {
			yield(nil, err)
		}
	}
}

func chunk(finish genai.FinishReason, parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Role: genai.RoleModel, Parts: parts},
			FinishReason: finish,
		}},
	}
}

func collect(ctx context.Context, seq iter.Seq2[*genai.GenerateContentResponse, error]) []generation.Event {
	var events []generation.Event
	translateResponses(ctx, seq, func(ev generation.Event) bool {
		events = append(events, ev)
		return true
	})
	return events
}

func TestTranslateResponsesText(t *testing.T) {
	last := chunk(genai.FinishReasonStop, &genai.Part{Text: " world"})
	last.UsageMetadata = &genai.GenerateContentResponseUsageMetadata{PromptTokenCount: 9, CandidatesTokenCount: 3}

	got := collect(t.Context(), responses(nil,
		chunk("", &genai.Part{Text: "thinking", Thought: true}),
		chunk("", &genai.Part{Text: "Hello"}),
		last,
	))

	want := []generation.Event{
		generation.TextDelta{Text: "Hello"},
		generation.TextDelta{Text: " world"},
		generation.StepFinish{Reason: generation.FinishReasonStop, InputTokens: 9, OutputTokens: 3},
		generation.StreamFinish{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestTranslateResponsesFunctionCall(t *testing.T) {
	got := collect(t.Context(), responses(nil,
		chunk("", &genai.Part{Text: "Searching."}),
		chunk(genai.FinishReasonStop, &genai.Part{FunctionCall: &genai.FunctionCall{
			ID:   "call_1",
			Name: "search",
			Args: map[string]any{"q": "go"},
		}}),
	))

	want := []generation.Event{
		generation.TextDelta{Text: "Searching."},
		generation.ToolCallStart{ID: "call_1", Name: "search"},
		generation.ToolCallDelta{ID: "call_1", PartialJSON: `{"q":"go"}`},
		generation.ToolCallEnd{ID: "call_1"},
		generation.ToolCallComplete{ID: "call_1", Name: "search", Input: map[string]any{"q": "go"}},
		generation.StepFinish{Reason: generation.FinishReasonToolCalls},
		generation.StreamFinish{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestTranslateResponsesGeneratesMissingCallID(t *testing.T) {
	got := collect(t.Context(), responses(nil,
		chunk(genai.FinishReasonStop, &genai.Part{FunctionCall: &genai.FunctionCall{Name: "ping"}}),
	))

	start, ok := got[0].(generation.ToolCallStart)
	if !ok {
		t.Fatalf("first event = %T, want ToolCallStart", got[0])
	}
	if !strings.HasPrefix(start.ID, "toolu_") {
		t.Errorf("generated id = %q, want toolu_ prefix", start.ID)
	}
	complete, ok := got[3].(generation.ToolCallComplete)
	if !ok || complete.ID != start.ID {
		t.Errorf("ToolCallComplete = %#v, want id %q", got[3], start.ID)
	}
	if diff := cmp.Diff(map[string]any{}, complete.Input); diff != "" {
		t.Errorf("Input mismatch (-want +got):\n%s", diff)
	}
}

func TestTranslateResponsesFinishReasons(t *testing.T) {
	tests := []struct {
		finish genai.FinishReason
		want   generation.FinishReason
	}{
		{genai.FinishReasonStop, generation.FinishReasonStop},
		{genai.FinishReasonMaxTokens, generation.FinishReasonLength},
		{genai.FinishReasonSafety, generation.FinishReasonOther},
	}

	for _, tt := range tests {
		t.Run(string(tt.finish), func(t *testing.T) {
			got := collect(t.Context(), responses(nil, chunk(tt.finish, &genai.Part{Text: "x"})))
			step, ok := got[1].(generation.StepFinish)
			if !ok {
				t.Fatalf("second event = %T, want StepFinish", got[1])
			}
			if step.Reason != tt.want {
				t.Errorf("Reason = %q, want %q", step.Reason, tt.want)
			}
		})
	}
}

func TestTranslateResponsesError(t *testing.T) {
	upstreamErr := errors.New("stream reset")
	got := collect(t.Context(), responses(upstreamErr, chunk("", &genai.Part{Text: "partial"})))

	want := []generation.Event{
		generation.TextDelta{Text: "partial"},
		generation.StreamError{Err: upstreamErr},
	}
	if diff := cmp.Diff(want, got, cmp.Comparer(func(a, b error) bool { return errors.Is(a, b) })); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestTranslateResponsesStopsOnEarlyBreak(t *testing.T) {
	pulled := 0
	seq := func(yield func(*genai.GenerateContentResponse, error) bool) {
		for range 5 {
			pulled++
			if !yield(chunk("", &genai.Part{Text: "x"}), nil) {
				return
			}
		}
	}

	translateResponses(t.Context(), seq, func(generation.Event) bool { return false })
	if pulled != 1 {
		t.Errorf("pulled %d responses, want 1", pulled)
	}
}

func TestToGenerateContent(t *testing.T) {
	temperature, topK := 0.5, int64(20)
	req := &generation.Request{
		Conversation: generation.Conversation{
			generation.SystemTurn{Text: "be brief"},
			generation.UserTextTurn{Text: "find go"},
			generation.AssistantTurn{Parts: []generation.Part{
				generation.ToolCallPart{ID: "t1", Name: "search", Input: map[string]any{"q": "go"}},
			}},
			generation.ToolResultTurn{Results: []generation.ToolResult{
				{ToolCallID: "t1", ToolName: "search", Output: "found"},
				{ToolCallID: "t2", ToolName: "fetch", Output: "timeout", IsError: true},
			}},
			generation.UserTextTurn{Text: "thanks"},
		},
		Tools:      []generation.ToolSpec{{Name: "search", InputSchema: map[string]any{"type": "object"}}},
		ToolChoice: generation.ToolChoice{Mode: generation.ToolChoiceTool, Name: "search"},
		Params: generation.Params{
			Model:       "gemini-2.5-pro",
			MaxTokens:   1024,
			Temperature: &temperature,
			TopK:        &topK,
		},
	}

	contents, config := toGenerateContent(req)

	wantContents := []*genai.Content{
		{Role: genai.RoleUser, Parts: []*genai.Part{{Text: "find go"}}},
		{Role: genai.RoleModel, Parts: []*genai.Part{{FunctionCall: &genai.FunctionCall{
			ID: "t1", Name: "search", Args: map[string]any{"q": "go"},
		}}}},
		{Role: genai.RoleUser, Parts: []*genai.Part{
			{FunctionResponse: &genai.FunctionResponse{ID: "t1", Name: "search", Response: map[string]any{"output": "found"}}},
			{FunctionResponse: &genai.FunctionResponse{ID: "t2", Name: "fetch", Response: map[string]any{"error": "timeout"}}},
			{Text: "thanks"},
		}},
	}
	if diff := cmp.Diff(wantContents, contents); diff != "" {
		t.Errorf("contents mismatch (-want +got):\n%s", diff)
	}

	if got := config.SystemInstruction.Parts[0].Text; got != "be brief" {
		t.Errorf("SystemInstruction = %q, want %q", got, "be brief")
	}
	if config.MaxOutputTokens != 1024 {
		t.Errorf("MaxOutputTokens = %d, want 1024", config.MaxOutputTokens)
	}
	if config.Temperature == nil || *config.Temperature != 0.5 {
		t.Errorf("Temperature = %v, want 0.5", config.Temperature)
	}
	if config.TopK == nil || *config.TopK != 20 {
		t.Errorf("TopK = %v, want 20", config.TopK)
	}
	if config.TopP != nil {
		t.Errorf("TopP = %v, want nil", *config.TopP)
	}

	wantCalling := &genai.FunctionCallingConfig{
		Mode:                 genai.FunctionCallingConfigModeAny,
		AllowedFunctionNames: []string{"search"},
	}
	if diff := cmp.Diff(wantCalling, config.ToolConfig.FunctionCallingConfig); diff != "" {
		t.Errorf("FunctionCallingConfig mismatch (-want +got):\n%s", diff)
	}
	if got := config.Tools[0].FunctionDeclarations[0].Name; got != "search" {
		t.Errorf("FunctionDeclarations[0].Name = %q, want search", got)
	}
}

func TestToGenerateContentWithoutTools(t *testing.T) {
	_, config := toGenerateContent(&generation.Request{
		Conversation: generation.Conversation{generation.UserTextTurn{Text: "hi"}},
		ToolChoice:   generation.ToolChoice{Mode: generation.ToolChoiceAny},
	})
	if config.Tools != nil || config.ToolConfig != nil {
		t.Errorf("Tools = %v, ToolConfig = %v, want both nil", config.Tools, config.ToolConfig)
	}
	if config.SystemInstruction != nil {
		t.Errorf("SystemInstruction = %v, want nil", config.SystemInstruction)
	}
}

// mockGeminiTransport serves a pre-recorded SSE body and records the request.
type mockGeminiTransport struct {
	responseBody string

	url    string
	body   []byte
	header http.Header
}

func (m *mockGeminiTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	m.url = req.URL.String()
	m.header = req.Header.Clone()
	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		m.body = body
	}

	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(m.responseBody)),
		Header:     http.Header{"Content-Type": []string{"text/event-stream"}},
		Request:    req,
	}, nil
}

func TestSourceStream(t *testing.T) {
	transport := &mockGeminiTransport{
		responseBody: `data: {"candidates":[{"content":{"role":"model","parts":[{"text":"Hi"}]}}]}` + "\n\n" +
			`data: {"candidates":[{"content":{"role":"model","parts":[{"text":" there"}]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":4,"candidatesTokenCount":2}}` + "\n\n",
	}

	src, err := New(t.Context(), Config{
		Backend:    BackendGeminiAPI,
		BaseURL:    "https://gemini.test/",
		APIKey:     oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-key"}),
		HTTPClient: &http.Client{Transport: transport},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	got := slices.Collect(src.Stream(t.Context(), &generation.Request{
		Conversation: generation.Conversation{
			generation.SystemTurn{Text: "be brief"},
			generation.UserTextTurn{Text: "hello"},
		},
		Params: generation.Params{Model: "gemini-2.5-flash", MaxTokens: 64},
	}))

	want := []generation.Event{
		generation.TextDelta{Text: "Hi"},
		generation.TextDelta{Text: " there"},
		generation.StepFinish{Reason: generation.FinishReasonStop, InputTokens: 4, OutputTokens: 2},
		generation.StreamFinish{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}

	if !strings.Contains(transport.url, "gemini-2.5-flash:streamGenerateContent") {
		t.Errorf("request url = %q, want streamGenerateContent for the backend model", transport.url)
	}
	if got := transport.header.Get("X-Goog-Api-Key"); got != "test-key" {
		t.Errorf("x-goog-api-key = %q, want test-key", got)
	}
	body := gjson.ParseBytes(transport.body)
	if got := body.Get("contents.0.parts.0.text").String(); got != "hello" {
		t.Errorf("contents.0.parts.0.text = %q, want hello", got)
	}
	if got := body.Get("systemInstruction.parts.0.text").String(); got != "be brief" {
		t.Errorf("systemInstruction = %q, want be brief", got)
	}
}

// rotatingKey serves whatever key is currently set.
type rotatingKey struct {
	mu  sync.Mutex
	key string
}

func (r *rotatingKey) set(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.key = key
}

func (r *rotatingKey) Token() (*oauth2.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &oauth2.Token{AccessToken: r.key}, nil
}

func TestSourceReusesClientPerKey(t *testing.T) {
	key := &rotatingKey{key: "key-1"}
	src, err := New(t.Context(), Config{
		Backend:    BackendGeminiAPI,
		APIKey:     key,
		HTTPClient: &http.Client{Transport: &mockGeminiTransport{}},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	first, err := src.clientFor(t.Context())
	if err != nil {
		t.Fatalf("clientFor() error = %v", err)
	}
	again, err := src.clientFor(t.Context())
	if err != nil {
		t.Fatalf("clientFor() error = %v", err)
	}
	if again != first {
		t.Error("clientFor() built a new client for an unchanged key")
	}

	key.set("key-2")
	rotated, err := src.clientFor(t.Context())
	if err != nil {
		t.Fatalf("clientFor() error = %v", err)
	}
	if rotated == first {
		t.Error("clientFor() reused the client after the key changed")
	}
}

func TestNewValidatesConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"gemini api without key", Config{Backend: BackendGeminiAPI}},
		{"vertex without project", Config{Backend: BackendVertexAI, Location: "us-central1"}},
		{"unknown backend", Config{Backend: "bedrock"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(t.Context(), tt.cfg); err == nil {
				t.Error("New() error = nil, want error")
			}
		})
	}
}
