package proxy

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/florianilch/claudine-gateway/internal/generation/anthropicclaude"
	"github.com/florianilch/claudine-gateway/internal/messagesadapter"
)

// mockAnthropicTransport returns pre-recorded responses without network calls.
type mockAnthropicTransport struct {
	responseBody string
}

func (m *mockAnthropicTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(m.responseBody)),
		Header:     http.Header{"Content-Type": []string{"text/event-stream"}},
		Request:    req,
	}, nil
}

func upstreamSSE(events ...string) string {
	return strings.Join(events, "\n\n") + "\n\n"
}

const (
	upstreamMessageStart = "event: message_start\n" +
		`data: {"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","model":"claude-sonnet-4-5-20250929","content":[],"stop_reason":null,"stop_sequence":null,"usage":{"input_tokens":25,"output_tokens":1}}}`
	upstreamMessageStop = "event: message_stop\n" +
		`data: {"type":"message_stop"}`
)

var benchScenarios = []struct {
	name    string
	request string
	sse     string
}{
	{
		name:    "text",
		request: `{"model":"claude-sonnet-4-5","max_tokens":256,"system":"be brief","messages":[{"role":"user","content":"Say hello"}]}`,
		sse: upstreamSSE(
			upstreamMessageStart,
			"event: content_block_start\n"+`data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`,
			"event: content_block_delta\n"+`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hello"}}`,
			"event: content_block_delta\n"+`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":", how can I help?"}}`,
			"event: content_block_stop\n"+`data: {"type":"content_block_stop","index":0}`,
			"event: message_delta\n"+`data: {"type":"message_delta","delta":{"stop_reason":"end_turn","stop_sequence":null},"usage":{"output_tokens":8}}`,
			upstreamMessageStop,
		),
	},
	{
		name: "tool_use",
		request: `{"model":"claude-sonnet-4-5","max_tokens":256,
			"tools":[{"name":"get_weather","input_schema":{"type":"object","properties":{"city":{"type":"string"}}}}],
			"messages":[{"role":"user","content":"Weather in Paris?"}]}`,
		sse: upstreamSSE(
			upstreamMessageStart,
			"event: content_block_start\n"+`data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`,
			"event: content_block_delta\n"+`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Checking."}}`,
			"event: content_block_stop\n"+`data: {"type":"content_block_stop","index":0}`,
			"event: content_block_start\n"+`data: {"type":"content_block_start","index":1,"content_block":{"type":"tool_use","id":"toolu_1","name":"get_weather","input":{}}}`,
			"event: content_block_delta\n"+`data: {"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"{\"city\":"}}`,
			"event: content_block_delta\n"+`data: {"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"\"Paris\"}"}}`,
			"event: content_block_stop\n"+`data: {"type":"content_block_stop","index":1}`,
			"event: message_delta\n"+`data: {"type":"message_delta","delta":{"stop_reason":"tool_use","stop_sequence":null},"usage":{"output_tokens":20}}`,
			upstreamMessageStop,
		),
	},
}

// setupProxyWithMockTransport creates a Proxy with full middleware stack but mocked upstream.
// Suppresses logging to isolate benchmark measurements from I/O overhead.
func setupProxyWithMockTransport(b *testing.B, transport http.RoundTripper) *httptest.Server {
	b.Helper()

	slog.SetDefault(slog.New(slog.DiscardHandler))

	source, err := anthropicclaude.New(transport)
	if err != nil {
		b.Fatalf("Failed to create source: %v", err)
	}
	catalog := testCatalog(b)

	p, err := New(messagesadapter.New(source, catalog), catalog, staticReadiness(true),
		WithLogger(slog.New(slog.DiscardHandler)))
	if err != nil {
		b.Fatalf("Failed to create proxy: %v", err)
	}

	server := httptest.NewServer(p)
	b.Cleanup(server.Close)
	return server
}

// postMessages sends one request and drains the response body.
func postMessages(b *testing.B, url, body string) {
	resp, err := http.Post(url+"/v1/messages", "application/json", strings.NewReader(body))
	if err != nil {
		b.Fatalf("Request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		b.Fatalf("Unexpected status code: %d", resp.StatusCode)
	}
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		b.Fatalf("Stream read error: %v", err)
	}
}

func streaming(request string) string {
	return strings.Replace(request, "{", `{"stream":true,`, 1)
}

// BenchmarkProxyStreaming measures end-to-end streaming latency through
// routing, middleware, handler, adapter, source translation and SSE encoding.
// Excludes network latency (mocked transport).
func BenchmarkProxyStreaming(b *testing.B) {
	for _, s := range benchScenarios {
		b.Run(s.name, func(b *testing.B) {
			server := setupProxyWithMockTransport(b, &mockAnthropicTransport{responseBody: s.sse})
			req := streaming(s.request)

			b.ReportAllocs()
			for b.Loop() {
				postMessages(b, server.URL, req)
			}
		})
	}
}

// BenchmarkProxyNonStreaming measures end-to-end aggregated response latency.
// Provides baseline comparison against streaming benchmarks to isolate SSE overhead.
func BenchmarkProxyNonStreaming(b *testing.B) {
	for _, s := range benchScenarios {
		b.Run(s.name, func(b *testing.B) {
			server := setupProxyWithMockTransport(b, &mockAnthropicTransport{responseBody: s.sse})

			b.ReportAllocs()
			for b.Loop() {
				postMessages(b, server.URL, s.request)
			}
		})
	}
}

// BenchmarkProxyStreaming_TTFB measures Time-To-First-Byte for streaming responses.
func BenchmarkProxyStreaming_TTFB(b *testing.B) {
	s := benchScenarios[0]
	server := setupProxyWithMockTransport(b, &mockAnthropicTransport{responseBody: s.sse})
	req := streaming(s.request)

	b.ReportAllocs()

	var totalTTFB time.Duration
	var iterations int
	buf := make([]byte, 1)

	for b.Loop() {
		start := time.Now()

		resp, err := http.Post(server.URL+"/v1/messages", "application/json", strings.NewReader(req))
		if err != nil {
			b.Fatalf("Request failed: %v", err)
		}

		// Read first byte to measure TTFB
		if _, err := resp.Body.Read(buf); err != nil {
			b.Fatalf("Failed to read first byte: %v", err)
		}

		totalTTFB += time.Since(start)
		iterations++

		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}

	avgTTFB := totalTTFB / time.Duration(iterations)
	b.ReportMetric(float64(avgTTFB.Microseconds()), "µs/ttfb")
}

// BenchmarkProxyConcurrentThroughput_Streaming measures concurrent streaming throughput
// using b.RunParallel to simulate realistic concurrent load.
func BenchmarkProxyConcurrentThroughput_Streaming(b *testing.B) {
	s := benchScenarios[1]
	server := setupProxyWithMockTransport(b, &mockAnthropicTransport{responseBody: s.sse})
	req := streaming(s.request)

	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			postMessages(b, server.URL, req)
		}
	})
}
