package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		wantSame bool
	}{
		{name: "client id kept", header: "req-abc_123", wantSame: true},
		{name: "missing id generated", header: ""},
		{name: "id with spaces replaced", header: "req 1"},
		{name: "overlong id replaced", header: strings.Repeat("a", maxRequestIDLen+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			handler := RequestIDGeneration(RequestIDPropagation(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = RequestID(r.Context())
			})))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("X-Request-ID", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if seen == "" {
				t.Fatal("handler saw no request id")
			}
			if got := rec.Header().Get("X-Request-ID"); got != seen {
				t.Errorf("X-Request-ID = %q, want %q", got, seen)
			}
			if (seen == tt.header) != tt.wantSame {
				t.Errorf("request id = %q, client sent %q", seen, tt.header)
			}
		})
	}
}

func TestTraceContextExtraction(t *testing.T) {
	previous := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(previous) })

	var spanCtx trace.SpanContext
	handler := TraceContextExtraction(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		spanCtx = trace.SpanContextFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !spanCtx.IsValid() {
		t.Fatal("span context not extracted")
	}
	if got := spanCtx.TraceID().String(); got != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("TraceID = %q, want the traceparent trace id", got)
	}
	if !spanCtx.IsRemote() {
		t.Error("IsRemote() = false, want true")
	}
}
