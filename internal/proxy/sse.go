package proxy

import (
	"fmt"
	"net/http"

	"github.com/florianilch/claudine-gateway/internal/json"
)

// SSEWriter writes server-sent events and flushes each one immediately.
type SSEWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

// NewSSEWriter sends the event-stream headers and a 200 status.
// It fails when the response writer cannot flush.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	// Disables response buffering in nginx.
	h.Set("X-Accel-Buffering", "no")

	sse := &SSEWriter{w: w, rc: http.NewResponseController(w)}

	w.WriteHeader(http.StatusOK)
	if err := sse.rc.Flush(); err != nil {
		return nil, fmt.Errorf("streaming unsupported: %w", err)
	}
	return sse, nil
}

// WriteEvent writes one "event: <name>" frame with data encoded as JSON.
func (s *SSEWriter) WriteEvent(name string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", name, err)
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, payload); err != nil {
		return fmt.Errorf("write %s event: %w", name, err)
	}
	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("flush %s event: %w", name, err)
	}
	return nil
}
