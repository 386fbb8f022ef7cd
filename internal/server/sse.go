package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/haasonsaas/atelier/internal/agent"
	"github.com/haasonsaas/atelier/pkg/models"
)

// sseSink writes wire records to an HTTP response as server-sent
// events, flushing after every frame so the client sees tokens as they
// arrive.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
	enc     *json.Encoder
	metrics *agent.Metrics
}

func newSSESink(w http.ResponseWriter, metrics *agent.Metrics) (*sseSink, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	// Disable proxy buffering so events are not held back.
	w.Header().Set("X-Accel-Buffering", "no")

	enc := json.NewEncoder(w)
	// Record payloads carry user prose; keep non-ASCII and HTML
	// characters verbatim on the wire.
	enc.SetEscapeHTML(false)
	return &sseSink{w: w, flusher: flusher, enc: enc, metrics: metrics}, nil
}

var _ agent.RecordSink = (*sseSink)(nil)

func (s *sseSink) Send(rec models.Record) error {
	if _, err := fmt.Fprint(s.w, "data: "); err != nil {
		return err
	}
	// Encode appends the newline that ends the data line.
	if err := s.enc.Encode(rec); err != nil {
		return err
	}
	if _, err := fmt.Fprint(s.w, "\n"); err != nil {
		return err
	}
	s.flusher.Flush()
	s.metrics.RecordEmitted()
	return nil
}

func (s *sseSink) Done() error {
	if _, err := fmt.Fprint(s.w, "data: [DONE]\n\n"); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
