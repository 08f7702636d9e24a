package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
)

var errStreamingUnsupported = errors.New("streaming not supported")

// eventStream writes server-sent events. Send is safe for concurrent use.
type eventStream struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
}

func newEventStream(w http.ResponseWriter) (*eventStream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errStreamingUnsupported
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &eventStream{w: w, flusher: flusher}, nil
}

// Send writes one event with a JSON data line.
func (s *eventStream) Send(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	buf.WriteString("event: ")
	buf.WriteString(event)
	buf.WriteString("\ndata: ")
	buf.Write(payload)
	buf.WriteString("\n\n")

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(buf.Bytes()); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Fail ends the stream with an error event.
func (s *eventStream) Fail(message string) error {
	return s.Send("error", map[string]string{"error": message})
}

// Done ends the stream with the queued submission ID, empty when the
// message was skipped.
func (s *eventStream) Done(id, status string) error {
	return s.Send("complete", map[string]string{"id": id, "status": status})
}
