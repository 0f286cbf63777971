package http

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/nilcaream/bobai/pkg/transport"
)

// sinkState tracks whether an sseSink has started streaming and whether
// it has reached a terminal frame (done or error).
type sinkState int

const (
	sinkIdle sinkState = iota
	sinkStreaming
	sinkCompleted
)

// sseSink implements transport.ClientSink over an http.ResponseWriter,
// emitting one SSE "data:" line per outbound frame followed by a blank
// line, and a trailing "data: [DONE]" once the stream reaches its one
// true terminal frame, "done" (spec.md §4.7). An "error" frame is not
// terminal by itself: the handler always follows it with "done" so the
// client still learns the session id to resume (spec.md §4.6, §8
// scenario 6), so Send must not close the stream out from under it.
type sseSink struct {
	w  http.ResponseWriter
	rc *http.ResponseController

	mu    sync.Mutex
	state sinkState

	// onSessionKnown is called once, the first time a frame carries a
	// non-empty SessionID, so the adapter can register the in-flight
	// cancellation handle under that id.
	onSessionKnown func(sessionID string)
}

var _ transport.ClientSink = (*sseSink)(nil)

func newSSESink(w http.ResponseWriter, onSessionKnown func(sessionID string)) *sseSink {
	return &sseSink{w: w, rc: http.NewResponseController(w), onSessionKnown: onSessionKnown}
}

// Send writes one outbound frame as a single SSE event.
func (s *sseSink) Send(msg transport.OutboundMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == sinkCompleted {
		return errors.New("cannot send: sink is completed")
	}
	if s.state == sinkIdle {
		s.w.Header().Set("Content-Type", "text/event-stream")
		s.w.Header().Set("Cache-Control", "no-cache")
		s.w.Header().Set("Connection", "keep-alive")
		s.state = sinkStreaming
	}

	if msg.SessionID != "" && s.onSessionKnown != nil {
		s.onSessionKnown(msg.SessionID)
		s.onSessionKnown = nil
	}

	data, err := transport.EncodeOutbound(msg)
	if err != nil {
		return fmt.Errorf("encode outbound message: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write sse frame: %w", err)
	}
	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("flush sse frame: %w", err)
	}

	if msg.Type == "done" {
		if err := s.writeTerminatorLocked(); err != nil {
			return err
		}
	}

	return nil
}

// writeTerminatorLocked writes the "data: [DONE]" trailer and marks the
// sink completed. Callers must hold s.mu.
func (s *sseSink) writeTerminatorLocked() error {
	if _, err := fmt.Fprint(s.w, "data: [DONE]\n\n"); err != nil {
		return fmt.Errorf("write sse terminator: %w", err)
	}
	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("flush sse terminator: %w", err)
	}
	s.state = sinkCompleted
	return nil
}

// hasStartedStreaming reports whether at least one frame has been sent,
// so a pre-stream decode failure can still be reported as plain JSON.
func (s *sseSink) hasStartedStreaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != sinkIdle
}

// finish closes out the SSE stream once HandlePrompt has returned. It is
// a no-op if a "done" frame already completed the stream, or if no frame
// was ever sent (handled instead by a plain JSON error response). This
// is the fallback for a handler that returns without ever reaching the
// turn loop's own error-then-done sequence, e.g. a session-not-found or
// inbound-framing failure (spec.md §4.6 step 1).
func (s *sseSink) finish() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != sinkStreaming {
		return nil
	}
	return s.writeTerminatorLocked()
}
