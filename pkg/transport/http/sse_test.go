package http

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nilcaream/bobai/pkg/transport"
)

func TestSSESinkWritesDataFrames(t *testing.T) {
	rec := httptest.NewRecorder()
	sink := newSSESink(rec, nil)

	if err := sink.Send(transport.TokenMessage("hello")); err != nil {
		t.Fatalf("Send error: %v", err)
	}

	body := rec.Body.String()
	if !strings.HasPrefix(body, "data: ") || !strings.HasSuffix(body, "\n\n") {
		t.Fatalf("frame not SSE-shaped: %q", body)
	}

	var msg transport.OutboundMessage
	line := strings.TrimSuffix(strings.TrimPrefix(body, "data: "), "\n\n")
	if err := json.Unmarshal([]byte(line), &msg); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if msg.Type != "token" || msg.Text != "hello" {
		t.Errorf("got %+v", msg)
	}

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}
}

func TestSSESinkAppendsDoneTerminator(t *testing.T) {
	rec := httptest.NewRecorder()
	sink := newSSESink(rec, nil)

	sink.Send(transport.DoneMessage("sess_1", "m"))

	body := rec.Body.String()
	if !strings.Contains(body, "data: [DONE]\n\n") {
		t.Errorf("missing [DONE] terminator: %q", body)
	}
}

func TestSSESinkRejectsSendAfterCompletion(t *testing.T) {
	rec := httptest.NewRecorder()
	sink := newSSESink(rec, nil)

	sink.Send(transport.DoneMessage("sess_1", "m"))
	if err := sink.Send(transport.TokenMessage("late")); err == nil {
		t.Error("expected error sending after completion")
	}
}

func TestSSESinkInvokesOnSessionKnownOnce(t *testing.T) {
	rec := httptest.NewRecorder()
	var seen []string
	sink := newSSESink(rec, func(id string) { seen = append(seen, id) })

	sink.Send(transport.TokenMessage("a"))
	sink.Send(transport.OutboundMessage{Type: "tool_call", SessionID: "sess_1"})
	sink.Send(transport.OutboundMessage{Type: "tool_call", SessionID: "sess_1"})

	if len(seen) != 1 || seen[0] != "sess_1" {
		t.Errorf("got %v, want one call with sess_1", seen)
	}
}

func TestSSESinkHasStartedStreaming(t *testing.T) {
	rec := httptest.NewRecorder()
	sink := newSSESink(rec, nil)
	if sink.hasStartedStreaming() {
		t.Error("should not have started streaming yet")
	}
	sink.Send(transport.TokenMessage("a"))
	if !sink.hasStartedStreaming() {
		t.Error("should have started streaming")
	}
}

func TestSSESinkErrorFrameIsNotTerminal(t *testing.T) {
	rec := httptest.NewRecorder()
	sink := newSSESink(rec, nil)

	if err := sink.Send(transport.ErrorMessage("backend unavailable")); err != nil {
		t.Fatalf("Send(error) error: %v", err)
	}
	if strings.Contains(rec.Body.String(), "[DONE]") {
		t.Fatalf("error frame terminated the stream early: %q", rec.Body.String())
	}

	if err := sink.Send(transport.DoneMessage("sess_1", "m")); err != nil {
		t.Fatalf("Send(done) after error error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), "data: [DONE]\n\n") {
		t.Errorf("missing [DONE] terminator after done: %q", rec.Body.String())
	}
}

func TestSSESinkFinishClosesStreamLeftOpenByErrorOnly(t *testing.T) {
	rec := httptest.NewRecorder()
	sink := newSSESink(rec, nil)

	sink.Send(transport.ErrorMessage("framing error"))
	if err := sink.finish(); err != nil {
		t.Fatalf("finish error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), "data: [DONE]\n\n") {
		t.Errorf("finish did not close the stream: %q", rec.Body.String())
	}

	// finish is idempotent once the stream is already completed.
	if err := sink.finish(); err != nil {
		t.Fatalf("second finish error: %v", err)
	}
}

func TestSSESinkFinishNoopWhenIdle(t *testing.T) {
	rec := httptest.NewRecorder()
	sink := newSSESink(rec, nil)

	if err := sink.finish(); err != nil {
		t.Fatalf("finish error: %v", err)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("finish on idle sink wrote output: %q", rec.Body.String())
	}
}
