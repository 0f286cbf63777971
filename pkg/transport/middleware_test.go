package transport

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/nilcaream/bobai/pkg/apierr"
)

// recordingSink collects every OutboundMessage sent to it.
type recordingSink struct {
	sent []OutboundMessage
}

func (s *recordingSink) Send(m OutboundMessage) error {
	s.sent = append(s.sent, m)
	return nil
}

func TestChainAppliesMiddlewareInOrder(t *testing.T) {
	var order []string

	mw := func(name string) Middleware {
		return func(next PromptHandler) PromptHandler {
			return PromptHandlerFunc(func(ctx context.Context, in InboundMessage, sink ClientSink) error {
				order = append(order, name+":before")
				err := next.HandlePrompt(ctx, in, sink)
				order = append(order, name+":after")
				return err
			})
		}
	}

	handler := PromptHandlerFunc(func(ctx context.Context, in InboundMessage, sink ClientSink) error {
		order = append(order, "handler")
		return nil
	})

	chain := Chain(mw("first"), mw("second"), mw("third"))
	wrapped := chain(handler)

	wrapped.HandlePrompt(context.Background(), InboundMessage{}, &recordingSink{})

	expected := []string{
		"first:before", "second:before", "third:before",
		"handler",
		"third:after", "second:after", "first:after",
	}

	if len(order) != len(expected) {
		t.Fatalf("execution order length = %d, want %d: %v", len(order), len(expected), order)
	}
	for i, got := range order {
		if got != expected[i] {
			t.Errorf("order[%d] = %q, want %q", i, got, expected[i])
		}
	}
}

func TestRecoveryCatchesPanic(t *testing.T) {
	handler := PromptHandlerFunc(func(ctx context.Context, in InboundMessage, sink ClientSink) error {
		panic("test panic")
	})

	wrapped := Recovery()(handler)
	err := wrapped.HandlePrompt(context.Background(), InboundMessage{}, &recordingSink{})

	if err == nil {
		t.Fatal("expected error after panic, got nil")
	}

	apiErr, ok := err.(*apierr.APIError)
	if !ok {
		t.Fatalf("expected *apierr.APIError, got %T: %v", err, err)
	}
	if apiErr.Type != apierr.TypeServerError {
		t.Errorf("error type = %q, want %q", apiErr.Type, apierr.TypeServerError)
	}
	if !strings.Contains(apiErr.Message, "test panic") {
		t.Errorf("error message = %q, should contain %q", apiErr.Message, "test panic")
	}
}

func TestRecoveryPassesThroughNormalExecution(t *testing.T) {
	handler := PromptHandlerFunc(func(ctx context.Context, in InboundMessage, sink ClientSink) error {
		return nil
	})

	wrapped := Recovery()(handler)
	err := wrapped.HandlePrompt(context.Background(), InboundMessage{}, &recordingSink{})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequestIDGeneratesNewID(t *testing.T) {
	var capturedID string

	handler := PromptHandlerFunc(func(ctx context.Context, in InboundMessage, sink ClientSink) error {
		capturedID = RequestIDFromContext(ctx)
		return nil
	})

	wrapped := RequestID()(handler)
	wrapped.HandlePrompt(context.Background(), InboundMessage{}, &recordingSink{})

	if capturedID == "" {
		t.Error("expected a generated request ID, got empty string")
	}
	if len(capturedID) != 32 { // 16 bytes = 32 hex chars
		t.Errorf("request ID length = %d, want 32 (hex encoded)", len(capturedID))
	}
}

func TestRequestIDPropagatesExisting(t *testing.T) {
	var capturedID string

	handler := PromptHandlerFunc(func(ctx context.Context, in InboundMessage, sink ClientSink) error {
		capturedID = RequestIDFromContext(ctx)
		return nil
	})

	ctx := ContextWithRequestID(context.Background(), "existing-id-123")
	wrapped := RequestID()(handler)
	wrapped.HandlePrompt(ctx, InboundMessage{}, &recordingSink{})

	if capturedID != "existing-id-123" {
		t.Errorf("request ID = %q, want %q", capturedID, "existing-id-123")
	}
}

func TestRequestIDUniqueness(t *testing.T) {
	ids := make(map[string]bool)
	handler := PromptHandlerFunc(func(ctx context.Context, in InboundMessage, sink ClientSink) error {
		ids[RequestIDFromContext(ctx)] = true
		return nil
	})

	wrapped := RequestID()(handler)
	for i := 0; i < 100; i++ {
		wrapped.HandlePrompt(context.Background(), InboundMessage{}, &recordingSink{})
	}

	if len(ids) != 100 {
		t.Errorf("expected 100 unique IDs, got %d", len(ids))
	}
}

func TestLoggingEmitsFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	handler := PromptHandlerFunc(func(ctx context.Context, in InboundMessage, sink ClientSink) error {
		return nil
	})

	ctx := ContextWithRequestID(context.Background(), "req-log-test")
	wrapped := Logging(logger)(handler)
	wrapped.HandlePrompt(ctx, InboundMessage{Type: "prompt", Text: "hello", SessionID: "sess_1"}, &recordingSink{})

	output := buf.String()
	for _, expected := range []string{"request_id=req-log-test", "session_id=sess_1", "request completed"} {
		if !strings.Contains(output, expected) {
			t.Errorf("log output missing %q in:\n%s", expected, output)
		}
	}
}

func TestLoggingEmitsErrorOnFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	handler := PromptHandlerFunc(func(ctx context.Context, in InboundMessage, sink ClientSink) error {
		return apierr.NewServerError("test failure")
	})

	wrapped := Logging(logger)(handler)
	wrapped.HandlePrompt(context.Background(), InboundMessage{Type: "prompt", Text: "hi"}, &recordingSink{})

	output := buf.String()
	if !strings.Contains(output, "request failed") {
		t.Errorf("log output missing 'request failed' in:\n%s", output)
	}
	if !strings.Contains(output, "test failure") {
		t.Errorf("log output missing error message in:\n%s", output)
	}
}
