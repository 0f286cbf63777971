package transport

import "context"

// ClientSink is the one-way channel a PromptHandler writes outbound frames
// through, in emission order: all token frames in stream order, then per
// tool call its tool_call followed by its tool_result, finally done or
// error (spec.md §4.5, §4.7).
type ClientSink interface {
	Send(OutboundMessage) error
}

// PromptHandler turns one decoded inbound prompt into a sequence of
// ClientSink sends. This is the seam pkg/turn.Handler implements and the
// HTTP adapter (and the middleware below) dispatch through.
type PromptHandler interface {
	HandlePrompt(ctx context.Context, in InboundMessage, sink ClientSink) error
}

// PromptHandlerFunc adapts a plain function to PromptHandler.
type PromptHandlerFunc func(ctx context.Context, in InboundMessage, sink ClientSink) error

// HandlePrompt calls f.
func (f PromptHandlerFunc) HandlePrompt(ctx context.Context, in InboundMessage, sink ClientSink) error {
	return f(ctx, in, sink)
}
