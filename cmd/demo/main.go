// Command demo exercises the bobai wire protocol end to end, without a
// network call: a canned provider plays one text turn and one tool-call
// turn, and the resulting frames are printed exactly as a client would
// receive them over the HTTP/SSE transport (spec.md §4.5, §4.7).
package main

import (
	"context"
	"fmt"

	"github.com/nilcaream/bobai/pkg/engine"
	"github.com/nilcaream/bobai/pkg/provider"
	"github.com/nilcaream/bobai/pkg/session/sqlite"
	"github.com/nilcaream/bobai/pkg/tools"
	"github.com/nilcaream/bobai/pkg/tools/builtin"
	"github.com/nilcaream/bobai/pkg/tools/sandbox"
	"github.com/nilcaream/bobai/pkg/transport"
	"github.com/nilcaream/bobai/pkg/turn"
)

func main() {
	fmt.Println("=== bobai core protocol demo ===")

	store, err := sqlite.Open(":memory:")
	if err != nil {
		fmt.Printf("opening session store: %v\n", err)
		return
	}
	defer store.Close()

	sb, err := sandbox.New(".")
	if err != nil {
		fmt.Printf("creating sandbox: %v\n", err)
		return
	}
	registry := tools.NewRegistry([]tools.Tool{&builtin.ListDirTool{}})

	handler := &turn.Handler{
		Store:            store,
		Provider:         &cannedProvider{},
		Model:            "demo-model",
		Tools:            registry,
		ToolContext:      tools.ToolContext{Sandbox: sb},
		SystemPrompt:     "You are a demo assistant.",
		IterationCeiling: 5,
		Loop:             engine.NewLoop(),
	}

	fmt.Println("\n[1] Plain text turn:")
	runTurn(handler, transport.InboundMessage{Type: "prompt", Text: "hello"})

	fmt.Println("\n[2] Tool-call turn (reuses the session above):")
	runTurn(handler, transport.InboundMessage{Type: "prompt", Text: "list files", SessionID: lastSessionID})

	fmt.Println("\n=== demo complete ===")
}

// lastSessionID is filled in by the first runTurn call so the second turn
// can resume the same session, the way a real client would pass sessionId
// back on every inbound frame after the first (spec.md §4.7).
var lastSessionID string

func runTurn(handler *turn.Handler, in transport.InboundMessage) {
	sink := &printingSink{}
	if err := handler.HandlePrompt(context.Background(), in, sink); err != nil {
		fmt.Printf("    HandlePrompt error: %v\n", err)
	}
}

// printingSink prints every outbound frame as compact JSON, capturing the
// session id off the first "done" frame for the next call above.
type printingSink struct{}

func (s *printingSink) Send(msg transport.OutboundMessage) error {
	data, err := transport.EncodeOutbound(msg)
	if err != nil {
		return err
	}
	fmt.Printf("    %s\n", data)
	if msg.Type == "done" && msg.SessionID != "" {
		lastSessionID = msg.SessionID
	}
	return nil
}

// cannedProvider is a fixed provider.Provider that answers the first call
// with plain text and the second with one tool call, so the demo can show
// both halves of the wire protocol without reaching a real backend.
type cannedProvider struct {
	calls int
}

var _ provider.Provider = (*cannedProvider)(nil)

func (p *cannedProvider) Name() string { return "canned" }

func (p *cannedProvider) Capabilities() provider.ProviderCapabilities {
	return provider.ProviderCapabilities{Streaming: true, ToolCalling: true}
}

func (p *cannedProvider) Complete(ctx context.Context, req *provider.ProviderRequest) (*provider.ProviderResponse, error) {
	return nil, fmt.Errorf("canned provider only supports Stream")
}

// Stream answers the demo's three provider calls in sequence: a plain
// text reply to the first turn, a tool call to start the second turn,
// then a plain text reply once the tool result is back in history.
func (p *cannedProvider) Stream(ctx context.Context, req *provider.ProviderRequest) (<-chan provider.ProviderEvent, error) {
	ch := make(chan provider.ProviderEvent, 8)
	p.calls++
	call := p.calls

	go func() {
		defer close(ch)

		switch {
		case call == 1:
			for _, tok := range []string{"Hello", "!", " How", " can", " I", " help?"} {
				ch <- provider.ProviderEvent{Type: provider.EventText, TextDelta: tok}
			}
			ch <- provider.ProviderEvent{Type: provider.EventFinish, FinishReason: "stop"}
		case call == 2 && !hasToolResult(req.Messages):
			ch <- provider.ProviderEvent{Type: provider.EventToolCallStart, ToolCallIndex: 0, ToolCallID: "call_1", FunctionName: "list_directory", ArgumentsDelta: `{"path":"."}`}
			ch <- provider.ProviderEvent{Type: provider.EventFinish, FinishReason: "tool_calls"}
		default:
			for _, tok := range []string{"Here", " are", " the", " files."} {
				ch <- provider.ProviderEvent{Type: provider.EventText, TextDelta: tok}
			}
			ch <- provider.ProviderEvent{Type: provider.EventFinish, FinishReason: "stop"}
		}
	}()

	return ch, nil
}

func (p *cannedProvider) ListModels(ctx context.Context) ([]provider.ModelInfo, error) {
	return []provider.ModelInfo{{ID: "demo-model"}}, nil
}

func (p *cannedProvider) Close() error { return nil }

func hasToolResult(messages []provider.ProviderMessage) bool {
	for _, m := range messages {
		if m.Role == "tool" {
			return true
		}
	}
	return false
}
