package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/nilcaream/bobai/pkg/provider"
	"github.com/nilcaream/bobai/pkg/session"
	"github.com/nilcaream/bobai/pkg/tools"
)

// scriptedProvider replays one canned event sequence per call to Stream,
// in order. It implements provider.Provider; the methods beyond Stream are
// not exercised by the loop and return zero values.
type scriptedProvider struct {
	scripts [][]provider.ProviderEvent
	calls   int
}

func (p *scriptedProvider) Name() string                           { return "scripted" }
func (p *scriptedProvider) Capabilities() provider.ProviderCapabilities { return provider.ProviderCapabilities{} }
func (p *scriptedProvider) Complete(context.Context, *provider.ProviderRequest) (*provider.ProviderResponse, error) {
	return nil, errors.New("not implemented")
}
func (p *scriptedProvider) ListModels(context.Context) ([]provider.ModelInfo, error) { return nil, nil }
func (p *scriptedProvider) Close() error                                            { return nil }

func (p *scriptedProvider) Stream(ctx context.Context, req *provider.ProviderRequest) (<-chan provider.ProviderEvent, error) {
	if p.calls >= len(p.scripts) {
		return nil, fmt.Errorf("scriptedProvider: no script for call %d", p.calls)
	}
	script := p.scripts[p.calls]
	p.calls++
	ch := make(chan provider.ProviderEvent, len(script))
	for _, ev := range script {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

// echoTool always succeeds, echoing its raw arguments as output.
type echoTool struct{}

func (echoTool) Name() string              { return "echo" }
func (echoTool) Description() string       { return "echo" }
func (echoTool) Schema() json.RawMessage   { return json.RawMessage(`{}`) }
func (echoTool) Run(_ context.Context, args json.RawMessage, _ tools.ToolContext) (tools.ToolResult, error) {
	return tools.ToolResult{Output: string(args)}, nil
}

// failTool always returns a Go error, to exercise the loop's conversion
// of thrown errors into an error ToolResult (spec.md §4.5).
type failTool struct{}

func (failTool) Name() string            { return "fail" }
func (failTool) Description() string     { return "fail" }
func (failTool) Schema() json.RawMessage { return json.RawMessage(`{}`) }
func (failTool) Run(context.Context, json.RawMessage, tools.ToolContext) (tools.ToolResult, error) {
	return tools.ToolResult{}, errors.New("boom")
}

func TestLoopPlainTextTurn(t *testing.T) {
	prov := &scriptedProvider{scripts: [][]provider.ProviderEvent{
		{
			{Type: provider.EventText, TextDelta: "Hello, "},
			{Type: provider.EventText, TextDelta: "world."},
			{Type: provider.EventFinish, FinishReason: "stop"},
		},
	}}

	var events []AgentEvent
	var produced []Produced
	l := NewLoop()
	final, err := l.Run(context.Background(), Input{
		Provider: prov,
		Model:    "m",
		Messages: []provider.ProviderMessage{{Role: "user", Content: "hi"}},
		OnEvent:  func(e AgentEvent) { events = append(events, e) },
		OnMessage: func(p Produced) { produced = append(produced, p) },
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if final != "Hello, world." {
		t.Fatalf("got %q", final)
	}
	if len(produced) != 1 || produced[0].Role != session.RoleAssistant || produced[0].Content != "Hello, world." {
		t.Fatalf("got %+v", produced)
	}
	if len(events) != 2 || events[0].Type != AgentEventText || events[1].Type != AgentEventText {
		t.Fatalf("got %+v", events)
	}
}

func TestLoopSingleToolRoundTrip(t *testing.T) {
	prov := &scriptedProvider{scripts: [][]provider.ProviderEvent{
		{
			{Type: provider.EventToolCallStart, ToolCallIndex: 0, ToolCallID: "call_1", FunctionName: "echo", ArgumentsDelta: `{"a":`},
			{Type: provider.EventToolCallDelta, ToolCallIndex: 0, ArgumentsDelta: `1}`},
			{Type: provider.EventFinish, FinishReason: "tool_calls"},
		},
		{
			{Type: provider.EventText, TextDelta: "done"},
			{Type: provider.EventFinish, FinishReason: "stop"},
		},
	}}

	registry := tools.NewRegistry([]tools.Tool{echoTool{}})

	var events []AgentEvent
	var produced []Produced
	l := NewLoop()
	final, err := l.Run(context.Background(), Input{
		Provider: prov,
		Model:    "m",
		Messages: []provider.ProviderMessage{{Role: "user", Content: "use echo"}},
		Tools:    registry,
		OnEvent:  func(e AgentEvent) { events = append(events, e) },
		OnMessage: func(p Produced) { produced = append(produced, p) },
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if final != "done" {
		t.Fatalf("got %q", final)
	}

	if len(produced) != 3 {
		t.Fatalf("got %d produced messages, want 3: %+v", len(produced), produced)
	}
	if produced[0].Role != session.RoleAssistant || produced[0].Metadata == nil || len(produced[0].Metadata.ToolCalls) != 1 {
		t.Fatalf("message 0: got %+v", produced[0])
	}
	if produced[1].Role != session.RoleTool || produced[1].Content != `{"a":1}` || produced[1].Metadata.ToolCallID != "call_1" {
		t.Fatalf("message 1: got %+v", produced[1])
	}
	if produced[2].Role != session.RoleAssistant || produced[2].Content != "done" {
		t.Fatalf("message 2: got %+v", produced[2])
	}

	if len(events) != 3 || events[0].Type != AgentEventToolCall || events[1].Type != AgentEventToolResult || events[2].Type != AgentEventText {
		t.Fatalf("got %+v", events)
	}
	if events[0].ToolCallID != "call_1" || events[0].ToolName != "echo" {
		t.Fatalf("got %+v", events[0])
	}
	if events[1].Output != `{"a":1}` || events[1].IsError {
		t.Fatalf("got %+v", events[1])
	}
}

func TestLoopUnknownToolSynthesizesError(t *testing.T) {
	prov := &scriptedProvider{scripts: [][]provider.ProviderEvent{
		{
			{Type: provider.EventToolCallStart, ToolCallIndex: 0, ToolCallID: "call_1", FunctionName: "does_not_exist", ArgumentsDelta: `{}`},
			{Type: provider.EventFinish, FinishReason: "tool_calls"},
		},
		{
			{Type: provider.EventFinish, FinishReason: "stop"},
		},
	}}

	registry := tools.NewRegistry(nil)

	var produced []Produced
	l := NewLoop()
	_, err := l.Run(context.Background(), Input{
		Provider:  prov,
		Model:     "m",
		Messages:  []provider.ProviderMessage{{Role: "user", Content: "hi"}},
		Tools:     registry,
		OnMessage: func(p Produced) { produced = append(produced, p) },
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(produced) < 2 {
		t.Fatalf("got %+v", produced)
	}
	toolMsg := produced[1]
	if toolMsg.Role != session.RoleTool || toolMsg.Content != "Unknown tool: does_not_exist" {
		t.Fatalf("got %+v", toolMsg)
	}
}

func TestLoopToolErrorBecomesErrorResult(t *testing.T) {
	prov := &scriptedProvider{scripts: [][]provider.ProviderEvent{
		{
			{Type: provider.EventToolCallStart, ToolCallIndex: 0, ToolCallID: "call_1", FunctionName: "fail", ArgumentsDelta: `{}`},
			{Type: provider.EventFinish, FinishReason: "tool_calls"},
		},
		{
			{Type: provider.EventFinish, FinishReason: "stop"},
		},
	}}

	registry := tools.NewRegistry([]tools.Tool{failTool{}})

	var events []AgentEvent
	l := NewLoop()
	_, err := l.Run(context.Background(), Input{
		Provider: prov,
		Model:    "m",
		Messages: []provider.ProviderMessage{{Role: "user", Content: "hi"}},
		Tools:    registry,
		OnEvent:  func(e AgentEvent) { events = append(events, e) },
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	var result *AgentEvent
	for i := range events {
		if events[i].Type == AgentEventToolResult {
			result = &events[i]
		}
	}
	if result == nil || !result.IsError {
		t.Fatalf("expected an error tool result, got %+v", events)
	}
}

// TestLoopIterationCeiling verifies a model that always requests tools
// terminates at the ceiling with a correctly pluralized notice, rather
// than looping forever (spec.md §4.5, §8).
func TestLoopIterationCeiling(t *testing.T) {
	const ceiling = 3
	var scripts [][]provider.ProviderEvent
	for i := 0; i < ceiling; i++ {
		scripts = append(scripts, []provider.ProviderEvent{
			{Type: provider.EventToolCallStart, ToolCallIndex: 0, ToolCallID: fmt.Sprintf("call_%d", i), FunctionName: "echo", ArgumentsDelta: `{}`},
			{Type: provider.EventFinish, FinishReason: "tool_calls"},
		})
	}
	prov := &scriptedProvider{scripts: scripts}
	registry := tools.NewRegistry([]tools.Tool{echoTool{}})

	l := NewLoop()
	final, err := l.Run(context.Background(), Input{
		Provider:         prov,
		Model:            "m",
		Messages:         []provider.ProviderMessage{{Role: "user", Content: "loop forever"}},
		Tools:            registry,
		IterationCeiling: ceiling,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := "Stopped after 3 iterations — possible runaway loop."
	if final != want {
		t.Fatalf("got %q, want %q", final, want)
	}
}

func TestLoopIterationCeilingSingularPluralization(t *testing.T) {
	prov := &scriptedProvider{scripts: [][]provider.ProviderEvent{
		{
			{Type: provider.EventToolCallStart, ToolCallIndex: 0, ToolCallID: "call_0", FunctionName: "echo", ArgumentsDelta: `{}`},
			{Type: provider.EventFinish, FinishReason: "tool_calls"},
		},
	}}
	registry := tools.NewRegistry([]tools.Tool{echoTool{}})

	l := NewLoop()
	final, err := l.Run(context.Background(), Input{
		Provider:         prov,
		Model:            "m",
		Messages:         []provider.ProviderMessage{{Role: "user", Content: "hi"}},
		Tools:            registry,
		IterationCeiling: 1,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := "Stopped after 1 iteration — possible runaway loop."
	if final != want {
		t.Fatalf("got %q, want %q", final, want)
	}
}

func TestLoopMalformedArgumentsBecomeEmptyObject(t *testing.T) {
	prov := &scriptedProvider{scripts: [][]provider.ProviderEvent{
		{
			{Type: provider.EventToolCallStart, ToolCallIndex: 0, ToolCallID: "call_1", FunctionName: "echo", ArgumentsDelta: `{not valid json`},
			{Type: provider.EventFinish, FinishReason: "tool_calls"},
		},
		{
			{Type: provider.EventFinish, FinishReason: "stop"},
		},
	}}
	registry := tools.NewRegistry([]tools.Tool{echoTool{}})

	var events []AgentEvent
	l := NewLoop()
	_, err := l.Run(context.Background(), Input{
		Provider: prov,
		Model:    "m",
		Messages: []provider.ProviderMessage{{Role: "user", Content: "hi"}},
		Tools:    registry,
		OnEvent:  func(e AgentEvent) { events = append(events, e) },
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if string(events[0].Arguments) != "{}" {
		t.Fatalf("got %s, want {}", events[0].Arguments)
	}
}
