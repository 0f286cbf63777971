package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/nilcaream/bobai/pkg/provider"
	"github.com/nilcaream/bobai/pkg/session"
	"github.com/nilcaream/bobai/pkg/tools"
)

// DefaultIterationCeiling bounds the number of provider round-trips a
// single Run performs before giving up (spec.md §4.5).
const DefaultIterationCeiling = 20

// Produced is one durable message the loop has appended to the
// conversation, handed to Input.OnMessage for the caller to persist.
type Produced struct {
	Role     session.Role
	Content  string
	Metadata *session.Metadata
}

// Input holds everything one Run call needs: the backend to call, the
// conversation so far in provider wire shape, the tool registry available
// this turn, and the two sinks spec.md §4.5 requires.
type Input struct {
	Provider provider.Provider
	Model    string

	// Messages is the full conversation history, already projected into
	// the provider's message shape by the caller (pkg/turn).
	Messages []provider.ProviderMessage

	Tools       *tools.Registry
	ToolContext tools.ToolContext

	// IterationCeiling overrides DefaultIterationCeiling when positive.
	IterationCeiling int

	// OnEvent is called for every AgentEvent as it is produced. May be nil.
	OnEvent func(AgentEvent)

	// OnMessage is called for every durable message the loop appends, in
	// append order. May be nil.
	OnMessage func(Produced)
}

// Loop runs the provider↔tools agentic cycle (spec.md §4.5).
type Loop struct{}

// NewLoop returns a ready-to-use Loop. Loop holds no state between calls.
func NewLoop() *Loop { return &Loop{} }

// toolCallAccum accumulates one tool call's id, name, and argument JSON
// across however many stream chunks it arrives in.
type toolCallAccum struct {
	id   string
	name string
	args strings.Builder
}

// Run executes the agent loop against an initial conversation, returning
// the content of the final assistant message (which may be a synthetic
// runaway-loop notice). Every intermediate message and event is delivered
// through Input.OnMessage / Input.OnEvent as it is produced — the return
// value exists for convenience and tests, not as the only way to observe
// the loop's output.
func (l *Loop) Run(ctx context.Context, in Input) (string, error) {
	ceiling := in.IterationCeiling
	if ceiling <= 0 {
		ceiling = DefaultIterationCeiling
	}

	messages := append([]provider.ProviderMessage(nil), in.Messages...)

	var toolSpecs []provider.ProviderTool
	if in.Tools != nil {
		toolSpecs = toProviderTools(in.Tools.Specs())
	}

	for turn := 0; turn < ceiling; turn++ {
		req := &provider.ProviderRequest{
			Model:     in.Model,
			Messages:  messages,
			Tools:     toolSpecs,
			Stream:    true,
			Initiator: initiatorFor(messages),
		}

		events, err := in.Provider.Stream(ctx, req)
		if err != nil {
			return "", err
		}

		var text strings.Builder
		order := make([]int, 0, 4)
		calls := make(map[int]*toolCallAccum)
		finishReason := "stop"
		var streamErr error

		for ev := range events {
			switch ev.Type {
			case provider.EventText:
				text.WriteString(ev.TextDelta)
				emit(in.OnEvent, AgentEvent{Type: AgentEventText, Text: ev.TextDelta})

			case provider.EventToolCallStart:
				acc := &toolCallAccum{id: ev.ToolCallID, name: ev.FunctionName}
				acc.args.WriteString(ev.ArgumentsDelta)
				calls[ev.ToolCallIndex] = acc
				order = append(order, ev.ToolCallIndex)

			case provider.EventToolCallDelta:
				if acc, ok := calls[ev.ToolCallIndex]; ok {
					acc.args.WriteString(ev.ArgumentsDelta)
				}

			case provider.EventFinish:
				if ev.FinishReason != "" {
					finishReason = ev.FinishReason
				}

			case provider.EventError:
				streamErr = ev.Err
			}
		}
		if streamErr != nil {
			return "", streamErr
		}

		// Terminal case: stop reason, or no tool calls were produced.
		if finishReason == "stop" || len(calls) == 0 {
			content := text.String()
			produce(in.OnMessage, Produced{Role: session.RoleAssistant, Content: content})
			return content, nil
		}

		// Tool-call case: the assistant message carries the accumulated
		// text (possibly empty) plus the tool call list in index order.
		sort.Ints(order)
		records := make([]session.ToolCallRecord, 0, len(order))
		for _, idx := range order {
			acc := calls[idx]
			records = append(records, session.ToolCallRecord{ID: acc.id, Name: acc.name, Arguments: acc.args.String()})
		}
		assistantContent := text.String()
		produce(in.OnMessage, Produced{
			Role:     session.RoleAssistant,
			Content:  assistantContent,
			Metadata: &session.Metadata{ToolCalls: records},
		})
		messages = append(messages, assistantToolCallMessage(assistantContent, records))

		for _, idx := range order {
			acc := calls[idx]

			args := acc.args.String()
			var parsed json.RawMessage
			if json.Valid([]byte(args)) {
				parsed = json.RawMessage(args)
			} else {
				parsed = json.RawMessage("{}")
			}

			emit(in.OnEvent, AgentEvent{
				Type:       AgentEventToolCall,
				ToolCallID: acc.id,
				ToolName:   acc.name,
				Arguments:  parsed,
			})

			result := l.invoke(ctx, in, acc.name, parsed)

			emit(in.OnEvent, AgentEvent{
				Type:       AgentEventToolResult,
				ToolCallID: acc.id,
				ToolName:   acc.name,
				Output:     result.Output,
				IsError:    result.IsError,
			})

			produce(in.OnMessage, Produced{
				Role:     session.RoleTool,
				Content:  result.Output,
				Metadata: &session.Metadata{ToolCallID: acc.id},
			})
			messages = append(messages, provider.ProviderMessage{
				Role:       "tool",
				Content:    result.Output,
				ToolCallID: acc.id,
			})
		}
	}

	content := fmt.Sprintf("Stopped after %d iteration%s — possible runaway loop.", ceiling, plural(ceiling))
	produce(in.OnMessage, Produced{Role: session.RoleAssistant, Content: content})
	return content, nil
}

// invoke looks up and runs a tool, converting a missing tool or a Go error
// into an error ToolResult rather than aborting the loop (spec.md §4.5, §7).
func (l *Loop) invoke(ctx context.Context, in Input, name string, args json.RawMessage) tools.ToolResult {
	if in.Tools == nil {
		return tools.ToolResult{Output: fmt.Sprintf("Unknown tool: %s", name), IsError: true}
	}
	tool, ok := in.Tools.Lookup(name)
	if !ok {
		return tools.ToolResult{Output: fmt.Sprintf("Unknown tool: %s", name), IsError: true}
	}
	result, err := tool.Run(ctx, args, in.ToolContext)
	if err != nil {
		return tools.ToolResult{Output: fmt.Sprintf("Tool execution error: %v", err), IsError: true}
	}
	return result
}

func emit(sink func(AgentEvent), ev AgentEvent) {
	if sink != nil {
		sink(ev)
	}
}

func produce(sink func(Produced), p Produced) {
	if sink != nil {
		sink(p)
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// initiatorFor reports "user" when the conversation's last message has
// role user, else "agent" (spec.md §4.2).
func initiatorFor(messages []provider.ProviderMessage) string {
	if len(messages) == 0 {
		return "agent"
	}
	if messages[len(messages)-1].Role == "user" {
		return "user"
	}
	return "agent"
}

// assistantToolCallMessage builds the provider-shape assistant message
// carrying the tool calls the model requested, for appending to the
// conversation ahead of their results.
func assistantToolCallMessage(content string, records []session.ToolCallRecord) provider.ProviderMessage {
	calls := make([]provider.ProviderToolCall, 0, len(records))
	for _, r := range records {
		calls = append(calls, provider.ProviderToolCall{
			ID:   r.ID,
			Type: "function",
			Function: provider.ProviderFunctionCall{
				Name:      r.Name,
				Arguments: r.Arguments,
			},
		})
	}
	var c any
	if content != "" {
		c = content
	}
	return provider.ProviderMessage{Role: "assistant", Content: c, ToolCalls: calls}
}

// toProviderTools converts the registry's provider-agnostic tool
// declarations into the provider package's wire shape.
func toProviderTools(specs []tools.ToolSpec) []provider.ProviderTool {
	out := make([]provider.ProviderTool, 0, len(specs))
	for _, s := range specs {
		out = append(out, provider.ProviderTool{
			Type: "function",
			Function: provider.ProviderFunctionDef{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  s.Schema,
			},
		})
	}
	return out
}
