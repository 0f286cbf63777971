package engine

import "encoding/json"

// AgentEventType discriminates the three AgentEvent variants (spec.md §3):
// incremental text, a tool call about to run, and that call's result.
type AgentEventType int

const (
	AgentEventText AgentEventType = iota
	AgentEventToolCall
	AgentEventToolResult
)

// AgentEvent is a single real-time progress notification emitted by the
// loop as it runs, in the absolute order spec.md §4.5 requires: all text
// events in stream order, then for each tool call in index order its
// tool_call followed by its tool_result.
type AgentEvent struct {
	Type AgentEventType

	// Text carries an incremental text delta for AgentEventText.
	Text string

	// ToolCallID, ToolName, and Arguments are set on AgentEventToolCall.
	ToolCallID string
	ToolName   string
	Arguments  json.RawMessage

	// Output and IsError are set on AgentEventToolResult.
	Output  string
	IsError bool
}
