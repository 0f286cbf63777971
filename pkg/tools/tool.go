// Package tools defines the local tool registry: the six filesystem/shell
// tools a session's agent loop may invoke (read_file, list_directory,
// write_file, edit_file, grep_search, bash), all confined to the project
// root via pkg/tools/sandbox (spec.md §4.3).
package tools

import (
	"context"
	"encoding/json"

	"github.com/nilcaream/bobai/pkg/tools/sandbox"
)

// ToolResult is the outcome of a tool execution: plain text output, plus
// whether it represents an error. Tool errors are never transport-level
// failures — they are fed back to the model as an ordinary tool-role
// message (spec.md §4.3, §7).
type ToolResult struct {
	Output  string
	IsError bool
}

// ToolContext carries the per-turn dependencies a tool body needs.
type ToolContext struct {
	// Sandbox confines filesystem paths to the project root.
	Sandbox *sandbox.Sandbox
}

// ToolSpec is the provider-facing declaration of a tool: its name,
// description, and JSON-schema argument shape (spec.md §4.3).
type ToolSpec struct {
	Name        string
	Description string
	Schema      json.RawMessage
}

// Tool is a single callable tool. A returned error is converted by the
// caller into an error ToolResult carrying the error's message — tools
// should prefer returning ToolResult{IsError: true} directly when the
// failure is expected (bad argument, path outside root) and reserve a Go
// error for unexpected failures.
type Tool interface {
	Name() string
	Description() string
	Schema() json.RawMessage
	Run(ctx context.Context, args json.RawMessage, toolCtx ToolContext) (ToolResult, error)
}
