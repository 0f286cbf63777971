// Package builtin implements the six local filesystem/shell tools exposed
// to the agent loop, each confined to the project root via
// pkg/tools/sandbox (spec.md §4.3).
package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/nilcaream/bobai/pkg/tools"
)

const (
	// maxLineBytes truncates any single emitted line longer than this.
	maxLineBytes = 2000
	// maxReadPayload caps the total bytes read_file emits per call.
	maxReadPayload = 50 * 1024
	// defaultLineSpan is added to "from" to get the last line read_file
	// returns when "to" is omitted (a window of up to 2000 lines).
	defaultLineSpan = 1999
)

// ReadTool reads a line-numbered window of a file from disk.
type ReadTool struct{}

func (t *ReadTool) Name() string { return "read_file" }

func (t *ReadTool) Description() string {
	return "Read a range of lines from a file within the project, each prefixed with its line number."
}

func (t *ReadTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"path": {"type": "string", "description": "Path to the file, relative to the project root or absolute within it."},
			"from": {"type": "integer", "description": "1-indexed first line to read. Defaults to 1."},
			"to": {"type": "integer", "description": "1-indexed last line to read (inclusive). Defaults to from + 1999."}
		},
		"required": ["path"]
	}`)
}

func (t *ReadTool) Run(ctx context.Context, args json.RawMessage, toolCtx tools.ToolContext) (tools.ToolResult, error) {
	var payload struct {
		Path string `json:"path"`
		From *int   `json:"from"`
		To   *int   `json:"to"`
	}
	if err := json.Unmarshal(args, &payload); err != nil {
		return tools.ToolResult{Output: fmt.Sprintf("invalid arguments: %v", err), IsError: true}, nil
	}
	if payload.Path == "" {
		return tools.ToolResult{Output: "path is required", IsError: true}, nil
	}

	path, err := toolCtx.Sandbox.ResolvePath(payload.Path, true)
	if err != nil {
		return tools.ToolResult{Output: err.Error(), IsError: true}, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return tools.ToolResult{Output: err.Error(), IsError: true}, nil
	}
	if info.IsDir() {
		return tools.ToolResult{Output: fmt.Sprintf("%s is a directory", payload.Path), IsError: true}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return tools.ToolResult{Output: err.Error(), IsError: true}, nil
	}

	lines := strings.Split(string(data), "\n")
	totalLines := len(lines)

	from := 1
	if payload.From != nil && *payload.From > 0 {
		from = *payload.From
	}
	if from > totalLines {
		return tools.ToolResult{Output: fmt.Sprintf("from=%d exceeds file length (%d lines)", from, totalLines), IsError: true}, nil
	}

	to := from + defaultLineSpan
	if payload.To != nil && *payload.To > 0 {
		to = *payload.To
	}
	if to > totalLines {
		to = totalLines
	}

	var out strings.Builder
	byteCapped := false
	lastLine := from - 1

	for n := from; n <= to; n++ {
		line := lines[n-1]
		if len(line) > maxLineBytes {
			line = line[:maxLineBytes] + "... (truncated)"
		}
		entry := fmt.Sprintf("%d: %s\n", n, line)
		if out.Len()+len(entry) > maxReadPayload {
			byteCapped = true
			break
		}
		out.WriteString(entry)
		lastLine = n
	}

	switch {
	case byteCapped:
		fmt.Fprintf(&out, "\n[output capped at %d bytes; continue with from=%d]", maxReadPayload, lastLine+1)
	case lastLine >= totalLines:
		out.WriteString("\n[end of file]")
	default:
		fmt.Fprintf(&out, "\n[showing lines %d-%d of %d; continue with from=%d]", from, lastLine, totalLines, lastLine+1)
	}

	return tools.ToolResult{Output: out.String()}, nil
}
