package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/nilcaream/bobai/pkg/tools"
)

// ListDirTool lists entries in a directory, one per line, with directories
// suffixed "/".
type ListDirTool struct{}

func (t *ListDirTool) Name() string { return "list_directory" }

func (t *ListDirTool) Description() string {
	return "List entries in a directory within the project, one per line."
}

func (t *ListDirTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"path": {"type": "string", "description": "Directory path, relative to the project root or absolute within it. Defaults to \".\"."}
		}
	}`)
}

func (t *ListDirTool) Run(ctx context.Context, args json.RawMessage, toolCtx tools.ToolContext) (tools.ToolResult, error) {
	var payload struct {
		Path string `json:"path"`
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &payload); err != nil {
			return tools.ToolResult{Output: fmt.Sprintf("invalid arguments: %v", err), IsError: true}, nil
		}
	}
	if payload.Path == "" {
		payload.Path = "."
	}

	path, err := toolCtx.Sandbox.ResolvePath(payload.Path, true)
	if err != nil {
		return tools.ToolResult{Output: err.Error(), IsError: true}, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return tools.ToolResult{Output: err.Error(), IsError: true}, nil
	}
	if !info.IsDir() {
		return tools.ToolResult{Output: fmt.Sprintf("%s is not a directory", payload.Path), IsError: true}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return tools.ToolResult{Output: err.Error(), IsError: true}, nil
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var out strings.Builder
	for _, name := range names {
		entry, err := os.Lstat(path + string(os.PathSeparator) + name)
		if err != nil {
			continue
		}
		if entry.IsDir() {
			out.WriteString(name + "/\n")
		} else {
			out.WriteString(name + "\n")
		}
	}

	return tools.ToolResult{Output: out.String()}, nil
}
