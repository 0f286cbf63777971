package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nilcaream/bobai/pkg/tools"
)

// WriteTool writes full file contents to disk, creating parent directories
// and the file itself as needed, atomically.
type WriteTool struct{}

func (t *WriteTool) Name() string { return "write_file" }

func (t *WriteTool) Description() string {
	return "Write content to a file within the project, creating it if needed."
}

func (t *WriteTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"path": {"type": "string", "description": "Path to the file, relative to the project root or absolute within it."},
			"content": {"type": "string", "description": "Full file contents to write."}
		},
		"required": ["path", "content"]
	}`)
}

func (t *WriteTool) Run(ctx context.Context, args json.RawMessage, toolCtx tools.ToolContext) (tools.ToolResult, error) {
	var payload struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(args, &payload); err != nil {
		return tools.ToolResult{Output: fmt.Sprintf("invalid arguments: %v", err), IsError: true}, nil
	}
	if payload.Path == "" {
		return tools.ToolResult{Output: "path is required", IsError: true}, nil
	}

	path, err := toolCtx.Sandbox.ResolvePath(payload.Path, false)
	if err != nil {
		return tools.ToolResult{Output: err.Error(), IsError: true}, nil
	}

	mode := os.FileMode(0o644)
	if info, statErr := os.Stat(path); statErr == nil {
		if info.IsDir() {
			return tools.ToolResult{Output: "path is a directory", IsError: true}, nil
		}
		mode = info.Mode().Perm()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return tools.ToolResult{Output: err.Error(), IsError: true}, nil
	}

	if err := writeAtomic(path, []byte(payload.Content), mode); err != nil {
		return tools.ToolResult{Output: fmt.Sprintf("write failed: %v", err), IsError: true}, nil
	}

	return tools.ToolResult{Output: fmt.Sprintf("wrote %d bytes", len(payload.Content))}, nil
}

// writeAtomic writes to a temp file in the same directory and renames it
// into place, so a crash mid-write never leaves a partially written file.
func writeAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".bobai-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
