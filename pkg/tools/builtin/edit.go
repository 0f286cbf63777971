package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/nilcaream/bobai/pkg/tools"
)

// EditTool replaces one exact, unique occurrence of old_string with
// new_string in a file. Unlike a plain "replace first match" edit, it
// fails closed when old_string is absent or ambiguous (matches more than
// once), so the model cannot silently edit the wrong occurrence
// (spec.md §4.3, §8).
type EditTool struct{}

func (t *EditTool) Name() string { return "edit_file" }

func (t *EditTool) Description() string {
	return "Replace a unique occurrence of old_string with new_string in a file."
}

func (t *EditTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"path": {"type": "string", "description": "Path to the file, relative to the project root or absolute within it."},
			"old_string": {"type": "string", "description": "The exact text to replace. Must match exactly one location in the file."},
			"new_string": {"type": "string", "description": "Replacement text."}
		},
		"required": ["path", "old_string", "new_string"]
	}`)
}

func (t *EditTool) Run(ctx context.Context, args json.RawMessage, toolCtx tools.ToolContext) (tools.ToolResult, error) {
	var payload struct {
		Path string `json:"path"`
		Old  string `json:"old_string"`
		New  string `json:"new_string"`
	}
	if err := json.Unmarshal(args, &payload); err != nil {
		return tools.ToolResult{Output: fmt.Sprintf("invalid arguments: %v", err), IsError: true}, nil
	}
	if payload.Path == "" {
		return tools.ToolResult{Output: "path is required", IsError: true}, nil
	}
	if payload.Old == "" {
		return tools.ToolResult{Output: "old_string must not be empty", IsError: true}, nil
	}

	path, err := toolCtx.Sandbox.ResolvePath(payload.Path, true)
	if err != nil {
		return tools.ToolResult{Output: err.Error(), IsError: true}, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return tools.ToolResult{Output: err.Error(), IsError: true}, nil
	}

	original, err := os.ReadFile(path)
	if err != nil {
		return tools.ToolResult{Output: err.Error(), IsError: true}, nil
	}
	content := string(original)

	count := strings.Count(content, payload.Old)
	switch count {
	case 0:
		return tools.ToolResult{Output: "old_string not found in file", IsError: true}, nil
	case 1:
		// exactly one match, proceed
	default:
		return tools.ToolResult{Output: fmt.Sprintf("old_string has %d multiple matches; must match exactly one location", count), IsError: true}, nil
	}

	matchLine := strings.Count(content[:strings.Index(content, payload.Old)], "\n")
	updated := strings.Replace(content, payload.Old, payload.New, 1)

	if err := writeAtomic(path, []byte(updated), info.Mode().Perm()); err != nil {
		return tools.ToolResult{Output: fmt.Sprintf("write failed: %v", err), IsError: true}, nil
	}

	excerpt := contextExcerpt(updated, matchLine, strings.Count(payload.New, "\n")+1)
	return tools.ToolResult{Output: excerpt}, nil
}

// contextExcerpt returns up to 3 lines of line-numbered context before and
// after the edited region, so the model can confirm the edit landed where
// intended without re-reading the whole file.
func contextExcerpt(content string, firstEditedLine, editedLineCount int) string {
	lines := strings.Split(content, "\n")
	lastEditedLine := firstEditedLine + editedLineCount - 1

	start := firstEditedLine - 3
	if start < 0 {
		start = 0
	}
	end := lastEditedLine + 3
	if end > len(lines)-1 {
		end = len(lines) - 1
	}

	var out strings.Builder
	for n := start; n <= end; n++ {
		fmt.Fprintf(&out, "%d: %s\n", n+1, lines[n])
	}
	return out.String()
}
