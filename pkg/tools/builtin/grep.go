package builtin

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nilcaream/bobai/pkg/tools"
)

const (
	// maxGrepFileSize skips files larger than this during a search.
	maxGrepFileSize = 5 * 1024 * 1024
	// maxGrepResults caps the number of matches returned per call.
	maxGrepResults = 100
)

// GrepTool searches for a literal substring in files under a path, with an
// optional filename glob filter.
type GrepTool struct{}

func (t *GrepTool) Name() string { return "grep_search" }

func (t *GrepTool) Description() string {
	return "Search for a literal string in files under a path within the project."
}

func (t *GrepTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"pattern": {"type": "string", "description": "Literal string to search for."},
			"path": {"type": "string", "description": "File or directory to search, relative to the project root or absolute within it. Defaults to the project root."},
			"include": {"type": "string", "description": "Filename glob filter, e.g. \"*.go\"."}
		},
		"required": ["pattern"]
	}`)
}

func (t *GrepTool) Run(ctx context.Context, args json.RawMessage, toolCtx tools.ToolContext) (tools.ToolResult, error) {
	var payload struct {
		Pattern string `json:"pattern"`
		Path    string `json:"path"`
		Include string `json:"include"`
	}
	if err := json.Unmarshal(args, &payload); err != nil {
		return tools.ToolResult{Output: fmt.Sprintf("invalid arguments: %v", err), IsError: true}, nil
	}
	if payload.Pattern == "" {
		return tools.ToolResult{Output: "pattern is required", IsError: true}, nil
	}
	if payload.Path == "" {
		payload.Path = "."
	}

	root, err := toolCtx.Sandbox.ResolvePath(payload.Path, true)
	if err != nil {
		return tools.ToolResult{Output: err.Error(), IsError: true}, nil
	}

	var matches []string
	truncated := false
	walkErr := filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if len(matches) >= maxGrepResults {
			truncated = true
			return filepath.SkipAll
		}
		if err != nil || entry.IsDir() {
			return nil
		}
		if payload.Include != "" {
			if ok, _ := filepath.Match(payload.Include, entry.Name()); !ok {
				return nil
			}
		}
		info, err := entry.Info()
		if err != nil || info.Size() > maxGrepFileSize {
			return nil
		}
		file, err := os.Open(path)
		if err != nil {
			return nil
		}
		defer file.Close()

		scanner := bufio.NewScanner(file)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		lineNumber := 1
		for scanner.Scan() {
			if strings.Contains(scanner.Text(), payload.Pattern) {
				matches = append(matches, fmt.Sprintf("%s:%d:%s", path, lineNumber, scanner.Text()))
				if len(matches) >= maxGrepResults {
					truncated = true
					break
				}
			}
			lineNumber++
		}
		return nil
	})
	if walkErr != nil {
		return tools.ToolResult{Output: walkErr.Error(), IsError: true}, nil
	}

	if len(matches) == 0 {
		return tools.ToolResult{Output: "no matches"}, nil
	}

	out := strings.Join(matches, "\n")
	if truncated {
		out += fmt.Sprintf("\n[truncated at %d matches]", maxGrepResults)
	}
	return tools.ToolResult{Output: out}, nil
}
