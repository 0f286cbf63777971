package builtin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/nilcaream/bobai/pkg/tools"
)

const (
	// maxCommandOutput limits combined stdout/stderr output.
	maxCommandOutput = 50000
	// defaultCommandTimeout is used when the command omits "timeout".
	defaultCommandTimeout = 30000 * time.Millisecond
	// killDrainGrace is how long bash waits for buffered output to flush
	// after killing a timed-out process.
	killDrainGrace = 2 * time.Second
)

// syncBuffer is an io.Writer safe for concurrent use by a running
// command's stdout and stderr pipes and concurrent reads while it drains.
type syncBuffer struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// BashTool runs a shell command with its working directory rooted in the
// sandbox. Unlike the filesystem tools, bash does not otherwise confine
// what the command itself can touch — the sandbox only fixes where it runs
// (spec.md §4.3's Non-goals: command-level confinement is out of scope).
type BashTool struct{}

func (t *BashTool) Name() string { return "bash" }

func (t *BashTool) Description() string {
	return "Run a shell command with its working directory inside the project."
}

func (t *BashTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"command": {"type": "string", "description": "Shell command to execute."},
			"timeout": {"type": "integer", "description": "Timeout in milliseconds. Defaults to 30000."}
		},
		"required": ["command"]
	}`)
}

func (t *BashTool) Run(ctx context.Context, args json.RawMessage, toolCtx tools.ToolContext) (tools.ToolResult, error) {
	var payload struct {
		Command string `json:"command"`
		Timeout *int   `json:"timeout"`
	}
	if err := json.Unmarshal(args, &payload); err != nil {
		return tools.ToolResult{Output: fmt.Sprintf("invalid arguments: %v", err), IsError: true}, nil
	}
	if strings.TrimSpace(payload.Command) == "" {
		return tools.ToolResult{Output: "command is required", IsError: true}, nil
	}

	timeout := defaultCommandTimeout
	if payload.Timeout != nil && *payload.Timeout > 0 {
		timeout = time.Duration(*payload.Timeout) * time.Millisecond
	}

	cmd := exec.Command("bash", "-lc", payload.Command)
	cmd.Dir = toolCtx.Sandbox.Root()

	var out syncBuffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Start(); err != nil {
		return tools.ToolResult{Output: fmt.Sprintf("failed to start command: %v", err), IsError: true}, nil
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var runErr error
	timedOut := false

	select {
	case runErr = <-done:
	case <-timer.C:
		timedOut = true
		cmd.Process.Kill()
		select {
		case runErr = <-done:
		case <-time.After(killDrainGrace):
		}
	case <-ctx.Done():
		cmd.Process.Kill()
		select {
		case runErr = <-done:
		case <-time.After(killDrainGrace):
		}
		return tools.ToolResult{Output: "command canceled", IsError: true}, nil
	}

	output := strings.TrimRight(out.String(), "\n")
	truncated := false
	if len(output) > maxCommandOutput {
		output = output[:maxCommandOutput]
		truncated = true
	}

	if timedOut {
		output = fmt.Sprintf("%s\n[timed out after %s, process killed]", output, timeout)
		return tools.ToolResult{Output: output, IsError: true}, nil
	}
	if truncated {
		output += fmt.Sprintf("\n[output truncated at %d bytes]", maxCommandOutput)
	}

	if runErr != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			code = exitErr.ExitCode()
		}
		output = fmt.Sprintf("%s\n[exit code: %d]", output, code)
		return tools.ToolResult{Output: output, IsError: true}, nil
	}

	return tools.ToolResult{Output: output}, nil
}
