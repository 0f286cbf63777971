package builtin

import (
	"context"
	"strings"
	"testing"
)

func TestBashToolRunsCommand(t *testing.T) {
	root := t.TempDir()
	toolCtx := newToolCtx(t, root)
	b := &BashTool{}
	res, err := b.Run(context.Background(), []byte(`{"command":"echo hello"}`), toolCtx)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.Output)
	}
	if res.Output != "hello" {
		t.Fatalf("got %q", res.Output)
	}
}

func TestBashToolRunsInProjectRoot(t *testing.T) {
	root := t.TempDir()
	toolCtx := newToolCtx(t, root)
	b := &BashTool{}
	res, err := b.Run(context.Background(), []byte(`{"command":"pwd"}`), toolCtx)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.Output)
	}
	if strings.TrimSpace(res.Output) != root {
		t.Fatalf("got %q, want %q", res.Output, root)
	}
}

func TestBashToolNonZeroExitEmbedsCode(t *testing.T) {
	root := t.TempDir()
	toolCtx := newToolCtx(t, root)
	b := &BashTool{}
	res, err := b.Run(context.Background(), []byte(`{"command":"exit 3"}`), toolCtx)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected error result for non-zero exit")
	}
	if !strings.Contains(res.Output, "exit code: 3") {
		t.Fatalf("got %q", res.Output)
	}
}

func TestBashToolTimeout(t *testing.T) {
	root := t.TempDir()
	toolCtx := newToolCtx(t, root)
	b := &BashTool{}
	res, err := b.Run(context.Background(), []byte(`{"command":"sleep 5","timeout":100}`), toolCtx)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected timeout to be an error result")
	}
	if !strings.Contains(res.Output, "timed out") {
		t.Fatalf("got %q", res.Output)
	}
}

func TestBashToolMissingCommandIsError(t *testing.T) {
	root := t.TempDir()
	toolCtx := newToolCtx(t, root)
	b := &BashTool{}
	res, err := b.Run(context.Background(), []byte(`{"command":""}`), toolCtx)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected error for empty command")
	}
}
