package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGrepSearchFindsMatches(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.go"), []byte("package a\nfunc foo() {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "b.txt"), []byte("no match here\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	toolCtx := newToolCtx(t, root)
	g := &GrepTool{}
	res, err := g.Run(context.Background(), []byte(`{"pattern":"func foo"}`), toolCtx)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.Output)
	}
	if !strings.Contains(res.Output, "a.go:2:func foo() {}") {
		t.Fatalf("got %q", res.Output)
	}
	if strings.Contains(res.Output, "b.txt") {
		t.Fatalf("unexpected match from b.txt: %q", res.Output)
	}
}

func TestGrepSearchNoMatchIsSuccess(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("nothing interesting"), 0o644); err != nil {
		t.Fatal(err)
	}
	toolCtx := newToolCtx(t, root)
	g := &GrepTool{}
	res, err := g.Run(context.Background(), []byte(`{"pattern":"needle"}`), toolCtx)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.IsError {
		t.Fatalf("no matches should not be an error result: %s", res.Output)
	}
}

func TestGrepSearchIncludeFilter(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "match.go"), []byte("needle"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "match.txt"), []byte("needle"), 0o644); err != nil {
		t.Fatal(err)
	}
	toolCtx := newToolCtx(t, root)
	g := &GrepTool{}
	res, err := g.Run(context.Background(), []byte(`{"pattern":"needle","include":"*.go"}`), toolCtx)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !strings.Contains(res.Output, "match.go") || strings.Contains(res.Output, "match.txt") {
		t.Fatalf("include filter not applied: %q", res.Output)
	}
}

func TestGrepSearchTruncatesAtLimit(t *testing.T) {
	root := t.TempDir()
	var lines []string
	for i := 0; i < maxGrepResults+10; i++ {
		lines = append(lines, "needle")
	}
	if err := os.WriteFile(filepath.Join(root, "f.txt"), []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		t.Fatal(err)
	}
	toolCtx := newToolCtx(t, root)
	g := &GrepTool{}
	res, err := g.Run(context.Background(), []byte(`{"pattern":"needle"}`), toolCtx)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !strings.Contains(res.Output, fmt.Sprintf("[truncated at %d matches]", maxGrepResults)) {
		t.Fatalf("expected truncation notice, got tail: %q", res.Output[len(res.Output)-60:])
	}
}
