package builtin

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteToolCreatesFileAndParents(t *testing.T) {
	root := t.TempDir()
	toolCtx := newToolCtx(t, root)
	w := &WriteTool{}
	res, err := w.Run(context.Background(), []byte(`{"path":"nested/dir/f.txt","content":"hello"}`), toolCtx)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.Output)
	}
	if res.Output != "wrote 5 bytes" {
		t.Fatalf("got %q", res.Output)
	}
	got, readErr := os.ReadFile(filepath.Join(root, "nested/dir/f.txt"))
	if readErr != nil {
		t.Fatal(readErr)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q", got)
	}
}

func TestWriteToolOverwritesExisting(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "f.txt")
	if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	toolCtx := newToolCtx(t, root)
	w := &WriteTool{}
	res, err := w.Run(context.Background(), []byte(`{"path":"f.txt","content":"new content"}`), toolCtx)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.Output)
	}
	got, readErr := os.ReadFile(path)
	if readErr != nil {
		t.Fatal(readErr)
	}
	if string(got) != "new content" {
		t.Fatalf("got %q", got)
	}
}

func TestWriteToolRejectsDirectoryTarget(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	toolCtx := newToolCtx(t, root)
	w := &WriteTool{}
	res, err := w.Run(context.Background(), []byte(`{"path":"sub","content":"x"}`), toolCtx)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected error writing over a directory")
	}
}

func TestWriteToolPathConfinement(t *testing.T) {
	root := t.TempDir()
	toolCtx := newToolCtx(t, root)
	w := &WriteTool{}
	res, err := w.Run(context.Background(), []byte(`{"path":"../escape.txt","content":"x"}`), toolCtx)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected path confinement error")
	}
}
