package builtin

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestListDirToolBasic(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "b.txt"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "a.txt"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	toolCtx := newToolCtx(t, root)
	l := &ListDirTool{}
	res, err := l.Run(context.Background(), []byte(`{}`), toolCtx)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.Output)
	}
	want := "a.txt\nb.txt\nsub/\n"
	if res.Output != want {
		t.Fatalf("got %q, want %q", res.Output, want)
	}
}

func TestListDirToolDefaultsToProjectRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "f.txt"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	toolCtx := newToolCtx(t, root)
	l := &ListDirTool{}
	res, err := l.Run(context.Background(), nil, toolCtx)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.IsError || res.Output != "f.txt\n" {
		t.Fatalf("got %+v", res)
	}
}

func TestListDirToolNotADirectory(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "f.txt"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	toolCtx := newToolCtx(t, root)
	l := &ListDirTool{}
	res, err := l.Run(context.Background(), []byte(`{"path":"f.txt"}`), toolCtx)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected error listing a non-directory")
	}
}

func TestListDirToolPathConfinement(t *testing.T) {
	root := t.TempDir()
	toolCtx := newToolCtx(t, root)
	l := &ListDirTool{}
	res, err := l.Run(context.Background(), []byte(`{"path":".."}`), toolCtx)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected path confinement error")
	}
}
