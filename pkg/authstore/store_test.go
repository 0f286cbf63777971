package authstore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileIsNotError(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "auth.json"))
	_, _, ok := s.Load("openai")
	if ok {
		t.Fatal("expected no token for missing file")
	}
}

func TestLoadMalformedFileIsNotError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	if err := os.WriteFile(path, []byte("not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	s := New(path)
	_, _, ok := s.Load("openai")
	if ok {
		t.Fatal("expected no token for malformed file")
	}
}

func TestSaveAndLoad(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "auth.json"))
	if err := s.Save("openai", "sk-test", "bearer"); err != nil {
		t.Fatal(err)
	}
	token, tokenType, ok := s.Load("openai")
	if !ok {
		t.Fatal("expected token to be found")
	}
	if token != "sk-test" || tokenType != "bearer" {
		t.Fatalf("got (%q, %q), want (%q, %q)", token, tokenType, "sk-test", "bearer")
	}
}

// TestSaveIdempotent verifies saving the same token twice yields the same
// persisted state (spec.md §8).
func TestSaveIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	s := New(path)

	if err := s.Save("openai", "sk-test", "bearer"); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Save("openai", "sk-test", "bearer"); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if string(first) != string(second) {
		t.Fatalf("save not idempotent:\nfirst:  %s\nsecond: %s", first, second)
	}
}

func TestSaveFilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	s := New(path)
	if err := s.Save("openai", "sk-test", "bearer"); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("got mode %o, want 0600", info.Mode().Perm())
	}
}

func TestSavePreservesOtherProviders(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "auth.json"))
	if err := s.Save("openai", "sk-openai", "bearer"); err != nil {
		t.Fatal(err)
	}
	if err := s.Save("anthropic", "sk-anthropic", "bearer"); err != nil {
		t.Fatal(err)
	}

	token, _, ok := s.Load("openai")
	if !ok || token != "sk-openai" {
		t.Fatalf("openai token lost: %q, ok=%v", token, ok)
	}
	token, _, ok = s.Load("anthropic")
	if !ok || token != "sk-anthropic" {
		t.Fatalf("anthropic token lost: %q, ok=%v", token, ok)
	}
}

func TestDelete(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "auth.json"))
	if err := s.Save("openai", "sk-test", "bearer"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete("openai"); err != nil {
		t.Fatal(err)
	}
	if _, _, ok := s.Load("openai"); ok {
		t.Fatal("expected token to be deleted")
	}
}

func TestDeleteMissingFileIsNotError(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "auth.json"))
	if err := s.Delete("openai"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}
