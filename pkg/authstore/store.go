// Package authstore persists per-provider auth tokens on disk, keyed by
// provider id, so the CLI only has to authenticate once per provider
// (spec.md §4.9).
package authstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type tokenEntry struct {
	Token string `json:"token"`
	Type  string `json:"type"`
}

// Store is a JSON file mapping provider_id -> {token, type}, written with
// 0600 permissions so credentials are not readable by other local users.
type Store struct {
	path string
}

// New returns a Store backed by the file at path. The file is not created
// until the first Save call.
func New(path string) *Store {
	return &Store{path: path}
}

// Load returns the stored token and token type for providerID. A missing
// or malformed file yields "no token" (ok=false) rather than an error
// (spec.md §4.9).
func (s *Store) Load(providerID string) (token, tokenType string, ok bool) {
	entries, err := s.readAll()
	if err != nil {
		return "", "", false
	}
	entry, ok := entries[providerID]
	if !ok {
		return "", "", false
	}
	return entry.Token, entry.Type, true
}

// Save writes the token and token type for providerID, read-modify-write
// against the existing file so other providers' entries are preserved.
// Calling Save twice with the same arguments is idempotent (spec.md §8).
func (s *Store) Save(providerID, token, tokenType string) error {
	entries, err := s.readAll()
	if err != nil {
		entries = map[string]tokenEntry{}
	}
	entries[providerID] = tokenEntry{Token: token, Type: tokenType}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tokens: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create auth dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".bobai-auth-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	return os.Rename(tmpName, s.path)
}

// Delete removes the stored token for providerID, if any.
func (s *Store) Delete(providerID string) error {
	entries, err := s.readAll()
	if err != nil {
		return nil
	}
	if _, ok := entries[providerID]; !ok {
		return nil
	}
	delete(entries, providerID)

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tokens: %w", err)
	}
	return os.WriteFile(s.path, data, 0o600)
}

func (s *Store) readAll() (map[string]tokenEntry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	var entries map[string]tokenEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
