package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// defaultProviderID and defaultModel are the built-in fallback layer
// (spec.md §4.8). Opaque on purpose: callers resolve through Resolver
// rather than hardcoding these themselves.
const (
	defaultProviderID = "github-copilot"
	defaultModel      = "gpt-4o"
)

// ResolvedConfig is one layer's provider/model preferences, read from a
// project or global bobai.json. Either field may be absent, meaning that
// layer does not define it.
type ResolvedConfig struct {
	ID    string `json:"id,omitempty"`
	Model string `json:"model,omitempty"`
}

// Resolver resolves the provider id and model for a project by walking
// project-specific, then global, then built-in default layers (spec.md
// §4.8). For each field independently, the first layer that defines it
// wins.
type Resolver struct {
	ProjectRoot     string
	GlobalConfigDir string
}

// NewResolver builds a Resolver rooted at projectRoot, using the
// platform-conventional user config directory for the global layer.
func NewResolver(projectRoot string) (*Resolver, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolve global config dir: %w", err)
	}
	return &Resolver{
		ProjectRoot:     projectRoot,
		GlobalConfigDir: filepath.Join(dir, "bobai"),
	}, nil
}

// ProjectConfigPath returns the project-layer bobai.json path.
func (r *Resolver) ProjectConfigPath() string {
	return filepath.Join(r.ProjectRoot, ".bobai", "bobai.json")
}

// GlobalConfigPath returns the global-layer bobai.json path.
func (r *Resolver) GlobalConfigPath() string {
	return filepath.Join(r.GlobalConfigDir, "bobai.json")
}

// Resolve returns the provider id and model to use, per spec.md §4.8's
// three-layer precedence.
func (r *Resolver) Resolve() (providerID, model string) {
	project := readConfigLayer(r.ProjectConfigPath())
	global := readConfigLayer(r.GlobalConfigPath())

	providerID = firstNonEmpty(project.ID, global.ID, defaultProviderID)
	model = firstNonEmpty(project.Model, global.Model, defaultModel)
	return providerID, model
}

// readConfigLayer reads one bobai.json layer. A missing or malformed
// file yields a zero-value layer rather than an error — absence means
// "this layer does not define these fields," not a fatal condition.
func readConfigLayer(path string) ResolvedConfig {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ResolvedConfig{}
	}
	var cfg ResolvedConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return ResolvedConfig{}
	}
	return cfg
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
