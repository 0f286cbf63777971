package tools

import "sort"

// Registry holds the tool set available to a session's agent loop: a
// name→Tool mapping plus the provider-facing catalogue (spec.md §4.3).
type Registry struct {
	tools map[string]Tool
}

// NewRegistry builds a Registry from the given tools, keyed by name.
func NewRegistry(toolList []Tool) *Registry {
	m := make(map[string]Tool, len(toolList))
	for _, t := range toolList {
		m[t.Name()] = t
	}
	return &Registry{tools: m}
}

// Specs returns the provider-facing tool declarations in a deterministic
// (name-sorted) order, so repeated requests produce byte-identical tool
// arrays.
func (r *Registry) Specs() []ToolSpec {
	names := r.names()
	specs := make([]ToolSpec, 0, len(names))
	for _, name := range names {
		t := r.tools[name]
		specs = append(specs, ToolSpec{
			Name:        t.Name(),
			Description: t.Description(),
			Schema:      t.Schema(),
		})
	}
	return specs
}

// Lookup returns the named tool, or false if no tool is registered under
// that name (spec.md §4.3's "not-found signal").
func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

func (r *Registry) names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
