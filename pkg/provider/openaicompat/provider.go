package openaicompat

import (
	"time"

	"github.com/nilcaream/bobai/pkg/provider"
)

// Provider is the provider.Provider implementation for an OpenAI-compatible
// Chat Completions backend. Complete/Stream/ListModels/Close are delegated
// to the embedded Client.
type Provider struct {
	*Client

	name string
}

var _ provider.Provider = (*Provider)(nil)

// New creates a Provider identified by name, talking to the Chat
// Completions backend at baseURL.
func New(name, baseURL, apiKey string, timeout time.Duration) *Provider {
	return &Provider{
		Client: NewClient(baseURL, apiKey, timeout),
		name:   name,
	}
}

// Name returns the provider identifier supplied to New.
func (p *Provider) Name() string { return p.name }

// Capabilities reports streaming and tool-calling support — both are
// required by spec.md §4.2/§6 for any usable backend.
func (p *Provider) Capabilities() provider.ProviderCapabilities {
	return provider.ProviderCapabilities{Streaming: true, ToolCalling: true}
}
