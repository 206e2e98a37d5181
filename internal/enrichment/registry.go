package enrichment

import (
	"fmt"
	"sort"
	"strings"

	"MinifluxAI/internal/ports"
)

// Provider is a named summarization backend.
type Provider interface {
	ports.Summarizer
	Name() string
}

// Registry keeps a mapping from provider names to their implementations.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: map[string]Provider{}}
}

// Register adds or replaces a provider implementation.
func (r *Registry) Register(provider Provider) {
	if r.providers == nil {
		r.providers = map[string]Provider{}
	}
	r.providers[normalize(provider.Name())] = provider
}

// Resolve returns a provider by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Provider, error) {
	if provider, ok := r.providers[normalize(name)]; ok {
		return provider, nil
	}
	return nil, fmt.Errorf("enrichment provider %q is not registered (known: %s)", name, strings.Join(r.Names(), ", "))
}

// Names lists registered providers in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
