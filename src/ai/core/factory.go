package core

import (
	"fmt"
	"strings"
	"sync"
)

// FactoryConfig captures the inputs required to construct a provider client.
type FactoryConfig struct {
	Provider string

	SystemPrompt        string
	Model               string
	Temperature         float64
	MaxCompletionTokens int

	OpenAIKey string
	ClaudeKey string

	// Endpoint overrides the provider URL, for proxies and tests.
	Endpoint string
}

// ProviderFactory implements provider-specific Client creation.
type ProviderFactory func(FactoryConfig) (Client, error)

// Provider describes one registered backend.
type Provider struct {
	Name         string
	Aliases      []string
	DefaultModel string
	// Credential picks the API key this provider authenticates with.
	Credential func(FactoryConfig) string
	New        ProviderFactory
}

const fallbackProvider = "gpt4o"

var registry = struct {
	sync.RWMutex
	byName map[string]*Provider
}{byName: map[string]*Provider{}}

func normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return fallbackProvider
	}
	return name
}

// Register makes p reachable under its name and every alias.
func Register(p Provider) {
	entry := p
	registry.Lock()
	defer registry.Unlock()
	for _, n := range append([]string{p.Name}, p.Aliases...) {
		registry.byName[normalize(n)] = &entry
	}
}

// Lookup finds a provider by name or alias. An empty name selects gpt4o.
func Lookup(name string) (Provider, bool) {
	registry.RLock()
	defer registry.RUnlock()
	p, ok := registry.byName[normalize(name)]
	if !ok {
		return Provider{}, false
	}
	return *p, true
}

// HasCredentials reports whether cfg carries the key its provider needs.
func HasCredentials(cfg FactoryConfig) bool {
	p, ok := Lookup(cfg.Provider)
	if !ok {
		return false
	}
	if p.Credential == nil {
		return true
	}
	return p.Credential(cfg) != ""
}

// NewClient returns a provider-agnostic AI client.
func NewClient(cfg FactoryConfig) (Client, error) {
	p, ok := Lookup(cfg.Provider)
	if !ok {
		return nil, fmt.Errorf("ai: provider %q not registered", cfg.Provider)
	}
	return p.New(cfg)
}

// ResolveModelName prefers the configured model, then the provider default,
// then "unknown".
func ResolveModelName(provider, configured string) string {
	if m := strings.TrimSpace(configured); m != "" {
		return m
	}
	if p, ok := Lookup(provider); ok && p.DefaultModel != "" {
		return p.DefaultModel
	}
	return "unknown"
}
