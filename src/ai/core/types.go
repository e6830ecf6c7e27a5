package core

import "context"

// Options controls model behavior; zero fields fall back to provider defaults.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int
	SystemPrompt        string
}

// Client is a provider-agnostic text-in, text-out model client.
type Client interface {
	// Respond sends input as a single user turn and returns the model's text.
	Respond(ctx context.Context, input string, opts Options) (string, error)
}

// Merge overlays non-zero fields of override onto base.
func (base Options) Merge(override Options) Options {
	out := base
	if override.Model != "" {
		out.Model = override.Model
	}
	if override.Temperature != 0 {
		out.Temperature = override.Temperature
	}
	if override.MaxCompletionTokens != 0 {
		out.MaxCompletionTokens = override.MaxCompletionTokens
	}
	if override.SystemPrompt != "" {
		out.SystemPrompt = override.SystemPrompt
	}
	return out
}
