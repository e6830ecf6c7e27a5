package insight

import (
	"github.com/ltyyb/surveybot/src/ai/core"
	"github.com/ltyyb/surveybot/src/config"
)

// NewClient builds the provider client named by cfg. It returns nil without
// error when insight is switched off or the provider has no API key, which
// leaves the Generator disabled.
func NewClient(cfg config.AIConfig) (core.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	fc := core.FactoryConfig{
		Provider:     cfg.Provider,
		SystemPrompt: cfg.SystemPrompt,
		Temperature:  0.3,
		OpenAIKey:    cfg.OpenAIKey,
		ClaudeKey:    cfg.ClaudeKey,
	}
	if !core.HasCredentials(fc) {
		return nil, nil
	}
	fc.Model = core.ResolveModelName(cfg.Provider, cfg.Model)
	return core.NewClient(fc)
}
