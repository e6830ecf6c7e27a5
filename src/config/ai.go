package config

import "os"

// AIConfig holds AI-related configuration
type AIConfig struct {
	OpenAIKey    string
	ClaudeKey    string
	Provider     string
	SystemPrompt string
	Model        string
	Enabled      bool
}

const defaultInsightPrompt = `You assist the moderators of a community group who review entrance surveys.
Summarise the applicant's answers in a few short paragraphs: their stated reasons for joining,
how well they understood the group rules, and anything a reviewer should double check.
Do not make the decision yourself and do not invent facts that are not in the answers.`

// LoadAIConfig loads AI configuration
func LoadAIConfig() AIConfig {
	return AIConfig{
		OpenAIKey:    GetSetting("openai_api_key", "OPENAI_API_KEY", ""),
		ClaudeKey:    GetSetting("claude_api_key", "CLAUDE_API_KEY", ""),
		Provider:     GetSetting("ai_provider", "AI_PROVIDER", "gpt4o"),
		SystemPrompt: GetSetting("ai_system_prompt", "AI_SYSTEM_PROMPT", defaultInsightPrompt),
		Model:        GetSetting("ai_model", "AI_MODEL", ""),
		Enabled:      getBoolSetting("enable_insight", "ENABLE_INSIGHT", true),
	}
}

// LoadAIFromEnv provides a simple env-only loader for command line tools.
func LoadAIFromEnv() AIConfig {
	provider := os.Getenv("AI_PROVIDER")
	if provider == "" {
		provider = "gpt4o"
	}
	prompt := os.Getenv("AI_SYSTEM_PROMPT")
	if prompt == "" {
		prompt = defaultInsightPrompt
	}
	return AIConfig{
		OpenAIKey:    os.Getenv("OPENAI_API_KEY"),
		ClaudeKey:    os.Getenv("CLAUDE_API_KEY"),
		Provider:     provider,
		SystemPrompt: prompt,
		Model:        os.Getenv("AI_MODEL"),
		Enabled:      true,
	}
}
