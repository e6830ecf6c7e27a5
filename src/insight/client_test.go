package insight

import (
	"testing"

	_ "github.com/ltyyb/surveybot/src/ai/providers"
	"github.com/ltyyb/surveybot/src/config"
)

func TestNewClientNeedsKeyForProvider(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.AIConfig
		want bool
	}{
		{"disabled", config.AIConfig{Enabled: false, OpenAIKey: "k"}, false},
		{"openai without key", config.AIConfig{Enabled: true, Provider: "gpt4o"}, false},
		{"openai", config.AIConfig{Enabled: true, Provider: "gpt4o", OpenAIKey: "k"}, true},
		{"claude with openai key only", config.AIConfig{Enabled: true, Provider: "claude", OpenAIKey: "k"}, false},
		{"claude", config.AIConfig{Enabled: true, Provider: "Claude", ClaudeKey: "k"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(tt.cfg)
			if err != nil {
				t.Fatal(err)
			}
			if (c != nil) != tt.want {
				t.Fatalf("client = %v, want present %v", c, tt.want)
			}
		})
	}
}
