package gpt4o

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ltyyb/surveybot/src/ai/core"
	"github.com/ltyyb/surveybot/src/webclient"
)

const (
	defaultModel       = "gpt-4o"
	chatEndpoint       = "https://api.openai.com/v1/chat/completions"
	defaultMaxTokens   = 2048
	defaultTemperature = 0.3
	requestTimeout     = 120 * time.Second
)

func init() {
	core.Register(core.Provider{
		Name:         "gpt4o",
		Aliases:      []string{"openai"},
		DefaultModel: defaultModel,
		Credential:   func(cfg core.FactoryConfig) string { return cfg.OpenAIKey },
		New:          newClient,
	})
}

type client struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	defaults   core.Options
}

func newClient(cfg core.FactoryConfig) (core.Client, error) {
	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("gpt4o: OpenAI API key not configured")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = chatEndpoint
	}

	return &client{
		apiKey:     cfg.OpenAIKey,
		endpoint:   endpoint,
		httpClient: webclient.NewDefault(requestTimeout),
		defaults: core.Options{
			Model:               valueOrDefault(cfg.Model, defaultModel),
			Temperature:         orFloat(cfg.Temperature, defaultTemperature),
			MaxCompletionTokens: orInt(cfg.MaxCompletionTokens, defaultMaxTokens),
			SystemPrompt:        cfg.SystemPrompt,
		},
	}, nil
}

func (c *client) Respond(ctx context.Context, input string, opts core.Options) (string, error) {
	merged := c.defaults.Merge(opts)

	messages := make([]map[string]string, 0, 2)
	if strings.TrimSpace(merged.SystemPrompt) != "" {
		messages = append(messages, map[string]string{"role": "system", "content": merged.SystemPrompt})
	}
	messages = append(messages, map[string]string{"role": "user", "content": input})

	reqBody := map[string]interface{}{
		"model":       merged.Model,
		"messages":    messages,
		"temperature": merged.Temperature,
		"max_tokens":  merged.MaxCompletionTokens,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("gpt4o: encode request: %w", err)
	}

	_, body, err := webclient.DoWithRetry(ctx, 3, 2*time.Second, func() (int, []byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
		if err != nil {
			return 0, nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return 0, nil, err
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return resp.StatusCode, nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return resp.StatusCode, b, fmt.Errorf("status %d", resp.StatusCode)
		}
		return resp.StatusCode, b, nil
	})
	if err != nil {
		return "", fmt.Errorf("gpt4o API error: %w", err)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("gpt4o: parse error: %w", err)
	}
	if len(result.Choices) == 0 || strings.TrimSpace(result.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("gpt4o: empty response")
	}
	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

func valueOrDefault(val, def string) string {
	if strings.TrimSpace(val) != "" {
		return val
	}
	return def
}

func orInt(v, d int) int {
	if v > 0 {
		return v
	}
	return d
}

func orFloat(v, d float64) float64 {
	if v != 0 {
		return v
	}
	return d
}
