package sonnet45

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
	defaultModel       = "claude-sonnet-4-5"
	anthropicEndpoint  = "https://api.anthropic.com/v1/messages"
	anthropicVersion   = "2023-06-01"
	defaultMaxTokens   = 2048
	defaultTemperature = 0.1
	requestTimeout     = 90 * time.Second
	maxAttempts        = 3
	retryBase          = 2 * time.Second
)

func init() {
	core.Register(core.Provider{
		Name:         "sonnet45",
		Aliases:      []string{"claude"},
		DefaultModel: defaultModel,
		Credential:   func(cfg core.FactoryConfig) string { return cfg.ClaudeKey },
		New:          newClient,
	})
}

type content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type message struct {
	Role    string    `json:"role"`
	Content []content `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
}

type messagesResponse struct {
	Content []content `json:"content"`
}

type client struct {
	key      string
	endpoint string
	http     *http.Client
	base     core.Options
}

func newClient(cfg core.FactoryConfig) (core.Client, error) {
	if cfg.ClaudeKey == "" {
		return nil, fmt.Errorf("sonnet45: Claude API key not configured")
	}
	c := &client{
		key:      cfg.ClaudeKey,
		endpoint: anthropicEndpoint,
		http:     webclient.NewDefault(requestTimeout),
		base: core.Options{
			Model:               defaultModel,
			Temperature:         defaultTemperature,
			MaxCompletionTokens: defaultMaxTokens,
			SystemPrompt:        cfg.SystemPrompt,
		},
	}
	if cfg.Endpoint != "" {
		c.endpoint = cfg.Endpoint
	}
	if m := strings.TrimSpace(cfg.Model); m != "" {
		c.base.Model = m
	}
	if cfg.Temperature != 0 {
		c.base.Temperature = cfg.Temperature
	}
	if cfg.MaxCompletionTokens > 0 {
		c.base.MaxCompletionTokens = cfg.MaxCompletionTokens
	}
	return c, nil
}

func (c *client) Respond(ctx context.Context, input string, opts core.Options) (string, error) {
	o := c.base.Merge(opts)
	req := messagesRequest{
		Model:       o.Model,
		MaxTokens:   o.MaxCompletionTokens,
		Temperature: o.Temperature,
		System:      strings.TrimSpace(o.SystemPrompt),
		Messages: []message{{
			Role:    "user",
			Content: []content{{Type: "text", Text: input}},
		}},
	}
	raw, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("sonnet45: encode request: %w", err)
	}

	_, payload, err := webclient.DoWithRetry(ctx, maxAttempts, retryBase, func() (int, []byte, error) {
		return c.post(ctx, raw)
	})
	if err != nil {
		return "", err
	}

	var resp messagesResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return "", fmt.Errorf("sonnet45: decode response: %w", err)
	}
	if text := joinText(resp.Content); text != "" {
		return text, nil
	}
	return "", fmt.Errorf("sonnet45: empty response")
}

func (c *client) post(ctx context.Context, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.key)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, data, fmt.Errorf("sonnet45: status %d", resp.StatusCode)
	}
	return resp.StatusCode, data, nil
}

// joinText keeps only non-blank text blocks, newline separated.
func joinText(blocks []content) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if b.Type == "text" && strings.TrimSpace(b.Text) != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}
