// Package insight produces an AI-written summary of a survey response for
// moderators. Generation is best effort and never blocks a submission.
package insight

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/ltyyb/surveybot/src/ai/core"
	"github.com/ltyyb/surveybot/src/logging"
)

const (
	defaultTimeout = 2 * time.Minute
	maxInsightLen  = 4000
)

// Saver persists a generated insight on a response.
type Saver interface {
	SetInsight(ctx context.Context, responseID, insight string) error
}

// Generator turns answers into reviewer-facing insight text.
type Generator struct {
	client    core.Client
	saver     Saver
	sanitizer *bluemonday.Policy
	timeout   time.Duration
	log       zerolog.Logger
}

// NewGenerator wires an AI client and a store. A nil client disables generation.
func NewGenerator(client core.Client, saver Saver) *Generator {
	return &Generator{
		client:    client,
		saver:     saver,
		sanitizer: bluemonday.StrictPolicy(),
		timeout:   defaultTimeout,
		log:       logging.For("insight"),
	}
}

// Enabled reports whether a provider is configured.
func (g *Generator) Enabled() bool {
	return g != nil && g.client != nil
}

// Generate asks the provider for an insight on the rendered answers.
func (g *Generator) Generate(ctx context.Context, surveyJSON string, answers []byte) (string, error) {
	if !g.Enabled() {
		return "", fmt.Errorf("insight: no provider configured")
	}
	narrative, err := Narrative(surveyJSON, answers)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(narrative) == "" {
		return "", fmt.Errorf("insight: no reviewable answers")
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	out, err := g.client.Respond(ctx, narrative, core.Options{})
	if err != nil {
		return "", fmt.Errorf("insight: provider: %w", err)
	}
	return g.clean(out), nil
}

// Attach generates and stores an insight for a response. Failures are logged
// and swallowed.
func (g *Generator) Attach(ctx context.Context, responseID, surveyJSON string, answers []byte) {
	if !g.Enabled() {
		return
	}
	text, err := g.Generate(ctx, surveyJSON, answers)
	if err != nil {
		switch {
		case logging.IsRateLimit(err):
			g.log.Warn().Str("response", responseID).Msg("insight: provider rate limited, skipping")
		case logging.IsCanceled(err):
			g.log.Info().Str("response", responseID).Msg("insight: canceled")
		default:
			g.log.Warn().Err(err).Str("response", responseID).Msg("insight: generation failed")
		}
		return
	}
	if err := g.saver.SetInsight(ctx, responseID, text); err != nil {
		g.log.Warn().Err(err).Str("response", responseID).Msg("insight: save failed")
		return
	}
	g.log.Info().Str("response", responseID).Int("chars", len(text)).Msg("insight stored")
}

func (g *Generator) clean(s string) string {
	s = strings.TrimSpace(html.UnescapeString(g.sanitizer.Sanitize(s)))
	if r := []rune(s); len(r) > maxInsightLen {
		s = string(r[:maxInsightLen])
	}
	return s
}
