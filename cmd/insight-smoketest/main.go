package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	_ "github.com/ltyyb/surveybot/src/ai/providers"
	sharedconfig "github.com/ltyyb/surveybot/src/config"
	"github.com/ltyyb/surveybot/src/insight"
	"github.com/ltyyb/surveybot/src/logging"
	"github.com/ltyyb/surveybot/src/surveypkg"
)

var (
	providersFlag = flag.String("providers", "gpt4o", "Comma-separated provider list or 'all'")
	packageFlag   = flag.String("package", "", "Survey package file (defaults to a built-in sample)")
	versionFlag   = flag.String("version", "", "Survey version inside the package (defaults to latest)")
	answersFlag   = flag.String("answers", "", "Answers JSON file (defaults to a built-in sample)")
	modelFlag     = flag.String("model", "", "Override model name")
	offlineFlag   = flag.Bool("narrative-only", false, "Print the rendered narrative without calling a provider")
	timeoutFlag   = flag.Duration("timeout", 2*time.Minute, "Per-provider timeout")
	maxLenFlag    = flag.Int("max-bytes", 1200, "Maximum bytes of output to print per response (0=unlimited)")
)

var allProviders = []string{"gpt4o", "sonnet45"}

func main() {
	flag.Parse()
	_ = godotenv.Load()
	logging.Init(os.Getenv("LOG_LEVEL"), "insight-smoketest", true)
	log := logging.For("smoketest")

	surveyJSON, err := loadSurvey(*packageFlag, *versionFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("survey")
	}
	answers := []byte(sampleAnswers)
	if *answersFlag != "" {
		if answers, err = os.ReadFile(*answersFlag); err != nil {
			log.Fatal().Err(err).Msg("answers")
		}
	}

	narrative, err := insight.Narrative(surveyJSON, answers)
	if err != nil {
		log.Fatal().Err(err).Msg("narrative")
	}
	fmt.Printf("=== narrative ===\n%s\n", narrative)
	if *offlineFlag {
		return
	}

	providers := resolveProviders(*providersFlag)
	if len(providers) == 0 {
		log.Fatal().Msg("no providers specified")
	}
	aiEnv := sharedconfig.LoadAIFromEnv()
	for _, provider := range providers {
		if err := runProvider(provider, aiEnv, surveyJSON, answers); err != nil {
			log.Error().Err(err).Str("provider", provider).Msg("provider failed")
		}
	}
}

func runProvider(provider string, aiEnv sharedconfig.AIConfig, surveyJSON string, answers []byte) error {
	aiEnv.Provider = provider
	if *modelFlag != "" {
		aiEnv.Model = *modelFlag
	}
	client, err := insight.NewClient(aiEnv)
	if err != nil {
		return fmt.Errorf("client init: %w", err)
	}
	gen := insight.NewGenerator(client, nil)
	if !gen.Enabled() {
		return fmt.Errorf("no API key for %s", provider)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeoutFlag)
	defer cancel()

	start := time.Now()
	text, err := gen.Generate(ctx, surveyJSON, answers)
	if err != nil {
		return err
	}
	fmt.Printf("=== %s (%.1fs) ===\n%s\n", provider, time.Since(start).Seconds(), truncate(text, *maxLenFlag))
	return nil
}

func loadSurvey(path, version string) (string, error) {
	if path == "" {
		return sampleSurvey, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	pkg, err := surveypkg.Parse(raw)
	if err != nil {
		return "", err
	}
	s := pkg.Latest()
	if version != "" {
		var ok bool
		if s, ok = pkg.Get(version); !ok {
			return "", fmt.Errorf("version %q not in package", version)
		}
	}
	return s.Render("smoketest"), nil
}

func resolveProviders(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if strings.EqualFold(raw, "all") {
		return append([]string{}, allProviders...)
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == ';'
	})
	var out []string
	seen := map[string]struct{}{}
	for _, p := range parts {
		key := strings.ToLower(strings.TrimSpace(p))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

func truncate(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(text[:limit]) + "...(truncated)"
}

const sampleSurvey = `{
  "pages": [
    {"name": "1", "elements": [{"name": "nick", "type": "text", "title": "Nickname"}]},
    {"name": "2", "elements": [
      {"name": "why", "type": "comment", "title": "Why do you want to join?"},
      {"name": "games", "type": "checkbox", "title": "Which games do you play?",
       "choices": [{"value": "a", "text": "Arcaea"}, {"value": "p", "text": "Phigros"}, {"value": "m", "text": "maimai"}]}
    ]},
    {"name": "3", "elements": [
      {"name": "rules", "type": "boolean", "title": "I have read the group rules"},
      {"name": "conflict", "type": "comment", "title": "How would you handle a disagreement with another member?"}
    ]}
  ]
}`

const sampleAnswers = `{
  "nick": "zed",
  "why": "Looking for people to practise charts with and share scores.",
  "games": ["a", "p"],
  "rules": true,
  "conflict": "Take it to DMs and ask a moderator if it does not settle."
}`
