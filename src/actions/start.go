package actions

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	apimodule "github.com/ltyyb/surveybot/src/actions/api"
	"github.com/ltyyb/surveybot/src/actions/core"
	moderationmodule "github.com/ltyyb/surveybot/src/actions/moderation"
	"github.com/ltyyb/surveybot/src/actions/moderation/lifecycle"
	surveymodule "github.com/ltyyb/surveybot/src/actions/survey"
	"github.com/ltyyb/surveybot/src/api/webserver"
	sharedconfig "github.com/ltyyb/surveybot/src/config"
	"github.com/ltyyb/surveybot/src/data/events"
	"github.com/ltyyb/surveybot/src/data/store"
	"github.com/ltyyb/surveybot/src/insight"
	"github.com/ltyyb/surveybot/src/logging"
	"github.com/ltyyb/surveybot/src/surveypkg"
)

// StartAll wires up enabled action modules and starts the manager. rdb may be nil.
func StartAll(ctx context.Context, db *gorm.DB, rdb *redis.Client) (*core.Manager, error) {
	log := logging.For("actions")
	mgr := core.NewManager()

	responses := store.NewResponseStore(db)
	users := store.NewUsers(db)
	links := store.NewLinks(db)

	// The survey module loads the package before anything reads it.
	surveyCfg := sharedconfig.LoadSurveyConfig()
	provider := surveypkg.NewProvider(surveyCfg.PackagePath)
	surveyMod, err := surveymodule.NewModule(&surveyCfg, provider, links)
	if err != nil {
		return nil, fmt.Errorf("actions: init survey module: %w", err)
	}
	if err := mgr.Add(surveyMod); err != nil {
		return nil, fmt.Errorf("actions: add survey module: %w", err)
	}

	aiCfg := sharedconfig.LoadAIConfig()
	client, err := insight.NewClient(aiCfg)
	if err != nil {
		return nil, fmt.Errorf("actions: init insight client: %w", err)
	}
	generator := insight.NewGenerator(client, responses)
	log.Info().Bool("enabled", generator.Enabled()).Str("provider", aiCfg.Provider).Msg("insight generator")

	deps := lifecycle.Deps{
		Responses: responses,
		Votes:     store.NewVoteTally(db),
		Users:     users,
		Surveys:   provider,
	}
	if generator.Enabled() {
		deps.Insight = generator
	}
	if rdb != nil {
		deps.Events = events.NewPublisher(rdb)
	}

	modCfg := sharedconfig.LoadModerationConfig(db)
	var lc *lifecycle.Lifecycle
	if modCfg.Enabled {
		if err := modCfg.Validate(); err != nil {
			return nil, fmt.Errorf("actions: moderation config: %w", err)
		}
		mod, err := moderationmodule.NewModule(&modCfg, db, deps)
		if err != nil {
			return nil, fmt.Errorf("actions: init moderation module: %w", err)
		}
		lc = mod.Lifecycle()
		if err := mgr.Add(mod); err != nil {
			return nil, fmt.Errorf("actions: add moderation module: %w", err)
		}
	} else {
		log.Info().Msg("moderation module disabled via configuration")
		lc = lifecycle.New(deps, lifecycle.Config{SiteURL: modCfg.SiteURL})
	}

	apiCfg := sharedconfig.LoadAPIConfig()
	if apiCfg.Enabled {
		mod, err := apimodule.NewModule(&apiCfg, rdb, webserver.Deps{
			Lifecycle: lc,
			Responses: responses,
			Votes:     deps.Votes,
			Resolver:  store.NewResolver(db),
			Users:     users,
			Links:     links,
			Surveys:   provider,
		})
		if err != nil {
			return nil, fmt.Errorf("actions: init api module: %w", err)
		}
		if err := mgr.Add(mod); err != nil {
			return nil, fmt.Errorf("actions: add api module: %w", err)
		}
	} else {
		log.Info().Msg("api module disabled via configuration")
	}

	if err := mgr.Start(ctx); err != nil {
		return nil, err
	}
	return mgr, nil
}
