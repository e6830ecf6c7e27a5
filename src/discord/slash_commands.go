package discord

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/ltyyb/surveybot/src/logging"
)

const (
	CommandSurvey = "survey"

	// SurveyArgsOption carries the command line after "/survey".
	SurveyArgsOption = "args"
)

var commandDefinitions = map[string]*discordgo.ApplicationCommand{
	CommandSurvey: {
		Name:        CommandSurvey,
		Description: "Entrance survey: get your link, vote on submissions, moderate",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        SurveyArgsOption,
				Description: "e.g. entr, vote <id> a, review <id>, info <id>",
				Required:    false,
			},
		},
	},
}

var defaultCommandOrder = []string{CommandSurvey}

// RegisterSlashCommands registers the requested slash commands for a guild.
// When no command names are provided, all known commands are registered.
func RegisterSlashCommands(s *discordgo.Session, guildID string, names ...string) error {
	if guildID == "" {
		return fmt.Errorf("discord: guildID is required to register slash commands")
	}

	if len(names) == 0 {
		names = defaultCommandOrder
	}

	log := logging.For("discord")
	var failures []string
	for _, name := range names {
		definition, ok := commandDefinitions[name]
		if !ok {
			log.Warn().Str("command", name).Msg("unknown slash command")
			continue
		}

		_, err := s.ApplicationCommandCreate(s.State.User.ID, guildID, definition)
		if err != nil {
			if isDuplicateCommandError(err) {
				log.Info().Str("command", name).Msg("slash command already registered")
				continue
			}
			failures = append(failures, fmt.Sprintf("%s: %v", name, err))
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("discord: slash command registration errors: %s", strings.Join(failures, "; "))
	}

	return nil
}

// SlashCommandLine rebuilds the text form of a /survey interaction so slash and
// text commands share one parser.
func SlashCommandLine(data discordgo.ApplicationCommandInteractionData) string {
	line := "/" + data.Name
	for _, opt := range data.Options {
		if opt.Name == SurveyArgsOption {
			if args := strings.TrimSpace(opt.StringValue()); args != "" {
				line += " " + args
			}
		}
	}
	return line
}

func isDuplicateCommandError(err error) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil {
		if strings.Contains(strings.ToLower(restErr.Message.Message), "already exists") {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "50035") && strings.Contains(msg, "already exists")
}
