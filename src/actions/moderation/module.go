// Package moderation runs the Discord side of the survey bot: chat commands,
// moderator notifications and the reconciliation sweeps.
package moderation

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ltyyb/surveybot/src/actions/core"
	"github.com/ltyyb/surveybot/src/actions/moderation/commands"
	"github.com/ltyyb/surveybot/src/actions/moderation/lifecycle"
	"github.com/ltyyb/surveybot/src/actions/moderation/reconcile"
	sharedconfig "github.com/ltyyb/surveybot/src/config"
	"github.com/ltyyb/surveybot/src/data/store"
	shareddiscord "github.com/ltyyb/surveybot/src/discord"
	"github.com/ltyyb/surveybot/src/logging"
)

var _ core.Module = (*Module)(nil)

// Module owns the Discord session and the sweeps.
type Module struct {
	cfg        *sharedconfig.ModerationConfig
	session    *discordgo.Session
	transport  *Transport
	lifecycle  *lifecycle.Lifecycle
	dispatcher *commands.Dispatcher
	loops      *reconcile.Loops

	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    zerolog.Logger
}

// NewModule creates the Discord session and wires the lifecycle onto it.
// deps.Notifier is replaced by the module's own transport.
func NewModule(cfg *sharedconfig.ModerationConfig, db *gorm.DB, deps lifecycle.Deps) (*Module, error) {
	if cfg == nil {
		return nil, fmt.Errorf("moderation: config is nil")
	}
	session, err := discordgo.New("Bot " + cfg.Base.Token)
	if err != nil {
		return nil, fmt.Errorf("moderation: discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsMessageContent |
		discordgo.IntentsDirectMessages

	transport := NewTransport(session)
	deps.Notifier = transport

	lc := lifecycle.New(deps, lifecycle.Config{
		MainChannelID:   cfg.MainChannelID,
		VerifyChannelID: cfg.VerifyChannelID,
		ModeratorRoleID: cfg.ModeratorRoleID,
		SiteURL:         cfg.SiteURL,
		Quorum:          cfg.Quorum,
		ApproveRatio:    cfg.ApproveRatio,
		RejectRetention: cfg.RejectRetention,
	})

	dispatcher := commands.NewDispatcher(lc, store.NewResolver(db), deps.Users, store.NewLinks(db), cfg.SiteURL)

	loops := reconcile.New(lc, deps.Responses, transport, reconcile.Config{
		PushInterval:     cfg.PushInterval,
		ReviewInterval:   cfg.ReviewInterval,
		TransportRetry:   cfg.TransportRetry,
		SilenceThreshold: cfg.SilenceThreshold,
		OffHoursRecheck:  cfg.OffHoursRecheck,
		ActiveStartHour:  cfg.ActiveStartHour,
		ActiveEndHour:    cfg.ActiveEndHour,
		Location:         cfg.Base.Location,
		Remind:           cfg.RemindUnreviewed,
	})

	return &Module{
		cfg:        cfg,
		session:    session,
		transport:  transport,
		lifecycle:  lc,
		dispatcher: dispatcher,
		loops:      loops,
		log:        logging.For("moderation"),
	}, nil
}

// Name implements core.Module.
func (m *Module) Name() string { return "moderation" }

// Lifecycle exposes the response lifecycle for the HTTP module.
func (m *Module) Lifecycle() *lifecycle.Lifecycle { return m.lifecycle }

// Start opens the Discord session and launches both sweeps.
func (m *Module) Start(ctx context.Context) error {
	m.initHandlers()
	if err := m.session.Open(); err != nil {
		return fmt.Errorf("moderation: discord open: %w", err)
	}

	if m.cfg.RegisterCommands {
		if err := shareddiscord.RegisterSlashCommands(m.session, m.cfg.Base.GuildID, shareddiscord.CommandSurvey); err != nil {
			m.log.Warn().Err(err).Msg("slash command registration failed")
		}
	}

	runtimeCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.wg.Add(2)
	go func() {
		defer m.wg.Done()
		m.loops.RunPush(runtimeCtx)
	}()
	go func() {
		defer m.wg.Done()
		m.loops.RunReview(runtimeCtx)
	}()
	return nil
}

// Stop cancels the sweeps, waits for them and closes the session.
func (m *Module) Stop(ctx context.Context) {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	if m.session != nil {
		if err := m.session.Close(); err != nil {
			m.log.Warn().Err(err).Msg("discord close")
		}
	}
}

func (m *Module) initHandlers() {
	m.session.AddHandler(m.transport.onReady)
	m.session.AddHandler(m.transport.onResumed)
	m.session.AddHandler(m.transport.onDisconnect)
	m.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		m.log.Info().Str("user", formatDiscordUsername(r.User.Username, r.User.Discriminator)).Msg("logged in")
	})
	m.session.AddHandler(m.onMessageCreate)
	m.session.AddHandler(m.onInteractionCreate)
}

func (m *Module) onMessageCreate(s *discordgo.Session, e *discordgo.MessageCreate) {
	if e.Author == nil || e.Author.Bot {
		return
	}
	m.transport.Touch(e.Timestamp)

	if !commands.IsCommand(e.Content) {
		return
	}
	caller := commands.Caller{UserID: e.Author.ID, Admin: m.isAdmin(s, e.Author.ID, e.Member)}
	reply := m.dispatcher.Handle(context.Background(), caller, e.Content)
	if err := m.transport.Notify(e.ChannelID, reply); err != nil {
		m.log.Warn().Err(err).Str("channel", e.ChannelID).Msg("command reply failed")
	}
}

func (m *Module) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	if data.Name != shareddiscord.CommandSurvey {
		return
	}

	var userID string
	switch {
	case i.Member != nil && i.Member.User != nil:
		userID = i.Member.User.ID
	case i.User != nil:
		userID = i.User.ID
	default:
		return
	}

	caller := commands.Caller{UserID: userID, Admin: m.isAdmin(s, userID, i.Member)}
	reply := m.dispatcher.Handle(context.Background(), caller, shareddiscord.SlashCommandLine(data))

	users, roles, _ := reply.Mentions()
	content := reply.Render()
	if chunks := shareddiscord.ChunkMessage(content); len(chunks) > 0 {
		content = chunks[0]
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:         content,
			Flags:           discordgo.MessageFlagsSuppressEmbeds,
			AllowedMentions: &discordgo.MessageAllowedMentions{Users: users, Roles: roles},
		},
	})
	if err != nil {
		m.log.Warn().Err(err).Str("user", userID).Msg("interaction reply failed")
	}
}

func (m *Module) isAdmin(s *discordgo.Session, userID string, member *discordgo.Member) bool {
	if m.cfg.IsAdminUser(userID) {
		return true
	}
	if m.cfg.AdminRoleID == "" {
		return false
	}
	if member != nil {
		return shareddiscord.MemberHasRole(member, m.cfg.AdminRoleID)
	}
	return shareddiscord.HasRole(s, m.cfg.Base.GuildID, userID, m.cfg.AdminRoleID)
}

func formatDiscordUsername(username, discriminator string) string {
	if discriminator == "" || discriminator == "0" {
		return username
	}
	return fmt.Sprintf("%s#%s", username, discriminator)
}
