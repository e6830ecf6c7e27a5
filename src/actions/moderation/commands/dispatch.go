package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ltyyb/surveybot/src/actions/moderation/lifecycle"
	"github.com/ltyyb/surveybot/src/data/store"
	"github.com/ltyyb/surveybot/src/discord"
	"github.com/ltyyb/surveybot/src/logging"
	"github.com/ltyyb/surveybot/src/shared/survey"
)

// Caller identifies who issued a command.
type Caller struct {
	UserID string
	Admin  bool
}

type handlerFunc func(ctx context.Context, c Caller, cmd Command) (*discord.Message, error)

// Dispatcher executes parsed commands and formats replies.
type Dispatcher struct {
	lifecycle *lifecycle.Lifecycle
	resolver  *store.Resolver
	users     *store.Users
	links     *store.Links
	siteURL   string
	handlers  map[Kind]handlerFunc
	log       zerolog.Logger
}

// NewDispatcher wires the command table.
func NewDispatcher(lc *lifecycle.Lifecycle, resolver *store.Resolver, users *store.Users, links *store.Links, siteURL string) *Dispatcher {
	d := &Dispatcher{
		lifecycle: lc,
		resolver:  resolver,
		users:     users,
		links:     links,
		siteURL:   strings.TrimRight(siteURL, "/"),
		log:       logging.For("commands"),
	}
	d.handlers = map[Kind]handlerFunc{
		KindHelp:    d.help,
		KindEntr:    d.entr,
		KindReview:  d.review,
		KindVote:    d.vote,
		KindInfo:    d.info,
		KindDisable: d.disable,
		KindEnable:  d.enable,
		KindDelete:  d.softDelete,
		KindRestore: d.restore,
		KindPurge:   d.purge,
		KindTrust:   d.trust,
		KindBan:     d.ban,
	}
	return d
}

// Handle parses text and runs it. The reply always mentions the caller.
func (d *Dispatcher) Handle(ctx context.Context, c Caller, text string) *discord.Message {
	return d.Run(ctx, c, Parse(text))
}

// Run executes an already parsed command.
func (d *Dispatcher) Run(ctx context.Context, c Caller, cmd Command) *discord.Message {
	reply := discord.NewMessage().Mention(c.UserID).Line("")

	handler, ok := d.handlers[cmd.Kind]
	if !ok {
		return reply.Line("Unknown command.").Line("").Text(helpText)
	}
	if cmd.Kind.AdminOnly() && !c.Admin {
		d.log.Info().Str("user", c.UserID).Str("command", cmd.Kind.String()).Msg("admin command refused")
		return reply.Text("This command is only available to administrators.")
	}

	body, err := handler(ctx, c, cmd)
	if err != nil {
		return reply.Text(d.describeError(cmd, err))
	}
	return reply.Append(body)
}

func (d *Dispatcher) describeError(cmd Command, err error) string {
	switch {
	case errors.Is(err, survey.ErrNotFound):
		if cmd.Kind == KindBan {
			return fmt.Sprintf("User %s is not registered.", cmd.Target)
		}
		return fmt.Sprintf("No response matches `%s`.", cmd.ID)
	case errors.Is(err, survey.ErrAlreadyReviewed):
		return "This response has already been reviewed; votes are closed."
	case errors.Is(err, survey.ErrInvalidVote):
		return "Vote with `a` (approve) or `d` (reject)."
	case errors.Is(err, survey.ErrShortIDTaken):
		return "An active response already uses this short ID; purge or archive it first."
	case errors.Is(err, survey.ErrDuplicateSubmission):
		return "This user already has an active response; archive it first."
	case errors.Is(err, errBadUser):
		return "Mention a user or give a numeric user ID."
	default:
		d.log.Error().Err(err).Str("command", cmd.Kind.String()).Msg("command failed")
		return "Something went wrong. Please contact an administrator."
	}
}

var errBadUser = errors.New("commands: invalid user reference")

func (d *Dispatcher) resolve(ctx context.Context, id string, scope store.Scope) (string, error) {
	return d.resolver.Resolve(ctx, id, scope)
}

func (d *Dispatcher) help(context.Context, Caller, Command) (*discord.Message, error) {
	return discord.NewMessage().Text(helpText), nil
}

func (d *Dispatcher) entr(ctx context.Context, c Caller, _ Command) (*discord.Message, error) {
	user, created, err := d.users.Register(ctx, c.UserID)
	if err != nil {
		return nil, err
	}
	if user.IsVerified {
		return discord.NewMessage().Text("You have already been verified; there is no need to fill in the survey again."), nil
	}
	if active, err := d.lifecycle.ActiveResponse(ctx, c.UserID); err == nil {
		if active.Outcome == survey.OutcomeRejected && active.ExpireAt != nil {
			return discord.NewMessage().Textf("Your previous response was not approved. You can fill in the survey again after %s.",
				active.ExpireAt.Format("2006-01-02 15:04 MST")), nil
		}
		return discord.NewMessage().Textf("You already submitted a response (`%s`) that is still under review.", active.ShortID), nil
	} else if !store.IsNotFound(err) {
		return nil, err
	}

	requestID, err := d.links.Issue(ctx, user.UserID)
	if err != nil {
		return nil, err
	}
	d.log.Info().Str("user", c.UserID).Bool("new", created).Msg("survey link issued")

	msg := discord.NewMessage()
	if created {
		msg.Line("Registered as a survey user.")
	}
	return msg.
		Line("Open the link below to fill in the survey:").
		Link(fmt.Sprintf("%s/survey/entr?requestId=%s", d.siteURL, requestID)).Line("").
		Line("The link is personal and expires in two hours. Do not share it or fill in someone else's link."), nil
}

func (d *Dispatcher) review(ctx context.Context, _ Caller, cmd Command) (*discord.Message, error) {
	id, err := d.resolve(ctx, cmd.ID, store.ScopeActive)
	if err != nil {
		return nil, err
	}
	return discord.NewMessage().
		Text("Review link: ").Link(d.lifecycle.ReviewLink(id)).Line("").
		Text("Please do not share this page or its content."), nil
}

func (d *Dispatcher) vote(ctx context.Context, c Caller, cmd Command) (*discord.Message, error) {
	id, err := d.resolve(ctx, cmd.ID, store.ScopeActive)
	if err != nil {
		return nil, err
	}
	if err := d.lifecycle.Vote(ctx, id, c.UserID, cmd.Vote); err != nil {
		return nil, err
	}
	stance := "approve"
	if cmd.Vote == survey.VoteDeny {
		stance = "reject"
	}
	return discord.NewMessage().Textf("Your vote to %s `%s` has been recorded. You can change it until the review closes.", stance, store.ShortOf(id)), nil
}

func (d *Dispatcher) info(ctx context.Context, c Caller, cmd Command) (*discord.Message, error) {
	id, err := d.resolve(ctx, cmd.ID, store.ScopeActive)
	if err != nil && c.Admin && store.IsNotFound(err) {
		id, err = d.resolve(ctx, cmd.ID, store.ScopeArchived)
	}
	if err != nil {
		return nil, err
	}
	info, err := d.lifecycle.Info(ctx, id, c.UserID, c.Admin)
	if err != nil {
		return nil, err
	}

	r := info.Response
	msg := discord.NewMessage().
		Textf("Response `%s`\n", info.ShortID).
		Textf("Submitted: %s\n", r.CreatedAt.Format("2006-01-02 15:04")).
		Textf("Status: %s\n", status(info)).
		Textf("Votes: %d approve, %d reject\n", info.Tally.Agree, info.Tally.Deny)
	if info.MyVote != "" {
		msg.Textf("Your vote: %s\n", info.MyVote)
	}
	if c.Admin {
		msg.Text("Owner: ").Mention(info.ExternalUserID).Line("")
		if r.Insight != nil && *r.Insight != "" {
			msg.Line("Insight:").Text(discord.BeautifyForDiscord(*r.Insight))
		}
	}
	return msg, nil
}

func status(info *lifecycle.Info) string {
	r := info.Response
	var parts []string
	switch {
	case r.IsReviewed && r.Outcome == survey.OutcomeApproved:
		parts = append(parts, "approved")
	case r.IsReviewed:
		s := "rejected"
		if r.ExpireAt != nil {
			s += ", removed after " + r.ExpireAt.Format("2006-01-02 15:04")
		}
		parts = append(parts, s)
	case r.IsPushed:
		parts = append(parts, "under review")
	default:
		parts = append(parts, "waiting to be announced")
	}
	if r.IsDisabled {
		parts = append(parts, "disabled")
	}
	if info.Archived {
		parts = append(parts, "archived")
	}
	return strings.Join(parts, ", ")
}

func (d *Dispatcher) disable(ctx context.Context, c Caller, cmd Command) (*discord.Message, error) {
	return d.toggle(ctx, c, cmd, d.lifecycle.Disable, "disabled")
}

func (d *Dispatcher) enable(ctx context.Context, c Caller, cmd Command) (*discord.Message, error) {
	return d.toggle(ctx, c, cmd, d.lifecycle.Enable, "enabled")
}

func (d *Dispatcher) toggle(ctx context.Context, c Caller, cmd Command,
	op func(context.Context, string, string) (bool, error), word string) (*discord.Message, error) {
	id, err := d.resolve(ctx, cmd.ID, store.ScopeActive)
	if err != nil {
		return nil, err
	}
	changed, err := op(ctx, id, c.UserID)
	if err != nil {
		return nil, err
	}
	if !changed {
		return discord.NewMessage().Textf("Response `%s` was already %s.", store.ShortOf(id), word), nil
	}
	return discord.NewMessage().Textf("Response `%s` %s.", store.ShortOf(id), word), nil
}

func (d *Dispatcher) softDelete(ctx context.Context, c Caller, cmd Command) (*discord.Message, error) {
	id, err := d.resolve(ctx, cmd.ID, store.ScopeActive)
	if err != nil {
		return nil, err
	}
	if err := d.lifecycle.SoftDelete(ctx, id, c.UserID); err != nil {
		return nil, err
	}
	return discord.NewMessage().Textf("Response `%s` archived. Use `/survey restore %s` to bring it back.", store.ShortOf(id), id), nil
}

func (d *Dispatcher) restore(ctx context.Context, c Caller, cmd Command) (*discord.Message, error) {
	id, err := d.resolve(ctx, cmd.ID, store.ScopeArchived)
	if err != nil {
		return nil, err
	}
	if err := d.lifecycle.Restore(ctx, id, c.UserID); err != nil {
		return nil, err
	}
	return discord.NewMessage().Textf("Response `%s` restored.", store.ShortOf(id)), nil
}

func (d *Dispatcher) purge(ctx context.Context, c Caller, cmd Command) (*discord.Message, error) {
	id, err := d.resolve(ctx, cmd.ID, store.ScopeActive)
	if err != nil && store.IsNotFound(err) {
		id, err = d.resolve(ctx, cmd.ID, store.ScopeArchived)
	}
	if err != nil {
		return nil, err
	}
	if err := d.lifecycle.HardDelete(ctx, id, c.UserID); err != nil {
		return nil, err
	}
	return discord.NewMessage().Textf("Response `%s` permanently deleted.", store.ShortOf(id)), nil
}

func (d *Dispatcher) trust(ctx context.Context, c Caller, cmd Command) (*discord.Message, error) {
	target, ok := discord.ParseUserRef(cmd.Target)
	if !ok {
		return nil, errBadUser
	}
	changed, err := d.lifecycle.Trust(ctx, target, c.UserID)
	if err != nil {
		return nil, err
	}
	msg := discord.NewMessage().Mention(target)
	if !changed {
		return msg.Text(" was already verified."), nil
	}
	return msg.Text(" is now verified."), nil
}

func (d *Dispatcher) ban(ctx context.Context, c Caller, cmd Command) (*discord.Message, error) {
	target, ok := discord.ParseUserRef(cmd.Target)
	if !ok {
		return nil, errBadUser
	}
	changed, err := d.lifecycle.Ban(ctx, target, c.UserID)
	if err != nil {
		return nil, err
	}
	msg := discord.NewMessage().Mention(target)
	if !changed {
		return msg.Text(" was not verified."), nil
	}
	return msg.Text(" is no longer verified."), nil
}
