// Package lifecycle moves survey responses through submission, moderation
// and retention. Every transition is delegated to a conditional store update,
// so several workers may drive the same response without coordination.
package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ltyyb/surveybot/src/data/events"
	"github.com/ltyyb/surveybot/src/data/store"
	"github.com/ltyyb/surveybot/src/discord"
	"github.com/ltyyb/surveybot/src/logging"
	"github.com/ltyyb/surveybot/src/shared/survey"
	"github.com/ltyyb/surveybot/src/surveypkg"
)

// Notifier posts a message to a chat channel.
type Notifier interface {
	Notify(channelID string, m *discord.Message) error
}

// EventSink receives lifecycle events.
type EventSink interface {
	Publish(ctx context.Context, ev events.Event) error
}

// InsightAttacher generates and stores reviewer insight for a response.
type InsightAttacher interface {
	Attach(ctx context.Context, responseID, surveyJSON string, answers []byte)
}

// Config holds the moderation parameters used by the lifecycle.
type Config struct {
	MainChannelID   string
	VerifyChannelID string
	ModeratorRoleID string
	SiteURL         string

	Quorum          int64
	ApproveRatio    float64
	RejectRetention time.Duration
}

func (c Config) withDefaults() Config {
	if c.Quorum <= 0 {
		c.Quorum = 5
	}
	if c.ApproveRatio <= 0 {
		c.ApproveRatio = 0.6
	}
	if c.RejectRetention <= 0 {
		c.RejectRetention = 24 * time.Hour
	}
	return c
}

// Deps are the collaborators of a Lifecycle. Insight and Events may be nil.
type Deps struct {
	Responses *store.ResponseStore
	Votes     *store.VoteTally
	Users     *store.Users
	Surveys   *surveypkg.Provider
	Notifier  Notifier
	Insight   InsightAttacher
	Events    EventSink
}

// Lifecycle implements every response state transition.
type Lifecycle struct {
	responses *store.ResponseStore
	votes     *store.VoteTally
	users     *store.Users
	surveys   *surveypkg.Provider
	notifier  Notifier
	insight   InsightAttacher
	events    EventSink

	cfg Config
	now func() time.Time
	log zerolog.Logger
}

// New builds a Lifecycle.
func New(deps Deps, cfg Config) *Lifecycle {
	return &Lifecycle{
		responses: deps.Responses,
		votes:     deps.Votes,
		users:     deps.Users,
		surveys:   deps.Surveys,
		notifier:  deps.Notifier,
		insight:   deps.Insight,
		events:    deps.Events,
		cfg:       cfg.withDefaults(),
		now:       time.Now,
		log:       logging.For("lifecycle"),
	}
}

// SetClock replaces the time source.
func (l *Lifecycle) SetClock(now func() time.Time) {
	l.now = now
}

// Submission is a completed survey sent by the web form.
type Submission struct {
	UserID  string
	Version string
	Answers []byte
}

// Submit validates and stores a submission and returns the new response ID.
// Insight generation starts afterwards and never affects the result.
func (l *Lifecycle) Submit(ctx context.Context, sub Submission) (string, error) {
	user, err := l.users.ByID(ctx, sub.UserID)
	if err != nil {
		if store.IsNotFound(err) {
			return "", survey.ErrUnknownUser
		}
		return "", err
	}

	pkg := l.surveys.Current()
	if !pkg.IsVersionValid(sub.Version) {
		return "", survey.ErrInvalidVersion
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(sub.Answers, &obj); err != nil {
		return "", survey.ErrInvalidAnswers
	}

	r := &survey.Response{ExternalUserID: user.ExternalUserID}
	r.UserID = user.UserID
	r.SurveyVersion = sub.Version
	r.Answers = sub.Answers
	r.CreatedAt = l.now()

	id, err := l.responses.Insert(ctx, r)
	if err != nil {
		return "", err
	}
	l.log.Info().Str("response", id).Str("short_id", r.ShortID).Str("version", sub.Version).Msg("response submitted")
	l.publish(ctx, events.Submitted, id, user.ExternalUserID, "")

	if l.insight != nil {
		s, _ := pkg.Get(sub.Version)
		surveyJSON := s.Render(user.ExternalUserID)
		answers := append([]byte(nil), sub.Answers...)
		go l.insight.Attach(context.Background(), id, surveyJSON, answers)
	}
	return id, nil
}

// ActiveResponse returns the live response owned by a chat identity.
func (l *Lifecycle) ActiveResponse(ctx context.Context, externalUserID string) (*survey.Response, error) {
	return l.responses.ActiveByExternalUser(ctx, externalUserID)
}

// Vote records voterID's stance. Reviewed responses accept no further votes;
// the check and the write happen under one row lock in the store.
func (l *Lifecycle) Vote(ctx context.Context, responseID, voterID string, value survey.VoteValue) error {
	if err := l.votes.Record(ctx, responseID, voterID, value, l.now()); err != nil {
		return err
	}
	l.log.Info().Str("response", responseID).Str("voter", voterID).Str("value", string(value)).Msg("vote recorded")
	return nil
}

// Info describes a response for chat replies and admin endpoints.
type Info struct {
	Response       survey.ResponseFields
	ShortID        string
	ExternalUserID string
	Archived       bool
	Tally          survey.Tally
	MyVote         survey.VoteValue
}

// Info looks a response up for viewer. Disabled and archived responses are
// only visible to admins.
func (l *Lifecycle) Info(ctx context.Context, responseID, viewerID string, admin bool) (*Info, error) {
	r, err := l.responses.Get(ctx, responseID)
	if err == nil {
		if r.IsDisabled && !admin {
			return nil, survey.ErrNotFound
		}
		info := &Info{Response: r.ResponseFields, ShortID: r.ShortID, ExternalUserID: r.ExternalUserID}
		return l.withVotes(ctx, info, viewerID)
	}
	if !store.IsNotFound(err) || !admin {
		return nil, err
	}

	a, err := l.responses.GetArchived(ctx, responseID)
	if err != nil {
		return nil, err
	}
	info := &Info{Response: a.ResponseFields, ShortID: a.ShortID, ExternalUserID: a.ExternalUserID, Archived: true}
	return l.withVotes(ctx, info, viewerID)
}

func (l *Lifecycle) withVotes(ctx context.Context, info *Info, viewerID string) (*Info, error) {
	t, err := l.votes.Tally(ctx, info.Response.ResponseID)
	if err != nil {
		return nil, err
	}
	info.Tally = t
	if viewerID != "" {
		v, err := l.votes.VoteOf(ctx, info.Response.ResponseID, viewerID)
		if err != nil && !store.IsNotFound(err) {
			return nil, err
		}
		info.MyVote = v
	}
	return info, nil
}

// Disable hides a response from general reads. It reports whether the flag changed.
func (l *Lifecycle) Disable(ctx context.Context, responseID, actor string) (bool, error) {
	return l.setDisabled(ctx, responseID, actor, true)
}

// Enable reverses Disable.
func (l *Lifecycle) Enable(ctx context.Context, responseID, actor string) (bool, error) {
	return l.setDisabled(ctx, responseID, actor, false)
}

func (l *Lifecycle) setDisabled(ctx context.Context, responseID, actor string, disabled bool) (bool, error) {
	changed, err := l.responses.SetDisabled(ctx, responseID, disabled)
	if err != nil || !changed {
		return changed, err
	}
	kind := events.Enabled
	if disabled {
		kind = events.Disabled
	}
	l.log.Info().Str("response", responseID).Str("actor", actor).Bool("disabled", disabled).Msg("response visibility changed")
	l.publish(ctx, kind, responseID, "", actor)
	return true, nil
}

// SoftDelete archives a response with every field intact.
func (l *Lifecycle) SoftDelete(ctx context.Context, responseID, actor string) error {
	if err := l.responses.Archive(ctx, responseID); err != nil {
		return err
	}
	l.log.Info().Str("response", responseID).Str("actor", actor).Msg("response archived")
	l.publish(ctx, events.Archived, responseID, "", actor)
	return nil
}

// Restore brings an archived response back.
func (l *Lifecycle) Restore(ctx context.Context, responseID, actor string) error {
	if err := l.responses.Restore(ctx, responseID); err != nil {
		return err
	}
	l.log.Info().Str("response", responseID).Str("actor", actor).Msg("response restored")
	l.publish(ctx, events.Restored, responseID, "", actor)
	return nil
}

// HardDelete removes a response permanently from either table.
func (l *Lifecycle) HardDelete(ctx context.Context, responseID, actor string) error {
	removed, err := l.responses.HardDelete(ctx, responseID)
	if err != nil {
		return err
	}
	if !removed {
		return survey.ErrNotFound
	}
	l.log.Info().Str("response", responseID).Str("actor", actor).Msg("response deleted")
	l.publish(ctx, events.Deleted, responseID, "", actor)
	return nil
}

// Trust marks a chat identity verified, registering it when needed. It reports
// whether the flag changed.
func (l *Lifecycle) Trust(ctx context.Context, externalID, actor string) (bool, error) {
	user, _, err := l.users.Register(ctx, externalID)
	if err != nil {
		return false, err
	}
	changed, err := l.users.SetVerified(ctx, user.UserID, true)
	if err == nil && changed {
		l.log.Info().Str("user", externalID).Str("actor", actor).Msg("user trusted")
	}
	return changed, err
}

// Ban clears the verified flag of a registered chat identity.
func (l *Lifecycle) Ban(ctx context.Context, externalID, actor string) (bool, error) {
	user, err := l.users.ByExternalID(ctx, externalID)
	if err != nil {
		return false, err
	}
	changed, err := l.users.SetVerified(ctx, user.UserID, false)
	if err == nil && changed {
		l.log.Info().Str("user", externalID).Str("actor", actor).Msg("user banned")
	}
	return changed, err
}

func (l *Lifecycle) publish(ctx context.Context, kind events.Kind, responseID, externalID, actor string) {
	if l.events == nil {
		return
	}
	ev := events.Event{Kind: kind, ResponseID: responseID, ExternalUserID: externalID, Actor: actor, At: l.now()}
	if err := l.events.Publish(ctx, ev); err != nil {
		l.log.Warn().Err(err).Str("kind", string(kind)).Str("response", responseID).Msg("event publish failed")
	}
}

func (l *Lifecycle) notify(channelID string, m *discord.Message) error {
	if l.notifier == nil {
		return errors.New("lifecycle: no notifier configured")
	}
	if err := l.notifier.Notify(channelID, m); err != nil {
		return fmt.Errorf("notify %s: %w", channelID, err)
	}
	return nil
}
