package lifecycle

import (
	"context"
	"strconv"
	"time"

	"github.com/ltyyb/surveybot/src/data/events"
	"github.com/ltyyb/surveybot/src/data/store"
	"github.com/ltyyb/surveybot/src/discord"
	"github.com/ltyyb/surveybot/src/shared/survey"
)

// Decide applies the review rule: below quorum the response stays pending,
// otherwise it is approved when the agree ratio strictly exceeds the threshold.
func Decide(t survey.Tally, quorum int64, ratio float64) survey.Outcome {
	total := t.Total()
	if total < quorum || total == 0 {
		return survey.OutcomePending
	}
	if float64(t.Agree)/float64(total) > ratio {
		return survey.OutcomeApproved
	}
	return survey.OutcomeRejected
}

// Finalize closes the review of a response when enough votes are in. It
// returns the outcome it applied, or OutcomePending when nothing changed.
func (l *Lifecycle) Finalize(ctx context.Context, responseID string) (survey.Outcome, error) {
	r, err := l.responses.Get(ctx, responseID)
	if err != nil {
		return survey.OutcomePending, err
	}
	if r.IsReviewed {
		return survey.OutcomePending, nil
	}

	tally, err := l.votes.Tally(ctx, responseID)
	if err != nil {
		return survey.OutcomePending, err
	}
	outcome := Decide(tally, l.cfg.Quorum, l.cfg.ApproveRatio)
	if outcome == survey.OutcomePending {
		l.log.Debug().Str("response", responseID).Int64("votes", tally.Total()).Msg("review: quorum not reached")
		return outcome, nil
	}

	now := l.now()
	var expireAt *time.Time
	if outcome == survey.OutcomeRejected {
		at := now.Add(l.cfg.RejectRetention)
		expireAt = &at
	}
	won, err := l.responses.MarkReviewed(ctx, responseID, outcome, now, expireAt)
	if err != nil {
		return survey.OutcomePending, err
	}
	if !won {
		l.log.Info().Str("response", responseID).Msg("review: already finalized by peer, skipping")
		return survey.OutcomePending, nil
	}
	l.log.Info().Str("response", responseID).Str("outcome", string(outcome)).
		Int64("agree", tally.Agree).Int64("deny", tally.Deny).Msg("review finalized")

	if outcome == survey.OutcomeApproved {
		l.approve(ctx, r)
	} else {
		l.reject(ctx, r)
	}
	return outcome, nil
}

func (l *Lifecycle) approve(ctx context.Context, r *survey.Response) {
	if _, err := l.users.SetVerified(ctx, r.UserID, true); err != nil {
		l.log.Error().Err(err).Str("response", r.ResponseID).Str("user", r.UserID).
			Msg("review: approved but user verification failed, manual check required")
	}
	msg := discord.NewMessage().
		Mention(r.ExternalUserID).
		Line("").
		Line("Your survey answers have been approved.").
		Text("You can now join the main group.")
	if err := l.notify(l.cfg.VerifyChannelID, msg); err != nil {
		l.log.Warn().Err(err).Str("response", r.ResponseID).Msg("review: approval notice failed")
	}
	l.publish(ctx, events.Approved, r.ResponseID, r.ExternalUserID, "")
}

func (l *Lifecycle) reject(ctx context.Context, r *survey.Response) {
	msg := discord.NewMessage().
		Mention(r.ExternalUserID).
		Line("").
		Line("Your survey answers were not approved.").
		Line("Please check that your answers follow the group rules.").
		Textf("Your answers will be removed after %s, ", humanDuration(l.cfg.RejectRetention)).
		Line("after which you can run `/survey entr` and fill in the survey again.").
		Text("Contact an administrator if you have questions.")
	if err := l.notify(l.cfg.VerifyChannelID, msg); err != nil {
		l.log.Warn().Err(err).Str("response", r.ResponseID).Msg("review: rejection notice failed")
	}
	l.publish(ctx, events.Rejected, r.ResponseID, r.ExternalUserID, "")
}

// Expire deletes rejected responses whose retention has elapsed and returns
// how many were removed.
func (l *Lifecycle) Expire(ctx context.Context) (int, error) {
	now := l.now()
	due, err := l.responses.ListExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, r := range due {
		ok, err := l.responses.DeleteExpired(ctx, r.ResponseID, now)
		if err != nil {
			l.log.Warn().Err(err).Str("response", r.ResponseID).Msg("expire: delete failed")
			continue
		}
		if !ok {
			continue
		}
		removed++
		l.log.Info().Str("response", r.ResponseID).Str("short_id", store.ShortOf(r.ResponseID)).Msg("expired response deleted")
		l.publish(ctx, events.Expired, r.ResponseID, r.ExternalUserID, "")
	}
	return removed, nil
}

func humanDuration(d time.Duration) string {
	if d%time.Hour == 0 {
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return strconv.Itoa(h) + " hours"
	}
	return d.String()
}
