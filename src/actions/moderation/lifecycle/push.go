package lifecycle

import (
	"context"
	"fmt"

	"github.com/ltyyb/surveybot/src/data/events"
	"github.com/ltyyb/surveybot/src/data/store"
	"github.com/ltyyb/surveybot/src/discord"
	"github.com/ltyyb/surveybot/src/shared/survey"
)

// ReviewLink returns the web page where moderators read a response.
func (l *Lifecycle) ReviewLink(responseID string) string {
	return fmt.Sprintf("%s/survey/entr/review?surveyId=%s", l.cfg.SiteURL, responseID)
}

// Push announces a response to moderators once. It reports false without
// sending anything when another worker already pushed it.
func (l *Lifecycle) Push(ctx context.Context, responseID string) (bool, error) {
	won, err := l.responses.MarkPushed(ctx, responseID)
	if err != nil {
		return false, err
	}
	if !won {
		l.log.Info().Str("response", responseID).Msg("push: already pushed by peer, skipping")
		return false, nil
	}

	msg := l.pushMessage("New survey submission awaiting review.", responseID)
	if err := l.notify(l.cfg.MainChannelID, msg); err != nil {
		// is_pushed stays set; a later reminder re-announces the response.
		return true, err
	}
	l.log.Info().Str("response", responseID).Str("channel", l.cfg.MainChannelID).Msg("response pushed")
	l.publish(ctx, events.Pushed, responseID, "", "")
	return true, nil
}

// Remind re-announces a pushed response that is still waiting for a decision.
// It never changes is_pushed.
func (l *Lifecycle) Remind(ctx context.Context, r *survey.Response) error {
	if !r.IsPushed || r.IsReviewed {
		return nil
	}
	msg := l.pushMessage("Reminder: this survey submission still needs votes.", r.ResponseID)
	if err := l.notify(l.cfg.MainChannelID, msg); err != nil {
		return err
	}
	l.log.Info().Str("response", r.ResponseID).Msg("reminder sent")
	return nil
}

func (l *Lifecycle) pushMessage(headline, responseID string) *discord.Message {
	short := store.ShortOf(responseID)
	return discord.NewMessage().
		MentionRole(l.cfg.ModeratorRoleID).
		Line("").
		Line(headline).
		Text("Review link: ").Link(l.ReviewLink(responseID)).Line("").
		Line("Please do not share this link or its content.").
		Line("").
		Line("Vote in any channel or in a direct message:").
		Textf("`/survey vote %s a` to approve\n", short).
		Textf("`/survey vote %s d` to reject\n", short).
		Text("You can change your vote until the review closes.")
}
