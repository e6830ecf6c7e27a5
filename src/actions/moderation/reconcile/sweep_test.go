package reconcile

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ltyyb/surveybot/src/actions/moderation/lifecycle"
	"github.com/ltyyb/surveybot/src/data/store"
	"github.com/ltyyb/surveybot/src/discord"
	"github.com/ltyyb/surveybot/src/shared/survey"
	"github.com/ltyyb/surveybot/src/surveypkg"
	"github.com/ltyyb/surveybot/src/testutil"
)

const sweepPackage = `{"name":"entrance","latestVer":"1","surveys":{"1":{"description":"d","releaseDate":"1748779200","json":"{\"pages\":[]}"}}}`

type chatLog struct {
	mu   sync.Mutex
	sent []string
}

func (c *chatLog) Notify(_ string, m *discord.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, m.PlainText())
	return nil
}

func (c *chatLog) messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

type world struct {
	lc        *lifecycle.Lifecycle
	responses *store.ResponseStore
	users     *store.Users
	chat      *chatLog
	clock     time.Time
}

func newWorld(t *testing.T, start time.Time) *world {
	t.Helper()
	db := testutil.NewDB(t)
	pkg, err := surveypkg.Parse([]byte(sweepPackage))
	if err != nil {
		t.Fatal(err)
	}
	provider := surveypkg.NewProvider("")
	provider.Set(pkg)

	w := &world{
		responses: store.NewResponseStore(db),
		users:     store.NewUsers(db),
		chat:      &chatLog{},
		clock:     start,
	}
	w.lc = lifecycle.New(lifecycle.Deps{
		Responses: w.responses,
		Votes:     store.NewVoteTally(db),
		Users:     w.users,
		Surveys:   provider,
		Notifier:  w.chat,
	}, lifecycle.Config{MainChannelID: "main", VerifyChannelID: "verify", SiteURL: "https://survey.test"})
	w.lc.SetClock(func() time.Time { return w.clock })
	return w
}

func (w *world) submit(t *testing.T, external string) string {
	t.Helper()
	ctx := context.Background()
	user, _, err := w.users.Register(ctx, external)
	if err != nil {
		t.Fatal(err)
	}
	id, err := w.lc.Submit(ctx, lifecycle.Submission{UserID: user.UserID, Version: "1", Answers: []byte(`{"q":"a"}`)})
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func (w *world) reject(t *testing.T, id string) time.Time {
	t.Helper()
	ctx := context.Background()
	for _, voter := range []string{"m1", "m2", "m3", "m4", "m5"} {
		if err := w.lc.Vote(ctx, id, voter, survey.VoteDeny); err != nil {
			t.Fatal(err)
		}
	}
	if outcome, err := w.lc.Finalize(ctx, id); err != nil || outcome != survey.OutcomeRejected {
		t.Fatalf("finalize = %q, %v", outcome, err)
	}
	r, err := w.responses.Get(ctx, id)
	if err != nil || r.ExpireAt == nil {
		t.Fatalf("rejected row = %+v, %v", r, err)
	}
	return *r.ExpireAt
}

func TestPushSweepAnnouncesNewResponseOnce(t *testing.T) {
	w := newWorld(t, noon)
	id := w.submit(t, "2001")
	l := New(w.lc, w.responses, &fakeTransport{available: true}, Config{Remind: true, Location: time.UTC})

	l.PushSweep(context.Background())
	first := w.chat.messages()
	if len(first) != 1 || strings.Contains(first[0], "Reminder") {
		t.Fatalf("first sweep sent %q", first)
	}
	if !strings.Contains(first[0], store.ShortOf(id)) {
		t.Fatalf("push message lacks short id: %q", first[0])
	}

	l.PushSweep(context.Background())
	second := w.chat.messages()[len(first):]
	if len(second) != 1 || !strings.Contains(second[0], "Reminder") {
		t.Fatalf("second sweep sent %q", second)
	}
}

func TestReviewLoopExpiresRejectionsWhileGated(t *testing.T) {
	late := time.Date(2025, 6, 1, 22, 55, 0, 0, time.UTC)
	const interval = 10 * time.Minute

	cases := []struct {
		name      string
		transport func(now time.Time) *fakeTransport
	}{
		{"outside active hours", func(now time.Time) *fakeTransport {
			return &fakeTransport{available: true, last: now}
		}},
		{"silent channel", func(now time.Time) *fakeTransport {
			return &fakeTransport{available: true, last: now.Add(-72 * time.Hour)}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := newWorld(t, late)
			id := w.submit(t, "2001")
			deadline := w.reject(t, id)

			w.clock = deadline.Add(-time.Minute)
			l := New(w.lc, w.responses, tc.transport(w.clock), Config{ReviewInterval: interval, Location: time.UTC})
			l.now = func() time.Time { return w.clock }

			var goneAt time.Time
			l.wait = func(_ context.Context, d time.Duration) bool {
				if _, err := w.responses.Get(context.Background(), id); errors.Is(err, survey.ErrNotFound) {
					goneAt = w.clock
					return false
				}
				if d > interval {
					t.Errorf("review loop slept %v, longer than its interval", d)
				}
				w.clock = w.clock.Add(d)
				return w.clock.Before(deadline.Add(12 * time.Hour))
			}
			l.RunReview(context.Background())

			if goneAt.IsZero() {
				t.Fatal("rejected response never expired")
			}
			if goneAt.After(deadline.Add(interval)) {
				t.Fatalf("expired at %v, deadline %v", goneAt, deadline)
			}
		})
	}
}
