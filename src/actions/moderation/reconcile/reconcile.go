// Package reconcile runs the periodic sweeps that push new responses to
// moderators and close reviews once enough votes are in.
package reconcile

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ltyyb/surveybot/src/logging"
	"github.com/ltyyb/surveybot/src/shared/survey"
)

// Transport reports the state of the chat connection.
type Transport interface {
	Available() bool
	LastInbound() time.Time
}

// Lifecycle is the set of transitions the sweeps drive.
type Lifecycle interface {
	Push(ctx context.Context, responseID string) (bool, error)
	Remind(ctx context.Context, r *survey.Response) error
	Finalize(ctx context.Context, responseID string) (survey.Outcome, error)
	Expire(ctx context.Context) (int, error)
}

// Lister returns the responses a sweep works on.
type Lister interface {
	ListUnpushed(ctx context.Context) ([]survey.Response, error)
	ListUnreviewed(ctx context.Context) ([]survey.Response, error)
}

// Config controls sweep cadence and gating.
type Config struct {
	PushInterval     time.Duration
	ReviewInterval   time.Duration
	TransportRetry   time.Duration
	SilenceThreshold time.Duration
	OffHoursRecheck  time.Duration
	ActiveStartHour  int
	ActiveEndHour    int
	Location         *time.Location
	Remind           bool
}

func (c Config) withDefaults() Config {
	if c.PushInterval <= 0 {
		c.PushInterval = 3 * time.Hour
	}
	if c.ReviewInterval <= 0 {
		c.ReviewInterval = 10 * time.Minute
	}
	if c.TransportRetry <= 0 {
		c.TransportRetry = 15 * time.Second
	}
	if c.SilenceThreshold <= 0 {
		c.SilenceThreshold = 48 * time.Hour
	}
	if c.OffHoursRecheck <= 0 {
		c.OffHoursRecheck = time.Hour
	}
	if c.ActiveStartHour == 0 && c.ActiveEndHour == 0 {
		c.ActiveStartHour, c.ActiveEndHour = 9, 23
	}
	if c.Location == nil {
		c.Location = time.Local
	}
	return c
}

// Loops owns both sweeps. Run each loop in its own goroutine.
type Loops struct {
	lifecycle Lifecycle
	lister    Lister
	transport Transport
	cfg       Config

	now  func() time.Time
	wait func(ctx context.Context, d time.Duration) bool
	log  zerolog.Logger

	// lastExpire is owned by the review loop goroutine.
	lastExpire time.Time
}

// New builds the loops.
func New(lc Lifecycle, lister Lister, transport Transport, cfg Config) *Loops {
	return &Loops{
		lifecycle: lc,
		lister:    lister,
		transport: transport,
		cfg:       cfg.withDefaults(),
		now:       time.Now,
		wait:      sleep,
		log:       logging.For("reconcile"),
	}
}

// sleep waits for d or until ctx is done, reporting whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Decision is the outcome of the gate check before a sweep.
type Decision struct {
	Run    bool
	Wait   time.Duration
	Reason string
}

// Gate decides whether a sweep with the given interval may run at now.
func (l *Loops) Gate(now time.Time, interval time.Duration) Decision {
	if l.transport == nil || !l.transport.Available() {
		return Decision{Wait: l.cfg.TransportRetry, Reason: "transport unavailable"}
	}
	if last := l.transport.LastInbound(); !last.IsZero() && now.Sub(last) > l.cfg.SilenceThreshold {
		return Decision{Wait: interval, Reason: "channel silent"}
	}
	hour := now.In(l.cfg.Location).Hour()
	if hour < l.cfg.ActiveStartHour || hour >= l.cfg.ActiveEndHour {
		return Decision{Wait: l.cfg.OffHoursRecheck, Reason: "outside active hours"}
	}
	return Decision{Run: true, Wait: interval}
}

// RunPush runs the push sweep until ctx is canceled.
func (l *Loops) RunPush(ctx context.Context) {
	l.run(ctx, "push", l.cfg.PushInterval, l.PushSweep, nil)
}

// RunReview runs the review sweep until ctx is canceled. Expired rejections
// are deleted every interval even while the sweep itself is gated off.
func (l *Loops) RunReview(ctx context.Context) {
	l.run(ctx, "review", l.cfg.ReviewInterval, l.ReviewSweep, l.expireDue)
}

func (l *Loops) run(ctx context.Context, name string, interval time.Duration, sweep func(context.Context), idle func(context.Context, time.Time)) {
	l.log.Info().Str("loop", name).Dur("interval", interval).Msg("loop started")
	for {
		if ctx.Err() != nil {
			return
		}
		now := l.now()
		d := l.Gate(now, interval)
		if d.Run {
			sweep(ctx)
		} else {
			l.log.Debug().Str("loop", name).Str("reason", d.Reason).Dur("recheck", d.Wait).Msg("sweep skipped")
			if idle != nil {
				idle(ctx, now)
			}
		}
		wait := d.Wait
		if idle != nil && wait > interval {
			wait = interval
		}
		if !l.wait(ctx, wait) {
			l.log.Info().Str("loop", name).Msg("loop stopped")
			return
		}
	}
}

// PushSweep announces every unpushed response, then reminds moderators of
// responses pushed by an earlier sweep that are still open.
func (l *Loops) PushSweep(ctx context.Context) {
	pending, err := l.lister.ListUnpushed(ctx)
	if err != nil {
		l.log.Warn().Err(err).Msg("push sweep: list unpushed failed")
		return
	}
	announced := make(map[string]struct{}, len(pending))
	for _, r := range pending {
		if ctx.Err() != nil {
			return
		}
		won, err := l.lifecycle.Push(ctx, r.ResponseID)
		if err != nil {
			l.log.Warn().Err(err).Str("response", r.ResponseID).Msg("push sweep: push failed")
			continue
		}
		if won {
			announced[r.ResponseID] = struct{}{}
		}
	}
	if len(announced) > 0 {
		l.log.Info().Int("pushed", len(announced)).Msg("push sweep done")
	}

	if !l.cfg.Remind {
		return
	}
	open, err := l.lister.ListUnreviewed(ctx)
	if err != nil {
		l.log.Warn().Err(err).Msg("push sweep: list unreviewed failed")
		return
	}
	for i := range open {
		if ctx.Err() != nil {
			return
		}
		r := &open[i]
		if !r.IsPushed {
			continue
		}
		if _, fresh := announced[r.ResponseID]; fresh {
			continue
		}
		if err := l.lifecycle.Remind(ctx, r); err != nil {
			l.log.Warn().Err(err).Str("response", r.ResponseID).Msg("push sweep: reminder failed")
		}
	}
}

// ReviewSweep finalizes every open response and deletes expired rejections.
func (l *Loops) ReviewSweep(ctx context.Context) {
	open, err := l.lister.ListUnreviewed(ctx)
	if err != nil {
		l.log.Warn().Err(err).Msg("review sweep: list unreviewed failed")
	} else {
		for _, r := range open {
			if ctx.Err() != nil {
				return
			}
			if _, err := l.lifecycle.Finalize(ctx, r.ResponseID); err != nil {
				l.log.Warn().Err(err).Str("response", r.ResponseID).Msg("review sweep: finalize failed")
			}
		}
	}
	l.expire(ctx, l.now())
}

// expireDue runs expiry when the sweep is gated off, at most once per
// review interval. Deleting sends nothing to chat, so no gate applies.
func (l *Loops) expireDue(ctx context.Context, now time.Time) {
	if !l.lastExpire.IsZero() && now.Sub(l.lastExpire) < l.cfg.ReviewInterval {
		return
	}
	l.expire(ctx, now)
}

func (l *Loops) expire(ctx context.Context, now time.Time) {
	l.lastExpire = now
	n, err := l.lifecycle.Expire(ctx)
	if err != nil {
		l.log.Warn().Err(err).Msg("expire failed")
		return
	}
	if n > 0 {
		l.log.Info().Int("deleted", n).Msg("expired responses removed")
	}
}
