// Package events publishes response lifecycle events to a Redis stream.
package events

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Stream is the Redis stream lifecycle events are appended to.
const Stream = "surveybot.lifecycle"

// maxStreamLen caps the stream with approximate trimming.
const maxStreamLen = 10000

// Kind names a lifecycle transition.
type Kind string

const (
	Submitted Kind = "submitted"
	Pushed    Kind = "pushed"
	Approved  Kind = "approved"
	Rejected  Kind = "rejected"
	Expired   Kind = "expired"
	Disabled  Kind = "disabled"
	Enabled   Kind = "enabled"
	Archived  Kind = "archived"
	Restored  Kind = "restored"
	Deleted   Kind = "deleted"
)

// Event is one lifecycle transition of a response.
type Event struct {
	Kind           Kind
	ResponseID     string
	ExternalUserID string
	Actor          string
	At             time.Time
}

// Publisher appends events to the stream. A Publisher with a nil client drops
// every event.
type Publisher struct {
	rdb *redis.Client
}

// NewPublisher wraps rdb, which may be nil.
func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

// Publish appends ev to the stream.
func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	if p == nil || p.rdb == nil {
		return nil
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	return p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: Stream,
		MaxLen: maxStreamLen,
		Approx: true,
		Values: map[string]interface{}{
			"kind":             string(ev.Kind),
			"response_id":      ev.ResponseID,
			"external_user_id": ev.ExternalUserID,
			"actor":            ev.Actor,
			"at":               ev.At.UTC().Format(time.RFC3339Nano),
		},
	}).Err()
}
