package events

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestPublishAppendsToStream(t *testing.T) {
	s := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer rdb.Close()

	p := NewPublisher(rdb)
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := p.Publish(context.Background(), Event{Kind: Approved, ResponseID: "abc", ExternalUserID: "42", At: at}); err != nil {
		t.Fatal(err)
	}

	msgs, err := rdb.XRange(context.Background(), Stream, "-", "+").Result()
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("stream has %d entries", len(msgs))
	}
	v := msgs[0].Values
	if v["kind"] != "approved" || v["response_id"] != "abc" || v["at"] != "2025-06-01T12:00:00Z" {
		t.Fatalf("unexpected entry: %v", v)
	}
}

func TestNilPublisherDropsEvents(t *testing.T) {
	var p *Publisher
	if err := p.Publish(context.Background(), Event{Kind: Pushed}); err != nil {
		t.Fatal(err)
	}
	if err := NewPublisher(nil).Publish(context.Background(), Event{Kind: Pushed}); err != nil {
		t.Fatal(err)
	}
}
