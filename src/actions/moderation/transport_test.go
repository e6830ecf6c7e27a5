package moderation

import (
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/ltyyb/surveybot/src/discord"
)

type recordingSender struct {
	sent []*discordgo.MessageSend
	err  error
}

func (r *recordingSender) ChannelMessageSendComplex(_ string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.sent = append(r.sent, data)
	return &discordgo.Message{Content: data.Content}, nil
}

func TestTransportAvailability(t *testing.T) {
	tr := NewTransport(&recordingSender{})
	if tr.Available() {
		t.Fatal("available before ready")
	}
	tr.onReady(nil, &discordgo.Ready{})
	if !tr.Available() {
		t.Fatal("not available after ready")
	}
	tr.onDisconnect(nil, &discordgo.Disconnect{})
	if tr.Available() {
		t.Fatal("available after disconnect")
	}
	tr.onResumed(nil, &discordgo.Resumed{})
	if !tr.Available() {
		t.Fatal("not available after resume")
	}
}

func TestTransportTracksInbound(t *testing.T) {
	tr := NewTransport(&recordingSender{})
	if time.Since(tr.LastInbound()) > time.Minute {
		t.Fatal("silence clock does not start at creation")
	}
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tr.Touch(at)
	if !tr.LastInbound().Equal(at) {
		t.Fatalf("last inbound = %v", tr.LastInbound())
	}
}

func TestTransportNotify(t *testing.T) {
	sender := &recordingSender{}
	tr := NewTransport(sender)
	if err := tr.Notify("c1", discord.NewMessage().Mention("42").Text(" hello")); err != nil {
		t.Fatal(err)
	}
	if len(sender.sent) != 1 || sender.sent[0].Content != "<@42> hello" {
		t.Fatalf("sent = %+v", sender.sent)
	}
	if got := sender.sent[0].AllowedMentions.Users; len(got) != 1 || got[0] != "42" {
		t.Fatalf("allowed mentions = %v", got)
	}

	sender.err = errors.New("offline")
	if err := tr.Notify("c1", discord.NewMessage().Text("x")); err == nil {
		t.Fatal("expected send error")
	}
}
