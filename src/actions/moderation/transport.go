package moderation

import (
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/ltyyb/surveybot/src/discord"
)

// Transport adapts a Discord session for the lifecycle and the sweeps. It
// tracks connection state and the time of the last inbound message.
type Transport struct {
	sender      discord.Sender
	connected   atomic.Bool
	lastInbound atomic.Int64
}

// NewTransport wraps sender. The silence clock starts at creation.
func NewTransport(sender discord.Sender) *Transport {
	t := &Transport{sender: sender}
	t.Touch(time.Now())
	return t
}

// Available reports whether the gateway connection is up.
func (t *Transport) Available() bool {
	return t.connected.Load()
}

// LastInbound returns when a user message was last seen.
func (t *Transport) LastInbound() time.Time {
	return time.Unix(0, t.lastInbound.Load())
}

// Touch records inbound activity at at.
func (t *Transport) Touch(at time.Time) {
	t.lastInbound.Store(at.UnixNano())
}

// Notify sends m to channelID.
func (t *Transport) Notify(channelID string, m *discord.Message) error {
	_, err := discord.Send(t.sender, channelID, m)
	return err
}

func (t *Transport) onReady(_ *discordgo.Session, _ *discordgo.Ready) {
	t.connected.Store(true)
}

func (t *Transport) onResumed(_ *discordgo.Session, _ *discordgo.Resumed) {
	t.connected.Store(true)
}

func (t *Transport) onDisconnect(_ *discordgo.Session, _ *discordgo.Disconnect) {
	t.connected.Store(false)
}
