package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Sender is the subset of *discordgo.Session used to post messages.
type Sender interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Send renders m and posts it to channelID, splitting long content. Only the
// mentions present in m are allowed to ping. The first message is returned.
func Send(s Sender, channelID string, m *Message) (*discordgo.Message, error) {
	if channelID == "" {
		return nil, fmt.Errorf("discord: channel ID is required")
	}
	users, roles, everyone := m.Mentions()
	allowed := &discordgo.MessageAllowedMentions{Users: users, Roles: roles}
	if everyone {
		allowed.Parse = []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeEveryone}
	}

	var first *discordgo.Message
	for i, chunk := range ChunkMessage(m.Render()) {
		msg := &discordgo.MessageSend{
			Content:         chunk,
			AllowedMentions: allowed,
			Flags:           discordgo.MessageFlagsSuppressEmbeds,
		}
		sent, err := s.ChannelMessageSendComplex(channelID, msg)
		if err != nil {
			return first, fmt.Errorf("discord: send chunk %d to %s: %w", i, channelID, err)
		}
		if first == nil {
			first = sent
		}
	}
	return first, nil
}
