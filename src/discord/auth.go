package discord

import "github.com/bwmarrin/discordgo"

// HasRole checks whether a user has a role in a guild. Empty roleID always returns false.
func HasRole(s *discordgo.Session, guildID, userID, roleID string) bool {
	if roleID == "" || guildID == "" {
		return false
	}
	member, err := s.GuildMember(guildID, userID)
	if err != nil {
		return false
	}
	return MemberHasRole(member, roleID)
}

// MemberHasRole checks a member already present on an event.
func MemberHasRole(member *discordgo.Member, roleID string) bool {
	if member == nil || roleID == "" {
		return false
	}
	for _, role := range member.Roles {
		if role == roleID {
			return true
		}
	}
	return false
}
