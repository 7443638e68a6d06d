package bot

import (
	"slices"

	"github.com/bwmarrin/discordgo"
)

// sessionGateway adapts a discordgo session to the narrow surface the
// leveling service needs.
type sessionGateway struct {
	session *discordgo.Session
}

func (g *sessionGateway) SendChannelMessage(channelID, content string) error {
	_, err := g.session.ChannelMessageSend(channelID, content)
	return err
}

func (g *sessionGateway) MemberHasRole(guildID, userID, roleID string) (bool, error) {
	member, err := g.member(guildID, userID)
	if err != nil {
		return false, err
	}
	return slices.Contains(member.Roles, roleID), nil
}

func (g *sessionGateway) GrantRole(guildID, userID, roleID string) error {
	return g.session.GuildMemberRoleAdd(guildID, userID, roleID)
}

func (g *sessionGateway) member(guildID, userID string) (*discordgo.Member, error) {
	member, err := g.session.State.Member(guildID, userID)
	if err == nil {
		return member, nil
	}
	return g.session.GuildMember(guildID, userID)
}
