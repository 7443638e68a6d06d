package bot

import (
	"log"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/dreamingdragons/roostbot/internal/embed"
)

func (b *Bot) ready(s *discordgo.Session, event *discordgo.Ready) {
	log.Println("Bot is ready")
	b.registerCommands()
	b.updateBotStatus()
}

// messageCreate awards XP for regular chat messages. Cooldowns and disabled
// guilds come back as a nil result, which needs no handling here.
func (b *Bot) messageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}
	if strings.HasPrefix(m.Content, "/") {
		return
	}

	result, err := b.Leveling.AddXP(m.Author.ID, m.GuildID)
	if err != nil {
		log.Printf("Error awarding XP to user %s in guild %s: %v", m.Author.ID, m.GuildID, err)
		return
	}
	if result != nil && result.LeveledUp {
		b.Stats.RecordLevelUp()
	}
}

func (b *Bot) messageReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if r.GuildID == "" || r.UserID == s.State.User.ID {
		return
	}
	if r.Member != nil && r.Member.User != nil && r.Member.User.Bot {
		return
	}

	binding, err := b.Repo.GetReactionRole(r.GuildID, r.MessageID, r.Emoji.MessageFormat())
	if err != nil {
		log.Printf("Error looking up reaction role: %v", err)
		return
	}
	if binding == nil {
		return
	}

	member, err := s.GuildMember(r.GuildID, r.UserID)
	if err != nil {
		log.Printf("[Reaction Add] Could not fetch member %s in guild %s: %v", r.UserID, r.GuildID, err)
		return
	}
	if hasRole(member, binding.RoleID) {
		return
	}

	if err := s.GuildMemberRoleAdd(r.GuildID, r.UserID, binding.RoleID); err != nil {
		log.Printf("[Reaction Add] Error adding role %s to user %s: %v", binding.RoleID, r.UserID, err)
		return
	}
	log.Printf("[Reaction Add] Added role %s to user %s in guild %s", binding.RoleID, r.UserID, r.GuildID)

	b.sendRoleNotice(r.ChannelID, r.UserID, r.GuildID, binding.RoleID, true)
}

func (b *Bot) messageReactionRemove(s *discordgo.Session, r *discordgo.MessageReactionRemove) {
	if r.GuildID == "" || r.UserID == s.State.User.ID {
		return
	}

	binding, err := b.Repo.GetReactionRole(r.GuildID, r.MessageID, r.Emoji.MessageFormat())
	if err != nil {
		log.Printf("Error looking up reaction role: %v", err)
		return
	}
	if binding == nil {
		return
	}

	member, err := s.GuildMember(r.GuildID, r.UserID)
	if err != nil {
		// User may have left the server.
		log.Printf("[Reaction Remove] User %s not found in guild %s", r.UserID, r.GuildID)
		return
	}
	if !hasRole(member, binding.RoleID) {
		return
	}

	if err := s.GuildMemberRoleRemove(r.GuildID, r.UserID, binding.RoleID); err != nil {
		log.Printf("[Reaction Remove] Error removing role %s from user %s: %v", binding.RoleID, r.UserID, err)
		return
	}
	log.Printf("[Reaction Remove] Removed role %s from user %s in guild %s", binding.RoleID, r.UserID, r.GuildID)

	b.sendRoleNotice(r.ChannelID, r.UserID, r.GuildID, binding.RoleID, false)
}

// sendRoleNotice posts a temporary confirmation embed and deletes it after a
// few seconds. Best-effort on both ends.
func (b *Bot) sendRoleNotice(channelID, userID, guildID, roleID string, granted bool) {
	roleName := "Unknown Role"
	roleColor := 0
	if role, err := b.Session.State.Role(guildID, roleID); err == nil {
		roleName = role.Name
		roleColor = role.Color
	}

	msg, err := b.Session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: "<@" + userID + ">",
		Embed:   embed.CreateRoleNoticeEmbed(roleName, roleColor, granted),
	})
	if err != nil {
		log.Printf("Error sending role notification: %v", err)
		return
	}

	time.AfterFunc(5*time.Second, func() {
		if err := b.Session.ChannelMessageDelete(channelID, msg.ID); err != nil {
			log.Printf("Error deleting role notification: %v", err)
		}
	})
}

func hasRole(member *discordgo.Member, roleID string) bool {
	for _, id := range member.Roles {
		if id == roleID {
			return true
		}
	}
	return false
}

func (b *Bot) interactionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	switch i.ApplicationCommandData().Name {
	case "ping":
		b.handlePingCommand(s, i)
	case "level":
		b.handleLevelCommand(s, i)
	case "levels":
		b.handleLevelsCommand(s, i)
	case "leveladmin":
		if !b.hasAdminPermissions(i) {
			b.respondToInteraction(s, i, "You do not have permission to use this command.", true)
			return
		}
		b.handleLevelAdminCommand(s, i)
	case "deviantart":
		if !b.hasAdminPermissions(i) {
			b.respondToInteraction(s, i, "You do not have permission to use this command.", true)
			return
		}
		b.handleDeviantArtCommand(s, i)
	}
}

func (b *Bot) hasAdminPermissions(i *discordgo.InteractionCreate) bool {
	if i.GuildID == "" || i.Member == nil {
		return false
	}
	return i.Member.Permissions&discordgo.PermissionAdministrator == discordgo.PermissionAdministrator
}

func (b *Bot) respondToInteraction(s *discordgo.Session, i *discordgo.InteractionCreate, content string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}

	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	})
}

func (b *Bot) deferInteraction(s *discordgo.Session, i *discordgo.InteractionCreate, ephemeral bool) error {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: flags},
	})
}

func (b *Bot) editInteractionResponse(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	_, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content: &content,
	})
	if err != nil {
		log.Printf("Error editing interaction response: %v", err)
	}
}

func (b *Bot) editInteractionResponseEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, e *discordgo.MessageEmbed) {
	_, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{e},
	})
	if err != nil {
		log.Printf("Error editing interaction response: %v", err)
	}
}
