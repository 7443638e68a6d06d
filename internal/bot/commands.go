package bot

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/dreamingdragons/roostbot/internal/embed"
	"github.com/dreamingdragons/roostbot/internal/leveling"
	"github.com/dreamingdragons/roostbot/internal/models"
)

func (b *Bot) registerCommands() {
	minLevel := 1.0
	minXPPerMessage := 1.0
	maxXPPerMessage := 100.0
	minCooldown := 10.0
	maxCooldown := 600.0
	minPage := 1.0
	minFeedID := 1.0
	minInterval := 5.0
	maxInterval := 1440.0

	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "ping",
			Description: "Check if the bot is responsive",
		},
		{
			Name:        "level",
			Description: "Show level stats for yourself or another user",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "The user to look up (defaults to you)",
					Required:    false,
				},
			},
		},
		{
			Name:        "levels",
			Description: "Show the server level leaderboard",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "page",
					Description: "Leaderboard page to show",
					MinValue:    &minPage,
					Required:    false,
				},
			},
		},
		{
			Name:        "leveladmin",
			Description: "Manage the leveling system",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "setup",
					Description: "Configure and enable leveling for this server",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionChannel,
							Name:        "channel",
							Description: "Channel for level-up announcements",
							Required:    true,
							ChannelTypes: []discordgo.ChannelType{
								discordgo.ChannelTypeGuildText,
							},
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "xp_per_message",
							Description: "Base XP awarded per message (default 20)",
							MinValue:    &minXPPerMessage,
							MaxValue:    maxXPPerMessage,
							Required:    false,
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "xp_cooldown",
							Description: "Seconds between XP awards per user (default 60)",
							MinValue:    &minCooldown,
							MaxValue:    maxCooldown,
							Required:    false,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "setreward",
					Description: "Grant a role when users reach a level",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "level",
							Description: "Level at which the role is granted",
							MinValue:    &minLevel,
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionRole,
							Name:        "role",
							Description: "Role to grant",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "removereward",
					Description: "Remove a role reward",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionRole,
							Name:        "role",
							Description: "Role whose reward should be removed",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "resetuser",
					Description: "Reset a user's XP and level",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionUser,
							Name:        "user",
							Description: "User to reset",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "setlevel",
					Description: "Set a user's level directly",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionUser,
							Name:        "user",
							Description: "User to modify",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "level",
							Description: "Level to assign",
							MinValue:    &minLevel,
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "enable",
					Description: "Enable the leveling system",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "disable",
					Description: "Disable the leveling system",
				},
			},
		},
		{
			Name:        "deviantart",
			Description: "Manage DeviantArt feed notifications",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "Watch a DeviantArt gallery or group page",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "url",
							Description: "DeviantArt gallery or group URL",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionChannel,
							Name:        "channel",
							Description: "Channel for new deviation posts",
							Required:    true,
							ChannelTypes: []discordgo.ChannelType{
								discordgo.ChannelTypeGuildText,
							},
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "interval",
							Description: "Minutes between checks (default 30)",
							MinValue:    &minInterval,
							MaxValue:    maxInterval,
							Required:    false,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "List this server's watched feeds",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "edit",
					Description: "Change a feed's channel, URL or interval",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "id",
							Description: "Feed ID from /deviantart list",
							MinValue:    &minFeedID,
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionChannel,
							Name:        "channel",
							Description: "New channel for posts",
							Required:    false,
							ChannelTypes: []discordgo.ChannelType{
								discordgo.ChannelTypeGuildText,
							},
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "url",
							Description: "New DeviantArt URL",
							Required:    false,
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "interval",
							Description: "New check interval in minutes",
							MinValue:    &minInterval,
							MaxValue:    maxInterval,
							Required:    false,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove",
					Description: "Stop watching a feed",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "id",
							Description: "Feed ID from /deviantart list",
							MinValue:    &minFeedID,
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "test",
					Description: "Preview the latest deviation from a URL",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "url",
							Description: "DeviantArt gallery, group or artwork URL",
							Required:    true,
						},
					},
				},
			},
		},
	}

	_, err := b.Session.ApplicationCommandBulkOverwrite(b.Session.State.User.ID, "", commands)
	if err != nil {
		log.Printf("Error registering commands: %v", err)
		return
	}
	log.Printf("Registered %d application commands", len(commands))
}

func (b *Bot) handlePingCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	latency := s.HeartbeatLatency().Round(time.Millisecond)
	b.respondToInteraction(s, i, fmt.Sprintf("Pong! Gateway latency: %s", latency), true)
}

func (b *Bot) handleLevelCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		b.respondToInteraction(s, i, "This command only works in a server.", true)
		return
	}

	target := i.Member.User
	own := true
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "user" {
			target = opt.UserValue(s)
			own = target.ID == i.Member.User.ID
		}
	}

	if err := b.deferInteraction(s, i, false); err != nil {
		log.Printf("Error deferring interaction: %v", err)
		return
	}

	record, err := b.Repo.GetUserLevel(i.GuildID, target.ID)
	if err != nil {
		b.editInteractionResponse(s, i, "Something went wrong looking up level stats.")
		return
	}
	if record == nil {
		msg := fmt.Sprintf("%s hasn't earned any XP yet.", target.Username)
		if own {
			msg = "You haven't earned any XP yet. Start chatting!"
		}
		b.editInteractionResponse(s, i, msg)
		return
	}

	rank, err := b.Repo.GetUserRank(i.GuildID, record.XP)
	if err != nil {
		b.editInteractionResponse(s, i, "Something went wrong looking up level stats.")
		return
	}

	level := leveling.LevelFromXP(record.XP)
	xpToNext := leveling.XPToNextLevel(record.XP)
	b.editInteractionResponseEmbed(s, i, embed.CreateLevelStatsEmbed(
		target.Username, target.AvatarURL("128"), own, level, record.XP, rank, xpToNext))
}

const leaderboardPageSize = 10

func (b *Bot) handleLevelsCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		b.respondToInteraction(s, i, "This command only works in a server.", true)
		return
	}

	page := 1
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "page" {
			page = int(opt.IntValue())
		}
	}

	if err := b.deferInteraction(s, i, false); err != nil {
		log.Printf("Error deferring interaction: %v", err)
		return
	}

	total, err := b.Repo.CountUserLevels(i.GuildID)
	if err != nil {
		b.editInteractionResponse(s, i, "Something went wrong loading the leaderboard.")
		return
	}
	if total == 0 {
		b.editInteractionResponse(s, i, "Nobody has earned XP in this server yet.")
		return
	}

	maxPages := int((total + leaderboardPageSize - 1) / leaderboardPageSize)
	if page > maxPages {
		page = maxPages
	}

	records, err := b.Repo.GetTopUserLevels(i.GuildID, leaderboardPageSize, (page-1)*leaderboardPageSize)
	if err != nil {
		b.editInteractionResponse(s, i, "Something went wrong loading the leaderboard.")
		return
	}

	var sb strings.Builder
	for idx, record := range records {
		rank := (page-1)*leaderboardPageSize + idx + 1
		fmt.Fprintf(&sb, "**%d.** <@%s> - Level %d (%d XP)\n",
			rank, record.UserID, leveling.LevelFromXP(record.XP), record.XP)
	}

	guildName := "Server"
	if guild, err := s.State.Guild(i.GuildID); err == nil {
		guildName = guild.Name
	}

	b.editInteractionResponseEmbed(s, i,
		embed.CreateLeaderboardEmbed(guildName, sb.String(), page, maxPages, total))
}

func (b *Bot) handleLevelAdminCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return
	}
	sub := options[0]

	switch sub.Name {
	case "setup":
		b.handleLevelSetup(s, i, sub)
	case "setreward":
		b.handleSetReward(s, i, sub)
	case "removereward":
		b.handleRemoveReward(s, i, sub)
	case "resetuser":
		b.handleResetUser(s, i, sub)
	case "setlevel":
		b.handleSetLevel(s, i, sub)
	case "enable":
		b.handleToggleLeveling(s, i, true)
	case "disable":
		b.handleToggleLeveling(s, i, false)
	}
}

func (b *Bot) handleLevelSetup(s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	settings := &models.LevelSettings{
		GuildID:      i.GuildID,
		Enabled:      true,
		XPPerMessage: 20,
		XPCooldown:   60,
	}

	for _, opt := range sub.Options {
		switch opt.Name {
		case "channel":
			settings.NotificationChannelID = opt.ChannelValue(s).ID
		case "xp_per_message":
			settings.XPPerMessage = int(opt.IntValue())
		case "xp_cooldown":
			settings.XPCooldown = int(opt.IntValue())
		}
	}

	if err := b.Repo.UpsertLevelSettings(settings); err != nil {
		log.Printf("Error saving level settings for guild %s: %v", i.GuildID, err)
		b.respondToInteraction(s, i, "Failed to save leveling settings.", true)
		return
	}
	b.Leveling.Invalidate(i.GuildID)

	b.respondToInteraction(s, i, fmt.Sprintf(
		"Leveling is now enabled. Announcements go to <#%s>, %d XP per message, %ds cooldown.",
		settings.NotificationChannelID, settings.XPPerMessage, settings.XPCooldown), true)
}

func (b *Bot) handleSetReward(s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	var level int
	var role *discordgo.Role
	for _, opt := range sub.Options {
		switch opt.Name {
		case "level":
			level = int(opt.IntValue())
		case "role":
			role = opt.RoleValue(s, i.GuildID)
		}
	}
	if role == nil {
		b.respondToInteraction(s, i, "Could not resolve that role.", true)
		return
	}
	if role.Managed {
		b.respondToInteraction(s, i, "That role is managed by an integration and cannot be assigned.", true)
		return
	}

	reward := &models.LevelReward{
		GuildID: i.GuildID,
		Level:   level,
		RoleID:  role.ID,
	}
	if err := b.Repo.UpsertLevelReward(reward); err != nil {
		log.Printf("Error saving level reward for guild %s: %v", i.GuildID, err)
		b.respondToInteraction(s, i, "Failed to save the level reward.", true)
		return
	}

	b.respondToInteraction(s, i, fmt.Sprintf(
		"Members will now receive **%s** at level %d.", role.Name, level), true)
}

func (b *Bot) handleRemoveReward(s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	var role *discordgo.Role
	for _, opt := range sub.Options {
		if opt.Name == "role" {
			role = opt.RoleValue(s, i.GuildID)
		}
	}
	if role == nil {
		b.respondToInteraction(s, i, "Could not resolve that role.", true)
		return
	}

	if err := b.Repo.DeleteLevelRewardByRole(i.GuildID, role.ID); err != nil {
		b.respondToInteraction(s, i, fmt.Sprintf("Could not remove the reward: %v", err), true)
		return
	}

	b.respondToInteraction(s, i, fmt.Sprintf(
		"**%s** is no longer granted as a level reward.", role.Name), true)
}

func (b *Bot) handleResetUser(s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	var target *discordgo.User
	for _, opt := range sub.Options {
		if opt.Name == "user" {
			target = opt.UserValue(s)
		}
	}
	if target == nil {
		b.respondToInteraction(s, i, "Could not resolve that user.", true)
		return
	}

	if err := b.Repo.DeleteUserLevel(i.GuildID, target.ID); err != nil {
		log.Printf("Error resetting user %s in guild %s: %v", target.ID, i.GuildID, err)
		b.respondToInteraction(s, i, "Failed to reset the user.", true)
		return
	}
	b.Leveling.InvalidateUser(i.GuildID, target.ID)

	b.respondToInteraction(s, i, fmt.Sprintf(
		"Reset all XP and level progress for %s.", target.Username), true)
}

func (b *Bot) handleSetLevel(s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	var target *discordgo.User
	var level int
	for _, opt := range sub.Options {
		switch opt.Name {
		case "user":
			target = opt.UserValue(s)
		case "level":
			level = int(opt.IntValue())
		}
	}
	if target == nil {
		b.respondToInteraction(s, i, "Could not resolve that user.", true)
		return
	}

	// Land just past the threshold so the assigned level sticks.
	xp := leveling.CumulativeXPForLevel(level) + 10
	record := &models.UserLevel{
		GuildID:         i.GuildID,
		UserID:          target.ID,
		XP:              xp,
		Level:           level,
		LastMessageTime: time.Now(),
	}
	if err := b.Repo.UpsertUserLevel(record); err != nil {
		log.Printf("Error setting level for user %s in guild %s: %v", target.ID, i.GuildID, err)
		b.respondToInteraction(s, i, "Failed to set the user's level.", true)
		return
	}
	b.Leveling.InvalidateUser(i.GuildID, target.ID)
	b.Leveling.GrantRewardsUpTo(target.ID, i.GuildID, level)

	b.respondToInteraction(s, i, fmt.Sprintf(
		"Set %s to level %d (%d XP).", target.Username, level, xp), true)
}

func (b *Bot) handleToggleLeveling(s *discordgo.Session, i *discordgo.InteractionCreate, enabled bool) {
	if err := b.Repo.SetLevelingEnabled(i.GuildID, enabled); err != nil {
		b.respondToInteraction(s, i, fmt.Sprintf("Could not update leveling: %v", err), true)
		return
	}
	b.Leveling.Invalidate(i.GuildID)

	state := "enabled"
	if !enabled {
		state = "disabled"
	}
	b.respondToInteraction(s, i, fmt.Sprintf("Leveling is now %s.", state), true)
}
