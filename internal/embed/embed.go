package embed

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/dreamingdragons/roostbot/internal/deviantart"
)

const (
	levelColor     = 0x4CAF50
	deviationColor = 0x00b5c9
	defaultColor   = 0x3498db
)

// CreateLevelStatsEmbed builds the /level response.
func CreateLevelStatsEmbed(username, avatarURL string, own bool, level, xp int, rank int64, xpToNext int) *discordgo.MessageEmbed {
	title := fmt.Sprintf("%s's Level Stats", username)
	if own {
		title = "Your Level Stats"
	}

	return &discordgo.MessageEmbed{
		Color:     levelColor,
		Title:     title,
		Thumbnail: &discordgo.MessageEmbedThumbnail{URL: avatarURL},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Level", Value: fmt.Sprintf("%d", level), Inline: true},
			{Name: "Total XP", Value: fmt.Sprintf("%d", xp), Inline: true},
			{Name: "Rank", Value: fmt.Sprintf("#%d", rank), Inline: true},
			{Name: "XP to Next Level", Value: fmt.Sprintf("%d", xpToNext), Inline: false},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "Keep chatting to earn more XP!"},
	}
}

// CreateLeaderboardEmbed builds one /levels page.
func CreateLeaderboardEmbed(guildName, description string, page, maxPages int, totalUsers int64) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color:       levelColor,
		Title:       fmt.Sprintf("%s - Level Leaderboard", guildName),
		Description: description,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Page %d/%d • Total Users: %d", page, maxPages, totalUsers),
		},
	}
}

// CreateDeviationEmbed builds the notification for a newly posted deviation.
func CreateDeviationEmbed(d *deviantart.Deviation) *discordgo.MessageEmbed {
	description := d.Description
	if len(description) > 4000 {
		description = description[:4000]
	}

	embed := &discordgo.MessageEmbed{
		Color:       deviationColor,
		Title:       d.Title,
		URL:         d.URL,
		Description: description,
		Image:       &discordgo.MessageEmbedImage{URL: d.ImageURL},
		Timestamp:   d.Published.Format("2006-01-02T15:04:05Z07:00"),
		Footer:      &discordgo.MessageEmbedFooter{Text: "DeviantArt"},
	}
	if d.Author.Name != "" {
		embed.Author = &discordgo.MessageEmbedAuthor{
			Name:    d.Author.Name,
			URL:     d.Author.URL,
			IconURL: d.Author.Avatar,
		}
	}
	return embed
}

// CreateRoleNoticeEmbed builds the temporary message shown when a reaction
// role is granted or removed.
func CreateRoleNoticeEmbed(roleName string, roleColor int, granted bool) *discordgo.MessageEmbed {
	if roleColor == 0 {
		roleColor = defaultColor
	}
	description := fmt.Sprintf("✅ You've received the **%s** role!", roleName)
	if !granted {
		description = fmt.Sprintf("❌ You've lost the **%s** role!", roleName)
	}

	return &discordgo.MessageEmbed{
		Color:       roleColor,
		Description: description,
		Footer: &discordgo.MessageEmbedFooter{
			Text: "This notification will disappear in a few seconds",
		},
	}
}
