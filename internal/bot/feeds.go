package bot

import (
	"fmt"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/dreamingdragons/roostbot/internal/embed"
	"github.com/dreamingdragons/roostbot/internal/models"
)

func (b *Bot) handleDeviantArtCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return
	}
	sub := options[0]

	switch sub.Name {
	case "add":
		b.handleFeedAdd(s, i, sub)
	case "list":
		b.handleFeedList(s, i)
	case "edit":
		b.handleFeedEdit(s, i, sub)
	case "remove":
		b.handleFeedRemove(s, i, sub)
	case "test":
		b.handleFeedTest(s, i, sub)
	}
}

func isDeviantArtURL(url string) bool {
	return strings.HasPrefix(url, "http") && strings.Contains(url, "deviantart.com")
}

func (b *Bot) handleFeedAdd(s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	feed := &models.DeviantArtFeed{
		GuildID:         i.GuildID,
		IntervalMinutes: 30,
	}
	for _, opt := range sub.Options {
		switch opt.Name {
		case "url":
			feed.URL = strings.TrimSpace(opt.StringValue())
		case "channel":
			feed.ChannelID = opt.ChannelValue(s).ID
		case "interval":
			feed.IntervalMinutes = int(opt.IntValue())
		}
	}

	if !isDeviantArtURL(feed.URL) {
		b.respondToInteraction(s, i, "That doesn't look like a DeviantArt URL.", true)
		return
	}

	if err := b.Repo.CreateDeviantArtFeed(feed); err != nil {
		log.Printf("Error creating feed for guild %s: %v", i.GuildID, err)
		b.respondToInteraction(s, i, "Failed to save the feed.", true)
		return
	}
	b.Watcher.RestartFeed(*feed)

	b.respondToInteraction(s, i, fmt.Sprintf(
		"Now watching <%s> in <#%s>, checking every %d minutes (feed #%d).",
		feed.URL, feed.ChannelID, feed.IntervalMinutes, feed.ID), true)
}

func (b *Bot) handleFeedList(s *discordgo.Session, i *discordgo.InteractionCreate) {
	feeds, err := b.Repo.GetGuildDeviantArtFeeds(i.GuildID)
	if err != nil {
		log.Printf("Error listing feeds for guild %s: %v", i.GuildID, err)
		b.respondToInteraction(s, i, "Failed to load this server's feeds.", true)
		return
	}
	if len(feeds) == 0 {
		b.respondToInteraction(s, i, "No DeviantArt feeds are configured. Add one with `/deviantart add`.", true)
		return
	}

	var sb strings.Builder
	for _, feed := range feeds {
		fmt.Fprintf(&sb, "**#%d** <%s> → <#%s> (every %d minutes)\n",
			feed.ID, feed.URL, feed.ChannelID, feed.IntervalMinutes)
	}
	b.respondToInteraction(s, i, sb.String(), true)
}

// loadGuildFeed fetches a feed by ID and rejects IDs belonging to other guilds.
func (b *Bot) loadGuildFeed(guildID string, id uint) (*models.DeviantArtFeed, error) {
	feed, err := b.Repo.GetDeviantArtFeed(id)
	if err != nil {
		return nil, err
	}
	if feed == nil || feed.GuildID != guildID {
		return nil, nil
	}
	return feed, nil
}

func (b *Bot) handleFeedEdit(s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	var id uint
	for _, opt := range sub.Options {
		if opt.Name == "id" {
			id = uint(opt.IntValue())
		}
	}

	feed, err := b.loadGuildFeed(i.GuildID, id)
	if err != nil {
		log.Printf("Error loading feed %d: %v", id, err)
		b.respondToInteraction(s, i, "Failed to load the feed.", true)
		return
	}
	if feed == nil {
		b.respondToInteraction(s, i, fmt.Sprintf("No feed #%d in this server.", id), true)
		return
	}

	for _, opt := range sub.Options {
		switch opt.Name {
		case "channel":
			feed.ChannelID = opt.ChannelValue(s).ID
		case "url":
			url := strings.TrimSpace(opt.StringValue())
			if !isDeviantArtURL(url) {
				b.respondToInteraction(s, i, "That doesn't look like a DeviantArt URL.", true)
				return
			}
			feed.URL = url
			// A new URL means the old known set no longer applies.
			feed.KnownDeviations = nil
		case "interval":
			feed.IntervalMinutes = int(opt.IntValue())
		}
	}

	if err := b.Repo.SaveDeviantArtFeed(feed); err != nil {
		log.Printf("Error updating feed %d: %v", id, err)
		b.respondToInteraction(s, i, "Failed to update the feed.", true)
		return
	}
	b.Watcher.RestartFeed(*feed)

	b.respondToInteraction(s, i, fmt.Sprintf(
		"Feed #%d now watches <%s> in <#%s>, checking every %d minutes.",
		feed.ID, feed.URL, feed.ChannelID, feed.IntervalMinutes), true)
}

func (b *Bot) handleFeedRemove(s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	var id uint
	for _, opt := range sub.Options {
		if opt.Name == "id" {
			id = uint(opt.IntValue())
		}
	}

	feed, err := b.loadGuildFeed(i.GuildID, id)
	if err != nil {
		log.Printf("Error loading feed %d: %v", id, err)
		b.respondToInteraction(s, i, "Failed to load the feed.", true)
		return
	}
	if feed == nil {
		b.respondToInteraction(s, i, fmt.Sprintf("No feed #%d in this server.", id), true)
		return
	}

	if err := b.Repo.DeleteDeviantArtFeed(id); err != nil {
		log.Printf("Error deleting feed %d: %v", id, err)
		b.respondToInteraction(s, i, "Failed to remove the feed.", true)
		return
	}
	b.Watcher.StopFeed(id)

	b.respondToInteraction(s, i, fmt.Sprintf("Stopped watching <%s>.", feed.URL), true)
}

func (b *Bot) handleFeedTest(s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	var url string
	for _, opt := range sub.Options {
		if opt.Name == "url" {
			url = strings.TrimSpace(opt.StringValue())
		}
	}
	if !isDeviantArtURL(url) {
		b.respondToInteraction(s, i, "That doesn't look like a DeviantArt URL.", true)
		return
	}

	if err := b.deferInteraction(s, i, true); err != nil {
		log.Printf("Error deferring interaction: %v", err)
		return
	}

	d, err := b.Fetcher.GetLatestDeviation(url)
	if err != nil {
		log.Printf("Error testing feed URL %s: %v", url, err)
		b.editInteractionResponse(s, i, "Could not fetch that page. Check the URL and try again.")
		return
	}
	if d == nil {
		b.editInteractionResponse(s, i, "No deviations found at that URL.")
		return
	}

	b.editInteractionResponseEmbed(s, i, embed.CreateDeviationEmbed(d))
}
