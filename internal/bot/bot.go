package bot

import (
	"fmt"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/dreamingdragons/roostbot/internal/config"
	"github.com/dreamingdragons/roostbot/internal/database"
	"github.com/dreamingdragons/roostbot/internal/deviantart"
	"github.com/dreamingdragons/roostbot/internal/health"
	"github.com/dreamingdragons/roostbot/internal/leveling"
	"github.com/dreamingdragons/roostbot/internal/models"
	"github.com/dreamingdragons/roostbot/internal/watcher"
)

type Bot struct {
	Session  *discordgo.Session
	Repo     *database.Repository
	Leveling *leveling.Service
	Watcher  *watcher.Watcher
	Fetcher  watcher.Fetcher
	Stats    *health.Aggregator

	stopHeartbeat chan struct{}
}

func New(repo *database.Repository, stats *health.Aggregator) (*Bot, error) {
	discord, err := discordgo.New("Bot " + config.DiscordToken)
	if err != nil {
		return nil, err
	}

	discord.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMessages |
		discordgo.IntentGuildMessageReactions |
		discordgo.IntentGuildMembers |
		discordgo.IntentMessageContent

	bot := &Bot{
		Session:       discord,
		Repo:          repo,
		Stats:         stats,
		stopHeartbeat: make(chan struct{}),
	}

	bot.Leveling = leveling.NewService(repo, &sessionGateway{session: discord})
	bot.Fetcher = deviantart.NewClient()
	bot.Watcher = watcher.New(discord, repo, bot.Fetcher, stats, config.FeedPostsPerSecond)
	bot.Watcher.InitialDelay = time.Duration(config.FeedInitialDelaySeconds) * time.Second

	bot.registerHandlers()

	return bot, nil
}

func (b *Bot) Start() error {
	err := b.Session.Open()
	if err != nil {
		return err
	}

	b.Leveling.Start()
	if err := b.Watcher.Start(); err != nil {
		log.Printf("Error starting feed watcher: %v", err)
	}
	go b.heartbeat()

	return nil
}

func (b *Bot) Stop() {
	close(b.stopHeartbeat)
	b.Watcher.Stop()
	b.Leveling.Stop()
	b.Session.Close()
}

func (b *Bot) registerHandlers() {
	b.Session.AddHandler(b.ready)
	b.Session.AddHandler(b.interactionCreate)
	b.Session.AddHandler(b.messageCreate)
	b.Session.AddHandler(b.messageReactionAdd)
	b.Session.AddHandler(b.messageReactionRemove)
	b.Session.AddHandler(b.guildDelete)
}

func (b *Bot) guildDelete(s *discordgo.Session, event *discordgo.GuildDelete) {
	if event.Unavailable {
		log.Printf("Guild %s became unavailable.", event.ID)
		return
	}

	log.Printf("Bot removed from guild: %s. Cleaning up associated data.", event.ID)
	if err := b.Repo.DeleteAllGuildData(event.ID); err != nil {
		log.Printf("Error deleting data for guild %s: %v", event.ID, err)
		return
	}
	b.Leveling.Invalidate(event.ID)
	log.Printf("Successfully cleaned up data for guild %s", event.ID)
}

func (b *Bot) heartbeat() {
	ticker := time.NewTicker(2 * time.Minute)
	defer ticker.Stop()

	for {
		status := &models.ServiceStatus{
			ServiceName:   "discord_bot",
			Status:        "operational",
			LastHeartbeat: time.Now(),
		}
		if err := b.Repo.UpsertServiceStatus(status); err != nil {
			log.Printf("Error sending heartbeat: %v", err)
		}

		select {
		case <-ticker.C:
		case <-b.stopHeartbeat:
			return
		}
	}
}

func (b *Bot) updateBotStatus() {
	serverCount := len(b.Session.State.Guilds)
	status := fmt.Sprintf("Watching %d servers", serverCount)
	err := b.Session.UpdateStatusComplex(discordgo.UpdateStatusData{
		Activities: []*discordgo.Activity{
			{
				Name: status,
				Type: discordgo.ActivityTypeWatching,
			},
		},
	})
	if err != nil {
		log.Printf("Error updating status: %v", err)
	}
}
