package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dreamingdragons/roostbot/internal/bot"
	"github.com/dreamingdragons/roostbot/internal/config"
	"github.com/dreamingdragons/roostbot/internal/database"
	"github.com/dreamingdragons/roostbot/internal/health"
)

const version = "1.2.0"

func main() {
	config.Load()

	log.Printf("Starting RoostBot v%s", version)

	if err := database.Init(config.DatabaseType, config.GetDatabaseConnectionString()); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	repo := database.NewRepository()

	stats := health.NewAggregator(repo)
	stats.Start(30 * time.Second)

	discordBot, err := bot.New(repo, stats)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	if err := discordBot.Start(); err != nil {
		log.Fatalf("Failed to start bot: %v", err)
	}
	log.Println("Bot is now running. Press CTRL-C to exit.")

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
	<-sc

	log.Println("Shutting down...")
	discordBot.Stop()
	stats.Stop()
}
