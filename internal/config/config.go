package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

var (
	DiscordToken string
	BotOwnerID   string

	DatabaseType string
	SQLitePath   string
	PostgresDSN  string

	FeedInitialDelaySeconds int
	FeedPostsPerSecond      float64
)

// Load reads configuration from the environment. A .env file is honored if
// present but not required.
func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	DiscordToken = os.Getenv("DISCORD_BOT_TOKEN")
	if DiscordToken == "" {
		log.Fatal("DISCORD_BOT_TOKEN is not set")
	}

	BotOwnerID = os.Getenv("BOT_OWNER_ID")

	DatabaseType = getEnv("DATABASE_TYPE", "sqlite")
	SQLitePath = getEnv("SQLITE_PATH", "roostbot.db")
	PostgresDSN = os.Getenv("POSTGRES_DSN")

	FeedInitialDelaySeconds = getEnvInt("FEED_INITIAL_DELAY_SECONDS", 30)
	FeedPostsPerSecond = getEnvFloat("FEED_POSTS_PER_SECOND", 1)
}

// GetDatabaseConnectionString returns the DSN for the configured database type.
func GetDatabaseConnectionString() string {
	if DatabaseType == "postgres" {
		return PostgresDSN
	}
	return SQLitePath
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid value for %s: %q, using default %d", key, value, fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("Invalid value for %s: %q, using default %g", key, value, fallback)
		return fallback
	}
	return f
}
