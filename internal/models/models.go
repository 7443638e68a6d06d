package models

import (
	"time"
)

// LevelSettings holds the per-guild leveling configuration. At most one row
// exists per guild.
type LevelSettings struct {
	ID                    uint   `gorm:"primaryKey"`
	GuildID               string `gorm:"uniqueIndex;column:guild_id"`
	Enabled               bool   `gorm:"column:enabled"`
	XPPerMessage          int    `gorm:"column:xp_per_message"`
	XPCooldown            int    `gorm:"column:xp_cooldown"` // seconds
	NotificationChannelID string `gorm:"column:notification_channel_id"`
}

func (LevelSettings) TableName() string {
	return "level_settings"
}

// UserLevel is the durable XP record for a user in a guild. Level is derived
// from XP and rewritten on every persist.
type UserLevel struct {
	ID              uint      `gorm:"primaryKey"`
	GuildID         string    `gorm:"uniqueIndex:idx_user_levels_guild_user;column:guild_id"`
	UserID          string    `gorm:"uniqueIndex:idx_user_levels_guild_user;column:user_id"`
	XP              int       `gorm:"column:xp"`
	Level           int       `gorm:"column:level"`
	LastMessageTime time.Time `gorm:"column:last_message_time"`
}

func (UserLevel) TableName() string {
	return "user_levels"
}

// LevelReward maps a level threshold to a role granted on reaching it.
type LevelReward struct {
	ID      uint   `gorm:"primaryKey"`
	GuildID string `gorm:"uniqueIndex:idx_level_rewards_guild_level;column:guild_id"`
	Level   int    `gorm:"uniqueIndex:idx_level_rewards_guild_level;column:level"`
	RoleID  string `gorm:"column:role_id"`
}

func (LevelReward) TableName() string {
	return "level_rewards"
}

// ReactionRole binds an emoji on a specific message to a role.
type ReactionRole struct {
	ID              uint   `gorm:"primaryKey"`
	GuildID         string `gorm:"index;column:guild_id"`
	ChannelID       string `gorm:"column:channel_id"`
	MessageID       string `gorm:"index;column:message_id"`
	EmojiIdentifier string `gorm:"column:emoji_identifier"`
	RoleID          string `gorm:"column:role_id"`
}

func (ReactionRole) TableName() string {
	return "reaction_roles"
}

// DeviantArtFeed is a watched gallery or group page. KnownDeviations keeps the
// last 100 posted deviation IDs for de-duplication.
type DeviantArtFeed struct {
	ID              uint      `gorm:"primaryKey"`
	GuildID         string    `gorm:"index;column:guild_id"`
	ChannelID       string    `gorm:"column:channel_id"`
	URL             string    `gorm:"column:url"`
	IntervalMinutes int       `gorm:"column:interval_minutes"`
	KnownDeviations []string  `gorm:"serializer:json;column:known_deviations"`
	LastCheck       time.Time `gorm:"column:last_check"`
}

func (DeviantArtFeed) TableName() string {
	return "deviantart_feeds"
}

type ServiceStatus struct {
	ServiceName   string    `gorm:"primaryKey;column:service_name"`
	Status        string    `gorm:"column:status"`
	LastHeartbeat time.Time `gorm:"column:last_heartbeat"`
}

func (ServiceStatus) TableName() string {
	return "service_status"
}

// SystemStat holds key-value pairs for system-wide counters.
type SystemStat struct {
	StatKey   string    `gorm:"primaryKey;column:stat_key"`
	StatValue int64     `gorm:"column:stat_value"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (SystemStat) TableName() string {
	return "system_stats"
}
