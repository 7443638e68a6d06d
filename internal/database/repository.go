package database

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dreamingdragons/roostbot/internal/models"
)

// Repository handles database operations for the bot's collections.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository instance.
func NewRepository() *Repository {
	return &Repository{db: DB}
}

// --- Level settings ---

// GetLevelSettings retrieves the leveling configuration for a guild.
// Returns (nil, nil) if the guild has never been configured.
func (r *Repository) GetLevelSettings(guildID string) (*models.LevelSettings, error) {
	var settings models.LevelSettings
	err := WithRetry(func() error {
		return r.db.Where("guild_id = ?", guildID).First(&settings).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// UpsertLevelSettings creates or updates the leveling configuration for a guild.
func (r *Repository) UpsertLevelSettings(settings *models.LevelSettings) error {
	return WithRetry(func() error {
		return r.db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "guild_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"enabled", "xp_per_message", "xp_cooldown", "notification_channel_id",
			}),
		}).Create(settings).Error
	})
}

// SetLevelingEnabled toggles the leveling system for a guild that already has
// settings. Returns an error if no settings row exists.
func (r *Repository) SetLevelingEnabled(guildID string, enabled bool) error {
	return WithRetry(func() error {
		result := r.db.Model(&models.LevelSettings{}).
			Where("guild_id = ?", guildID).
			Update("enabled", enabled)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errors.New("leveling is not configured for this guild")
		}
		return nil
	})
}

// --- User levels ---

// GetUserLevel retrieves the XP record for a user in a guild.
// Returns (nil, nil) if the user has never earned XP.
func (r *Repository) GetUserLevel(guildID, userID string) (*models.UserLevel, error) {
	var record models.UserLevel
	err := WithRetry(func() error {
		return r.db.Where("guild_id = ? AND user_id = ?", guildID, userID).First(&record).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// CreateUserLevel inserts a new XP record and fills in its generated ID.
func (r *Repository) CreateUserLevel(record *models.UserLevel) error {
	return WithRetry(func() error {
		return r.db.Create(record).Error
	})
}

// UpdateUserLevel writes xp, level and last_message_time for an existing record.
func (r *Repository) UpdateUserLevel(record *models.UserLevel) error {
	return WithRetry(func() error {
		return r.db.Model(&models.UserLevel{}).
			Where("id = ?", record.ID).
			Updates(map[string]any{
				"xp":                record.XP,
				"level":             record.Level,
				"last_message_time": record.LastMessageTime,
			}).Error
	})
}

// UpsertUserLevel creates or overwrites a user's XP record, used by admin
// commands that set levels directly.
func (r *Repository) UpsertUserLevel(record *models.UserLevel) error {
	return WithRetry(func() error {
		return r.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "guild_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"xp", "level", "last_message_time"}),
		}).Create(record).Error
	})
}

// DeleteUserLevel removes a user's XP record.
func (r *Repository) DeleteUserLevel(guildID, userID string) error {
	return WithRetry(func() error {
		return r.db.Delete(&models.UserLevel{}, "guild_id = ? AND user_id = ?", guildID, userID).Error
	})
}

// GetTopUserLevels returns one leaderboard page, highest XP first.
func (r *Repository) GetTopUserLevels(guildID string, limit, offset int) ([]models.UserLevel, error) {
	var records []models.UserLevel
	err := WithRetry(func() error {
		return r.db.Where("guild_id = ?", guildID).
			Order("xp DESC").
			Limit(limit).
			Offset(offset).
			Find(&records).Error
	})
	return records, err
}

// CountUserLevels returns the number of users with XP records in a guild.
func (r *Repository) CountUserLevels(guildID string) (int64, error) {
	var count int64
	err := WithRetry(func() error {
		return r.db.Model(&models.UserLevel{}).Where("guild_id = ?", guildID).Count(&count).Error
	})
	return count, err
}

// GetUserRank returns the 1-based leaderboard position for the given XP total.
func (r *Repository) GetUserRank(guildID string, xp int) (int64, error) {
	var above int64
	err := WithRetry(func() error {
		return r.db.Model(&models.UserLevel{}).
			Where("guild_id = ? AND xp > ?", guildID, xp).
			Count(&above).Error
	})
	return above + 1, err
}

// --- Level rewards ---

// GetLevelRewardsUpTo returns all role rewards for thresholds at or below the
// given level, lowest level first.
func (r *Repository) GetLevelRewardsUpTo(guildID string, level int) ([]models.LevelReward, error) {
	var rewards []models.LevelReward
	err := WithRetry(func() error {
		return r.db.Where("guild_id = ? AND level <= ?", guildID, level).
			Order("level ASC").
			Find(&rewards).Error
	})
	return rewards, err
}

// UpsertLevelReward creates or replaces the role reward for a level.
func (r *Repository) UpsertLevelReward(reward *models.LevelReward) error {
	return WithRetry(func() error {
		return r.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "guild_id"}, {Name: "level"}},
			DoUpdates: clause.AssignmentColumns([]string{"role_id"}),
		}).Create(reward).Error
	})
}

// DeleteLevelRewardByRole removes the reward that grants the given role.
// Returns an error if no such reward exists.
func (r *Repository) DeleteLevelRewardByRole(guildID, roleID string) error {
	return WithRetry(func() error {
		result := r.db.Delete(&models.LevelReward{}, "guild_id = ? AND role_id = ?", guildID, roleID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errors.New("no level reward found for this role")
		}
		return nil
	})
}

// --- Reaction roles ---

// GetReactionRole looks up the role bound to an emoji on a message.
// Returns (nil, nil) if no binding exists.
func (r *Repository) GetReactionRole(guildID, messageID, emojiIdentifier string) (*models.ReactionRole, error) {
	var rr models.ReactionRole
	err := WithRetry(func() error {
		return r.db.Where("guild_id = ? AND message_id = ? AND emoji_identifier = ?",
			guildID, messageID, emojiIdentifier).First(&rr).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rr, nil
}

// --- DeviantArt feeds ---

// GetDeviantArtFeeds returns all watched feeds across all guilds.
func (r *Repository) GetDeviantArtFeeds() ([]models.DeviantArtFeed, error) {
	var feeds []models.DeviantArtFeed
	err := WithRetry(func() error {
		return r.db.Find(&feeds).Error
	})
	return feeds, err
}

// GetDeviantArtFeed returns a single feed by ID. Returns (nil, nil) if it was
// deleted since the watcher last saw it.
func (r *Repository) GetDeviantArtFeed(id uint) (*models.DeviantArtFeed, error) {
	var feed models.DeviantArtFeed
	err := WithRetry(func() error {
		return r.db.First(&feed, id).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &feed, nil
}

// GetGuildDeviantArtFeeds returns the feeds configured for one guild.
func (r *Repository) GetGuildDeviantArtFeeds(guildID string) ([]models.DeviantArtFeed, error) {
	var feeds []models.DeviantArtFeed
	err := WithRetry(func() error {
		return r.db.Where("guild_id = ?", guildID).Order("id ASC").Find(&feeds).Error
	})
	return feeds, err
}

// CreateDeviantArtFeed inserts a new feed and fills in its generated ID.
func (r *Repository) CreateDeviantArtFeed(feed *models.DeviantArtFeed) error {
	return WithRetry(func() error {
		return r.db.Create(feed).Error
	})
}

// SaveDeviantArtFeed writes back a modified feed row.
func (r *Repository) SaveDeviantArtFeed(feed *models.DeviantArtFeed) error {
	return WithRetry(func() error {
		return r.db.Save(feed).Error
	})
}

// DeleteDeviantArtFeed removes a feed. Returns an error if it does not exist.
func (r *Repository) DeleteDeviantArtFeed(id uint) error {
	return WithRetry(func() error {
		result := r.db.Delete(&models.DeviantArtFeed{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errors.New("no feed with that ID")
		}
		return nil
	})
}

// UpdateFeedCheckState records the outcome of a feed poll.
func (r *Repository) UpdateFeedCheckState(id uint, knownDeviations []string, checkedAt time.Time) error {
	return WithRetry(func() error {
		return r.db.Model(&models.DeviantArtFeed{}).
			Where("id = ?", id).
			Select("known_deviations", "last_check").
			Updates(&models.DeviantArtFeed{
				KnownDeviations: knownDeviations,
				LastCheck:       checkedAt,
			}).Error
	})
}

// --- Service status and stats ---

func (r *Repository) UpsertServiceStatus(status *models.ServiceStatus) error {
	return WithRetry(func() error {
		return r.db.Save(status).Error
	})
}

// AddToStat atomically adds delta to a named counter, creating it if needed.
func (r *Repository) AddToStat(key string, delta int64) error {
	if delta == 0 {
		return nil
	}
	return WithRetry(func() error {
		return r.db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "stat_key"}},
			DoUpdates: clause.Assignments(map[string]any{
				"stat_value": gorm.Expr("stat_value + ?", delta),
				"updated_at": time.Now(),
			}),
		}).Create(&models.SystemStat{
			StatKey:   key,
			StatValue: delta,
			UpdatedAt: time.Now(),
		}).Error
	})
}

// DeleteAllGuildData removes every record tied to a guild the bot has left.
func (r *Repository) DeleteAllGuildData(guildID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{
			&models.UserLevel{},
			&models.LevelSettings{},
			&models.LevelReward{},
			&models.ReactionRole{},
			&models.DeviantArtFeed{},
		} {
			if err := tx.Delete(model, "guild_id = ?", guildID).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
