package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamingdragons/roostbot/internal/models"
)

func setupTestRepo(t *testing.T) *Repository {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db")
	require.NoError(t, Init("sqlite", dsn))
	t.Cleanup(func() { Close() })
	return NewRepository()
}

func TestLevelSettingsRoundTrip(t *testing.T) {
	repo := setupTestRepo(t)

	missing, err := repo.GetLevelSettings("guild-1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	settings := &models.LevelSettings{
		GuildID:               "guild-1",
		Enabled:               true,
		XPPerMessage:          25,
		XPCooldown:            45,
		NotificationChannelID: "chan-1",
	}
	require.NoError(t, repo.UpsertLevelSettings(settings))

	loaded, err := repo.GetLevelSettings("guild-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.True(t, loaded.Enabled)
	assert.Equal(t, 25, loaded.XPPerMessage)
	assert.Equal(t, "chan-1", loaded.NotificationChannelID)

	// Upsert again with new values replaces, not duplicates.
	require.NoError(t, repo.UpsertLevelSettings(&models.LevelSettings{
		GuildID:               "guild-1",
		Enabled:               false,
		XPPerMessage:          30,
		XPCooldown:            45,
		NotificationChannelID: "chan-2",
	}))

	loaded, err = repo.GetLevelSettings("guild-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.False(t, loaded.Enabled)
	assert.Equal(t, 30, loaded.XPPerMessage)
	assert.Equal(t, "chan-2", loaded.NotificationChannelID)
}

func TestSetLevelingEnabled(t *testing.T) {
	repo := setupTestRepo(t)

	err := repo.SetLevelingEnabled("guild-1", true)
	assert.Error(t, err, "toggling an unconfigured guild should fail")

	require.NoError(t, repo.UpsertLevelSettings(&models.LevelSettings{
		GuildID: "guild-1",
		Enabled: true,
	}))
	require.NoError(t, repo.SetLevelingEnabled("guild-1", false))

	loaded, err := repo.GetLevelSettings("guild-1")
	require.NoError(t, err)
	assert.False(t, loaded.Enabled)
}

func TestUserLevelCreateAndUpdate(t *testing.T) {
	repo := setupTestRepo(t)

	missing, err := repo.GetUserLevel("guild-1", "user-1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	record := &models.UserLevel{
		GuildID:         "guild-1",
		UserID:          "user-1",
		XP:              50,
		Level:           0,
		LastMessageTime: time.Now().UTC(),
	}
	require.NoError(t, repo.CreateUserLevel(record))
	assert.NotZero(t, record.ID, "create fills in the generated ID")

	record.XP = 120
	record.Level = 1
	require.NoError(t, repo.UpdateUserLevel(record))

	loaded, err := repo.GetUserLevel("guild-1", "user-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, 120, loaded.XP)
	assert.Equal(t, 1, loaded.Level)
	assert.Equal(t, record.ID, loaded.ID)
}

func TestLeaderboardAndRank(t *testing.T) {
	repo := setupTestRepo(t)

	for i, xp := range []int{500, 300, 900, 100} {
		require.NoError(t, repo.CreateUserLevel(&models.UserLevel{
			GuildID: "guild-1",
			UserID:  []string{"a", "b", "c", "d"}[i],
			XP:      xp,
		}))
	}
	// A record in another guild must not leak into the leaderboard.
	require.NoError(t, repo.CreateUserLevel(&models.UserLevel{
		GuildID: "guild-2",
		UserID:  "outsider",
		XP:      9999,
	}))

	top, err := repo.GetTopUserLevels("guild-1", 3, 0)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, "c", top[0].UserID)
	assert.Equal(t, "a", top[1].UserID)
	assert.Equal(t, "b", top[2].UserID)

	count, err := repo.CountUserLevels("guild-1")
	require.NoError(t, err)
	assert.EqualValues(t, 4, count)

	rank, err := repo.GetUserRank("guild-1", 300)
	require.NoError(t, err)
	assert.EqualValues(t, 3, rank)

	rank, err = repo.GetUserRank("guild-1", 900)
	require.NoError(t, err)
	assert.EqualValues(t, 1, rank)
}

func TestLevelRewards(t *testing.T) {
	repo := setupTestRepo(t)

	require.NoError(t, repo.UpsertLevelReward(&models.LevelReward{GuildID: "guild-1", Level: 10, RoleID: "role-10"}))
	require.NoError(t, repo.UpsertLevelReward(&models.LevelReward{GuildID: "guild-1", Level: 5, RoleID: "role-5"}))
	require.NoError(t, repo.UpsertLevelReward(&models.LevelReward{GuildID: "guild-1", Level: 20, RoleID: "role-20"}))

	rewards, err := repo.GetLevelRewardsUpTo("guild-1", 10)
	require.NoError(t, err)
	require.Len(t, rewards, 2)
	assert.Equal(t, "role-5", rewards[0].RoleID)
	assert.Equal(t, "role-10", rewards[1].RoleID)

	// Replacing the role at an existing level keeps a single row.
	require.NoError(t, repo.UpsertLevelReward(&models.LevelReward{GuildID: "guild-1", Level: 5, RoleID: "role-5b"}))
	rewards, err = repo.GetLevelRewardsUpTo("guild-1", 5)
	require.NoError(t, err)
	require.Len(t, rewards, 1)
	assert.Equal(t, "role-5b", rewards[0].RoleID)

	require.NoError(t, repo.DeleteLevelRewardByRole("guild-1", "role-10"))
	assert.Error(t, repo.DeleteLevelRewardByRole("guild-1", "role-10"), "deleting twice should fail")
}

func TestReactionRoleLookup(t *testing.T) {
	repo := setupTestRepo(t)

	missing, err := repo.GetReactionRole("guild-1", "msg-1", "🎨")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.db.Create(&models.ReactionRole{
		GuildID:         "guild-1",
		ChannelID:       "chan-1",
		MessageID:       "msg-1",
		EmojiIdentifier: "🎨",
		RoleID:          "role-art",
	}).Error)

	found, err := repo.GetReactionRole("guild-1", "msg-1", "🎨")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "role-art", found.RoleID)

	other, err := repo.GetReactionRole("guild-1", "msg-1", "<:custom:12345>")
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestDeviantArtFeedState(t *testing.T) {
	repo := setupTestRepo(t)

	feed := &models.DeviantArtFeed{
		GuildID:         "guild-1",
		ChannelID:       "chan-1",
		URL:             "https://www.deviantart.com/artist",
		IntervalMinutes: 15,
		KnownDeviations: []string{"1", "2"},
	}
	require.NoError(t, repo.db.Create(feed).Error)

	checkedAt := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.UpdateFeedCheckState(feed.ID, []string{"1", "2", "3"}, checkedAt))

	loaded, err := repo.GetDeviantArtFeed(feed.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, []string{"1", "2", "3"}, loaded.KnownDeviations)
	assert.Equal(t, 15, loaded.IntervalMinutes, "untouched columns survive the partial update")

	gone, err := repo.GetDeviantArtFeed(99999)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestDeviantArtFeedCRUD(t *testing.T) {
	repo := setupTestRepo(t)

	feed := &models.DeviantArtFeed{
		GuildID:         "guild-1",
		ChannelID:       "chan-1",
		URL:             "https://www.deviantart.com/artist",
		IntervalMinutes: 30,
	}
	require.NoError(t, repo.CreateDeviantArtFeed(feed))
	assert.NotZero(t, feed.ID, "create fills in the generated ID")

	require.NoError(t, repo.CreateDeviantArtFeed(&models.DeviantArtFeed{
		GuildID:   "guild-2",
		ChannelID: "chan-2",
		URL:       "https://www.deviantart.com/other",
	}))

	feeds, err := repo.GetGuildDeviantArtFeeds("guild-1")
	require.NoError(t, err)
	require.Len(t, feeds, 1, "listing is scoped to the guild")
	assert.Equal(t, feed.ID, feeds[0].ID)

	feed.ChannelID = "chan-moved"
	feed.IntervalMinutes = 15
	require.NoError(t, repo.SaveDeviantArtFeed(feed))

	loaded, err := repo.GetDeviantArtFeed(feed.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "chan-moved", loaded.ChannelID)
	assert.Equal(t, 15, loaded.IntervalMinutes)

	require.NoError(t, repo.DeleteDeviantArtFeed(feed.ID))
	assert.Error(t, repo.DeleteDeviantArtFeed(feed.ID), "deleting twice should fail")

	gone, err := repo.GetDeviantArtFeed(feed.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestDeleteAllGuildData(t *testing.T) {
	repo := setupTestRepo(t)

	require.NoError(t, repo.UpsertLevelSettings(&models.LevelSettings{GuildID: "guild-1", Enabled: true}))
	require.NoError(t, repo.CreateUserLevel(&models.UserLevel{GuildID: "guild-1", UserID: "user-1", XP: 10}))
	require.NoError(t, repo.UpsertLevelReward(&models.LevelReward{GuildID: "guild-1", Level: 1, RoleID: "role-1"}))
	require.NoError(t, repo.UpsertLevelSettings(&models.LevelSettings{GuildID: "guild-2", Enabled: true}))

	require.NoError(t, repo.DeleteAllGuildData("guild-1"))

	settings, err := repo.GetLevelSettings("guild-1")
	require.NoError(t, err)
	assert.Nil(t, settings)

	record, err := repo.GetUserLevel("guild-1", "user-1")
	require.NoError(t, err)
	assert.Nil(t, record)

	survivor, err := repo.GetLevelSettings("guild-2")
	require.NoError(t, err)
	assert.NotNil(t, survivor, "other guilds are untouched")
}

func TestAddToStat(t *testing.T) {
	repo := setupTestRepo(t)

	require.NoError(t, repo.AddToStat("total_levelups_announced", 3))
	require.NoError(t, repo.AddToStat("total_levelups_announced", 2))
	require.NoError(t, repo.AddToStat("total_levelups_announced", 0)) // no-op

	var stat models.SystemStat
	require.NoError(t, repo.db.Where("stat_key = ?", "total_levelups_announced").First(&stat).Error)
	assert.EqualValues(t, 5, stat.StatValue)
}
