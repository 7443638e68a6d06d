package watcher

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamingdragons/roostbot/internal/deviantart"
	"github.com/dreamingdragons/roostbot/internal/models"
)

type fakeFetcher struct {
	deviations []*deviantart.Deviation
	err        error
}

func (f *fakeFetcher) GetLatestDeviation(url string) (*deviantart.Deviation, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.deviations) == 0 {
		return nil, nil
	}
	return f.deviations[0], nil
}

func (f *fakeFetcher) GetRecentDeviations(url string, limit int, fullDetails bool) ([]*deviantart.Deviation, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.deviations) > limit {
		return f.deviations[:limit], nil
	}
	return f.deviations, nil
}

type fakeFeedStore struct {
	mu    sync.Mutex
	feeds map[uint]*models.DeviantArtFeed

	updatedKnown []string
	updateCalls  int
}

func newFakeFeedStore(feeds ...*models.DeviantArtFeed) *fakeFeedStore {
	store := &fakeFeedStore{feeds: make(map[uint]*models.DeviantArtFeed)}
	for _, feed := range feeds {
		store.feeds[feed.ID] = feed
	}
	return store
}

func (f *fakeFeedStore) GetDeviantArtFeeds() ([]models.DeviantArtFeed, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.DeviantArtFeed
	for _, feed := range f.feeds {
		out = append(out, *feed)
	}
	return out, nil
}

func (f *fakeFeedStore) GetDeviantArtFeed(id uint) (*models.DeviantArtFeed, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	feed, ok := f.feeds[id]
	if !ok {
		return nil, nil
	}
	copied := *feed
	return &copied, nil
}

func (f *fakeFeedStore) UpdateFeedCheckState(id uint, knownDeviations []string, checkedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	f.updatedKnown = knownDeviations
	if feed, ok := f.feeds[id]; ok {
		feed.KnownDeviations = knownDeviations
		feed.LastCheck = checkedAt
	}
	return nil
}

type fakeSender struct {
	mu     sync.Mutex
	embeds []*discordgo.MessageEmbed
}

func (f *fakeSender) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.embeds = append(f.embeds, embed)
	return &discordgo.Message{}, nil
}

type fakeStats struct {
	mu    sync.Mutex
	posts int
}

func (f *fakeStats) RecordDeviationPost() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts++
}

func testDeviation(id, title string) *deviantart.Deviation {
	return &deviantart.Deviation{
		ID:       id,
		Title:    title,
		URL:      fmt.Sprintf("https://www.deviantart.com/artist/art/%s-%s", title, id),
		ImageURL: "https://images.example/" + id + ".png",
		Author:   deviantart.Author{Name: "artist"},
	}
}

func newTestWatcher(store FeedStore, fetcher Fetcher) (*Watcher, *fakeSender, *fakeStats) {
	sender := &fakeSender{}
	stats := &fakeStats{}
	w := New(sender, store, fetcher, stats, 1000) // effectively no post spacing
	return w, sender, stats
}

func TestCheckFeedPostsOnlyNewDeviations(t *testing.T) {
	store := newFakeFeedStore(&models.DeviantArtFeed{
		ID:              1,
		GuildID:         "guild-1",
		ChannelID:       "chan-1",
		URL:             "https://www.deviantart.com/artist",
		KnownDeviations: []string{"100", "101"},
	})
	fetcher := &fakeFetcher{deviations: []*deviantart.Deviation{
		testDeviation("103", "newest"),
		testDeviation("102", "newer"),
		testDeviation("101", "seen"),
		testDeviation("100", "seen-too"),
	}}
	w, sender, stats := newTestWatcher(store, fetcher)

	w.CheckFeed(1)

	require.Len(t, sender.embeds, 2)
	// Fetch order is newest first; posts go out oldest first.
	assert.Equal(t, "newer", sender.embeds[0].Title)
	assert.Equal(t, "newest", sender.embeds[1].Title)
	assert.Equal(t, 2, stats.posts)
	assert.Equal(t, []string{"100", "101", "103", "102"}, store.updatedKnown)
}

func TestCheckFeedAllKnown(t *testing.T) {
	store := newFakeFeedStore(&models.DeviantArtFeed{
		ID:              1,
		ChannelID:       "chan-1",
		URL:             "https://www.deviantart.com/artist",
		KnownDeviations: []string{"100", "101"},
	})
	fetcher := &fakeFetcher{deviations: []*deviantart.Deviation{
		testDeviation("101", "seen"),
		testDeviation("100", "seen-too"),
	}}
	w, sender, _ := newTestWatcher(store, fetcher)

	w.CheckFeed(1)

	assert.Empty(t, sender.embeds)
	assert.Equal(t, 1, store.updateCalls, "last check time is still recorded")
}

func TestCheckFeedTrimsKnownSet(t *testing.T) {
	known := make([]string, knownDeviationsLimit)
	for i := range known {
		known[i] = fmt.Sprintf("old-%d", i)
	}
	store := newFakeFeedStore(&models.DeviantArtFeed{
		ID:              1,
		ChannelID:       "chan-1",
		URL:             "https://www.deviantart.com/artist",
		KnownDeviations: known,
	})
	fetcher := &fakeFetcher{deviations: []*deviantart.Deviation{
		testDeviation("fresh-1", "fresh"),
	}}
	w, _, _ := newTestWatcher(store, fetcher)

	w.CheckFeed(1)

	require.Len(t, store.updatedKnown, knownDeviationsLimit)
	assert.Equal(t, "fresh-1", store.updatedKnown[knownDeviationsLimit-1])
	assert.NotContains(t, store.updatedKnown, "old-0", "oldest entry is trimmed")
}

func TestCheckFeedStopsDeletedFeed(t *testing.T) {
	store := newFakeFeedStore()
	fetcher := &fakeFetcher{}
	w, sender, _ := newTestWatcher(store, fetcher)

	w.mu.Lock()
	w.stops[42] = make(chan struct{})
	w.mu.Unlock()

	w.CheckFeed(42)

	assert.Empty(t, sender.embeds)
	w.mu.Lock()
	_, running := w.stops[42]
	w.mu.Unlock()
	assert.False(t, running, "checker for a deleted feed is stopped")
}

func TestRestartFeedReplacesChecker(t *testing.T) {
	feed := models.DeviantArtFeed{
		ID:              1,
		ChannelID:       "chan-1",
		URL:             "https://www.deviantart.com/artist",
		IntervalMinutes: 30,
	}
	store := newFakeFeedStore(&feed)
	w, _, _ := newTestWatcher(store, &fakeFetcher{})
	w.InitialDelay = time.Hour // keep the checker goroutines idle

	w.RestartFeed(feed)
	w.mu.Lock()
	_, running := w.stops[1]
	w.mu.Unlock()
	assert.True(t, running, "restarting an unstarted feed launches its checker")

	w.RestartFeed(feed)
	assert.True(t, w.StopFeed(1))
	assert.False(t, w.StopFeed(1), "stop channel is replaced, not duplicated")
}

func TestCheckFeedFetchErrorKeepsKnownSet(t *testing.T) {
	store := newFakeFeedStore(&models.DeviantArtFeed{
		ID:              1,
		ChannelID:       "chan-1",
		URL:             "https://www.deviantart.com/artist",
		KnownDeviations: []string{"100"},
	})
	fetcher := &fakeFetcher{err: fmt.Errorf("deviantart unreachable")}
	w, sender, _ := newTestWatcher(store, fetcher)

	w.CheckFeed(1)

	assert.Empty(t, sender.embeds)
	assert.Zero(t, store.updateCalls, "a failed fetch must not rewrite the known set")
}

func TestDedupeAuthorName(t *testing.T) {
	assert.Equal(t, "Artist", dedupeAuthorName("ArtistArtist"))
	assert.Equal(t, "artist", dedupeAuthorName("artistArtist"))
	assert.Equal(t, "Artist", dedupeAuthorName("Artist"))
	assert.Equal(t, "AbcAbd", dedupeAuthorName("AbcAbd"))
	assert.Equal(t, "", dedupeAuthorName(""))
}
