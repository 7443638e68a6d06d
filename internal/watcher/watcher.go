package watcher

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"

	"github.com/dreamingdragons/roostbot/internal/deviantart"
	"github.com/dreamingdragons/roostbot/internal/embed"
	"github.com/dreamingdragons/roostbot/internal/models"
)

const knownDeviationsLimit = 100

// Fetcher retrieves deviations from DeviantArt pages.
type Fetcher interface {
	GetLatestDeviation(url string) (*deviantart.Deviation, error)
	GetRecentDeviations(url string, limit int, fullDetails bool) ([]*deviantart.Deviation, error)
}

// FeedStore is the persistence surface the watcher depends on.
type FeedStore interface {
	GetDeviantArtFeeds() ([]models.DeviantArtFeed, error)
	GetDeviantArtFeed(id uint) (*models.DeviantArtFeed, error)
	UpdateFeedCheckState(id uint, knownDeviations []string, checkedAt time.Time) error
}

// Sender posts embeds to channels. *discordgo.Session satisfies it.
type Sender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// StatsRecorder counts successfully posted deviations.
type StatsRecorder interface {
	RecordDeviationPost()
}

// Watcher polls configured DeviantArt feeds on their individual intervals and
// posts new deviations to their channels. A shared rate limiter spaces out
// posts across all feeds.
type Watcher struct {
	sender  Sender
	store   FeedStore
	fetcher Fetcher
	stats   StatsRecorder
	limiter *rate.Limiter

	// InitialDelay postpones the first check of each feed after startup so
	// the gateway connection settles first.
	InitialDelay time.Duration

	mu    sync.Mutex
	stops map[uint]chan struct{}
}

func New(sender Sender, store FeedStore, fetcher Fetcher, stats StatsRecorder, postsPerSecond float64) *Watcher {
	if postsPerSecond <= 0 {
		postsPerSecond = 1
	}
	return &Watcher{
		sender:       sender,
		store:        store,
		fetcher:      fetcher,
		stats:        stats,
		limiter:      rate.NewLimiter(rate.Limit(postsPerSecond), 1),
		InitialDelay: 30 * time.Second,
		stops:        make(map[uint]chan struct{}),
	}
}

// Start loads all feeds and launches one polling goroutine per feed.
func (w *Watcher) Start() error {
	feeds, err := w.store.GetDeviantArtFeeds()
	if err != nil {
		return err
	}

	log.Printf("[Watcher] Found %d DeviantArt feeds to monitor", len(feeds))
	for _, feed := range feeds {
		w.startFeed(feed)
	}
	return nil
}

// Stop halts every feed checker.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, stop := range w.stops {
		close(stop)
		delete(w.stops, id)
	}
}

// StopFeed halts one feed checker. Returns false if it was not running.
func (w *Watcher) StopFeed(feedID uint) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	stop, ok := w.stops[feedID]
	if !ok {
		return false
	}
	close(stop)
	delete(w.stops, feedID)
	return true
}

// RestartFeed stops and relaunches a feed checker, picking up a changed URL,
// channel or interval.
func (w *Watcher) RestartFeed(feed models.DeviantArtFeed) {
	w.StopFeed(feed.ID)
	w.startFeed(feed)
}

func (w *Watcher) startFeed(feed models.DeviantArtFeed) {
	interval := time.Duration(feed.IntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 30 * time.Minute
	}

	stop := make(chan struct{})
	w.mu.Lock()
	w.stops[feed.ID] = stop
	w.mu.Unlock()

	log.Printf("[Watcher] Checking feed %d (%s) every %s", feed.ID, feed.URL, interval)

	go func() {
		select {
		case <-time.After(w.InitialDelay):
			w.CheckFeed(feed.ID)
		case <-stop:
			return
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				w.CheckFeed(feed.ID)
			case <-stop:
				return
			}
		}
	}()
}

// CheckFeed polls one feed: fetches the most recent deviations, diffs them
// against the known set, persists the updated set and posts anything new,
// oldest first. Errors are logged; a failed check is retried on the next tick.
func (w *Watcher) CheckFeed(feedID uint) {
	// Re-read the row so edits made since startup are honored.
	feed, err := w.store.GetDeviantArtFeed(feedID)
	if err != nil {
		log.Printf("[Watcher] Error loading feed %d: %v", feedID, err)
		return
	}
	if feed == nil {
		log.Printf("[Watcher] Feed %d no longer exists, stopping its checker", feedID)
		w.StopFeed(feedID)
		return
	}

	recent, err := w.fetcher.GetRecentDeviations(feed.URL, 5, true)
	if err != nil {
		log.Printf("[Watcher] Error fetching deviations for feed %d: %v", feed.ID, err)
		return
	}
	if len(recent) == 0 {
		return
	}

	known := make(map[string]bool, len(feed.KnownDeviations))
	for _, id := range feed.KnownDeviations {
		known[id] = true
	}

	updatedKnown := feed.KnownDeviations
	var fresh []*deviantart.Deviation
	for _, d := range recent {
		if known[d.ID] {
			continue
		}
		known[d.ID] = true
		updatedKnown = append(updatedKnown, d.ID)
		fresh = append(fresh, d)
	}

	// Keep the known set from growing without bound.
	if len(updatedKnown) > knownDeviationsLimit {
		updatedKnown = updatedKnown[len(updatedKnown)-knownDeviationsLimit:]
	}

	if err := w.store.UpdateFeedCheckState(feed.ID, updatedKnown, time.Now()); err != nil {
		log.Printf("[Watcher] Error updating feed %d state: %v", feed.ID, err)
		return
	}

	if len(fresh) == 0 {
		return
	}
	log.Printf("[Watcher] Found %d new deviations for feed %d", len(fresh), feed.ID)

	// recent is newest first; post oldest first so the channel reads in order.
	for i := len(fresh) - 1; i >= 0; i-- {
		if err := w.limiter.Wait(context.Background()); err != nil {
			return
		}
		w.postDeviation(feed, fresh[i])
	}
}

func (w *Watcher) postDeviation(feed *models.DeviantArtFeed, d *deviantart.Deviation) {
	d.Author.Name = dedupeAuthorName(d.Author.Name)

	if _, err := w.sender.ChannelMessageSendEmbed(feed.ChannelID, embed.CreateDeviationEmbed(d)); err != nil {
		log.Printf("[Watcher] Error posting deviation %s for feed %d: %v", d.ID, feed.ID, err)
		return
	}
	if w.stats != nil {
		w.stats.RecordDeviationPost()
	}
}

// dedupeAuthorName undoes a scraping artifact where the author name appears
// doubled ("ArtistArtist" -> "Artist").
func dedupeAuthorName(name string) string {
	if name == "" || len(name)%2 != 0 {
		return name
	}
	half := len(name) / 2
	if strings.EqualFold(name[:half], name[half:]) {
		return name[:half]
	}
	return name
}
