package leveling

import (
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/dreamingdragons/roostbot/internal/models"
)

const (
	defaultXPPerMessage = 20
	defaultCooldown     = 60 * time.Second

	settingsTTL   = 15 * time.Minute
	ledgerTTL     = 30 * time.Minute
	flushInterval = time.Minute
)

// Store is the persistence surface the leveling service depends on.
type Store interface {
	GetLevelSettings(guildID string) (*models.LevelSettings, error)
	GetUserLevel(guildID, userID string) (*models.UserLevel, error)
	CreateUserLevel(record *models.UserLevel) error
	UpdateUserLevel(record *models.UserLevel) error
	GetLevelRewardsUpTo(guildID string, level int) ([]models.LevelReward, error)
}

// Gateway is the slice of the chat platform the service talks to.
type Gateway interface {
	SendChannelMessage(channelID, content string) error
	MemberHasRole(guildID, userID, roleID string) (bool, error)
	GrantRole(guildID, userID, roleID string) error
}

// Result describes the outcome of a successful XP award.
type Result struct {
	LeveledUp bool
	OldLevel  int
	NewLevel  int
	XPGained  int
}

type cachedSettings struct {
	settings *models.LevelSettings // nil means the guild has no settings row
	fetched  time.Time
}

type ledgerEntry struct {
	record    *models.UserLevel
	cacheTime time.Time
	lastSync  time.Time
}

// Service owns the in-memory XP ledger: a write-behind cache over the durable
// user_levels records, with per-guild settings caching, cooldown gating and
// level-up detection. One instance per process; all maps are guarded by mu
// because message handlers and the flush ticker run on separate goroutines.
type Service struct {
	store   Store
	gateway Gateway

	mu       sync.Mutex
	settings map[string]cachedSettings // keyed by guildID
	ledger   map[string]*ledgerEntry   // keyed by guildID:userID
	pending  map[string]*ledgerEntry   // dirty entries awaiting persist

	// Injectable for tests.
	now func() time.Time
	rng *rand.Rand

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewService creates a leveling service. Call Start to launch the write-behind
// flusher and Stop on shutdown.
func NewService(store Store, gateway Gateway) *Service {
	return &Service{
		store:    store,
		gateway:  gateway,
		settings: make(map[string]cachedSettings),
		ledger:   make(map[string]*ledgerEntry),
		pending:  make(map[string]*ledgerEntry),
		now:      time.Now,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func cacheKey(guildID, userID string) string {
	return guildID + ":" + userID
}

// AddXP awards XP for one inbound message. It returns (nil, nil) when leveling
// is disabled for the guild or the user is on cooldown, and an error when the
// store is unreachable. On a level-up the entry is persisted synchronously
// before the notification and role rewards fire.
func (s *Service) AddXP(userID, guildID string) (*Result, error) {
	settings, err := s.getSettings(guildID, false)
	if err != nil {
		return nil, err
	}
	if settings == nil || !settings.Enabled {
		return nil, nil
	}

	xpPerMessage := settings.XPPerMessage
	if xpPerMessage <= 0 {
		xpPerMessage = defaultXPPerMessage
	}
	cooldown := time.Duration(settings.XPCooldown) * time.Second
	if settings.XPCooldown <= 0 {
		cooldown = defaultCooldown
	}

	// Random 75-125% of the base amount, truncated down.
	xpGained := int(float64(xpPerMessage) * (0.75 + s.rng.Float64()*0.5))

	key := cacheKey(guildID, userID)
	entry, err := s.getLedgerEntry(key, guildID, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()

	s.mu.Lock()
	if now.Sub(entry.record.LastMessageTime) < cooldown {
		s.mu.Unlock()
		return nil, nil
	}

	oldLevel := entry.record.Level
	entry.record.XP += xpGained
	entry.record.LastMessageTime = now
	entry.record.Level = LevelFromXP(entry.record.XP)
	newLevel := entry.record.Level
	// While a flush is draining, a dirty entry sits outside the pending set;
	// refreshing the TTL on every mutation keeps it from being mistaken for
	// stale and rehydrated over the unpersisted delta.
	entry.cacheTime = now

	// Re-registering an already-pending entry is harmless: same object.
	s.pending[key] = entry
	s.mu.Unlock()

	result := &Result{
		LeveledUp: newLevel > oldLevel,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		XPGained:  xpGained,
	}

	if !result.LeveledUp {
		return result, nil
	}

	// Losing a level-up persist while the user already got the announcement
	// and role would be visibly inconsistent, so flush now and retry once
	// before surfacing the failure.
	if err := s.flushEntry(key, entry); err != nil {
		log.Printf("[Leveling] Level-up flush failed for %s, retrying: %v", key, err)
		if err := s.flushEntry(key, entry); err != nil {
			return nil, fmt.Errorf("persisting level-up for %s: %w", key, err)
		}
	}

	s.announceLevelUp(settings, userID, newLevel)
	s.GrantRewardsUpTo(userID, guildID, newLevel)

	return result, nil
}

// getLedgerEntry returns the cached entry for a user, hydrating from the store
// on a miss or after the 30 minute TTL.
func (s *Service) getLedgerEntry(key, guildID, userID string) (*ledgerEntry, error) {
	s.mu.Lock()
	entry, ok := s.ledger[key]
	if ok && s.now().Sub(entry.cacheTime) <= ledgerTTL {
		s.mu.Unlock()
		return entry, nil
	}
	// A dirty entry is never stale-dropped: its in-memory XP is ahead of the
	// store, so rehydrating would lose the delta.
	if _, dirty := s.pending[key]; dirty {
		s.mu.Unlock()
		return entry, nil
	}
	s.mu.Unlock()

	record, err := s.store.GetUserLevel(guildID, userID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		record = &models.UserLevel{GuildID: guildID, UserID: userID}
	} else {
		record.Level = LevelFromXP(record.XP)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Two concurrent misses may both hydrate; last write wins. Both read the
	// same source of truth, so this is benign.
	entry = &ledgerEntry{record: record, cacheTime: s.now()}
	s.ledger[key] = entry
	return entry, nil
}

// getSettings returns the guild's leveling settings through the 15 minute
// cache. A cached nil is meaningful: the guild has no settings row.
func (s *Service) getSettings(guildID string, forceRefresh bool) (*models.LevelSettings, error) {
	s.mu.Lock()
	if cached, ok := s.settings[guildID]; ok && !forceRefresh && s.now().Sub(cached.fetched) < settingsTTL {
		s.mu.Unlock()
		return cached.settings, nil
	}
	s.mu.Unlock()

	settings, err := s.store.GetLevelSettings(guildID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.settings[guildID] = cachedSettings{settings: settings, fetched: s.now()}
	s.mu.Unlock()
	return settings, nil
}

// Invalidate drops the cached settings for a guild. Admin commands call this
// after every settings mutation so staleness stays below the 15 minute TTL.
func (s *Service) Invalidate(guildID string) {
	s.mu.Lock()
	delete(s.settings, guildID)
	s.mu.Unlock()
}

// InvalidateUser drops a user's ledger entry, including any pending write.
// Admin commands that reset or overwrite a user's record call this.
func (s *Service) InvalidateUser(guildID, userID string) {
	key := cacheKey(guildID, userID)
	s.mu.Lock()
	delete(s.ledger, key)
	delete(s.pending, key)
	s.mu.Unlock()
}

// Start launches the write-behind flusher.
func (s *Service) Start() {
	go s.run()
}

// Stop tears down the flusher after one final best-effort flush.
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	<-s.done
}

func (s *Service) run() {
	defer close(s.done)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Flush()
			s.sweep()
		case <-s.stop:
			s.Flush()
			return
		}
	}
}

// Flush drains the pending set and persists each entry. Failed entries are
// re-queued for the next tick, so delivery is at-least-once.
func (s *Service) Flush() {
	s.mu.Lock()
	batch := s.pending
	s.pending = make(map[string]*ledgerEntry, len(batch))
	s.mu.Unlock()

	for key, entry := range batch {
		if err := s.persist(entry); err != nil {
			log.Printf("[Leveling] Failed to persist XP for %s, re-queuing: %v", key, err)
			s.mu.Lock()
			if _, exists := s.pending[key]; !exists {
				s.pending[key] = entry
			}
			s.mu.Unlock()
		}
	}
}

// flushEntry persists one entry immediately and clears it from the pending
// set, unless the entry was mutated again while the write was in flight.
func (s *Service) flushEntry(key string, entry *ledgerEntry) error {
	written, err := s.persistSnapshot(entry)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if entry.record.XP == written.XP && entry.record.LastMessageTime.Equal(written.LastMessageTime) {
		delete(s.pending, key)
	}
	s.mu.Unlock()
	return nil
}

func (s *Service) persist(entry *ledgerEntry) error {
	_, err := s.persistSnapshot(entry)
	return err
}

// persistSnapshot writes the entry's current state to the store. A record
// without an ID is created, and the generated ID is captured so the next
// flush of the same entry becomes an update rather than a duplicate create.
func (s *Service) persistSnapshot(entry *ledgerEntry) (models.UserLevel, error) {
	s.mu.Lock()
	snapshot := *entry.record
	s.mu.Unlock()

	if snapshot.ID == 0 {
		if err := s.store.CreateUserLevel(&snapshot); err != nil {
			return snapshot, err
		}
		s.mu.Lock()
		entry.record.ID = snapshot.ID
		entry.lastSync = s.now()
		s.mu.Unlock()
		return snapshot, nil
	}

	if err := s.store.UpdateUserLevel(&snapshot); err != nil {
		return snapshot, err
	}
	s.mu.Lock()
	entry.lastSync = s.now()
	s.mu.Unlock()
	return snapshot, nil
}

// sweep evicts expired cache entries. Entries with unflushed writes are never
// evicted, regardless of age.
func (s *Service) sweep() {
	now := s.now()
	s.mu.Lock()
	for key, entry := range s.ledger {
		if _, dirty := s.pending[key]; dirty {
			continue
		}
		if now.Sub(entry.cacheTime) > ledgerTTL {
			delete(s.ledger, key)
		}
	}
	for guildID, cached := range s.settings {
		if now.Sub(cached.fetched) > settingsTTL {
			delete(s.settings, guildID)
		}
	}
	s.mu.Unlock()
}

// announceLevelUp is best-effort: failures are logged, never propagated.
func (s *Service) announceLevelUp(settings *models.LevelSettings, userID string, newLevel int) {
	if settings.NotificationChannelID == "" {
		return
	}
	content := fmt.Sprintf("🎉 Congratulations <@%s>! You leveled up to **Level %d**!", userID, newLevel)
	if err := s.gateway.SendChannelMessage(settings.NotificationChannelID, content); err != nil {
		log.Printf("[Leveling] Error sending level-up notification for user %s: %v", userID, err)
	}
}
