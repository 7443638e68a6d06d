package health

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/dreamingdragons/roostbot/internal/database"
)

// Aggregator holds notification counters in memory to reduce database writes.
type Aggregator struct {
	repo            *database.Repository
	levelUps        atomic.Uint64
	deviationsPosts atomic.Uint64

	stop chan struct{}
}

// NewAggregator creates a new stats aggregator.
func NewAggregator(repo *database.Repository) *Aggregator {
	return &Aggregator{
		repo: repo,
		stop: make(chan struct{}),
	}
}

// RecordLevelUp increments the in-memory level-up counter. Non-blocking.
func (a *Aggregator) RecordLevelUp() {
	a.levelUps.Add(1)
}

// RecordDeviationPost increments the in-memory feed-post counter. Non-blocking.
func (a *Aggregator) RecordDeviationPost() {
	a.deviationsPosts.Add(1)
}

// FlushToDB writes the aggregated counts to the database and resets them.
func (a *Aggregator) FlushToDB() {
	levelUps := a.levelUps.Swap(0)
	posts := a.deviationsPosts.Swap(0)

	if err := a.repo.AddToStat("total_levelups_announced", int64(levelUps)); err != nil {
		log.Printf("ERROR: Failed to flush level-up stats to DB: %v", err)
	}
	if err := a.repo.AddToStat("total_deviations_posted", int64(posts)); err != nil {
		log.Printf("ERROR: Failed to flush deviation stats to DB: %v", err)
	}
}

// Start launches a background goroutine that periodically flushes the
// counters to the database.
func (a *Aggregator) Start(interval time.Duration) {
	log.Printf("Stats aggregator started with a %s flush interval", interval)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				a.FlushToDB()
			case <-a.stop:
				a.FlushToDB()
				return
			}
		}
	}()
}

// Stop halts the flush loop after one final flush.
func (a *Aggregator) Stop() {
	close(a.stop)
}
