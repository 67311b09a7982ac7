package views

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/typesprint/go/internal/models"
	"github.com/mcdev12/typesprint/go/internal/realtime"
)

// StatsProvider is the pull side for the aggregate snapshot.
type StatsProvider interface {
	GetStats(ctx context.Context) (*models.AggregateStats, error)
}

// StatsCache holds the latest whole-system snapshot. stats_update
// replaces every field except OnlineUsers, which travels on its own
// online_users_update event and merges independently.
type StatsCache struct {
	api StatsProvider

	mu    sync.RWMutex
	stats *models.AggregateStats
}

// NewStatsCache creates an empty cache; Snapshot reports absent until
// the first load or push so the view renders "loading", never zeros.
func NewStatsCache(api StatsProvider) *StatsCache {
	return &StatsCache{api: api}
}

// Load pulls the aggregate snapshot. On failure the previous snapshot
// is retained and the error returned for logging; there is no retry.
func (c *StatsCache) Load(ctx context.Context) error {
	stats, err := c.api.GetStats(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.stats = stats
	c.mu.Unlock()
	return nil
}

// ApplyStats merges a pushed aggregate update, leaving OnlineUsers
// untouched. A push arriving before the first pull creates the
// snapshot from the pushed fields.
func (c *StatsCache) ApplyStats(p realtime.StatsUpdatePayload) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stats == nil {
		c.stats = &models.AggregateStats{}
	}
	c.stats.TotalTests = p.TotalTests
	c.stats.TotalUsers = p.TotalUsers
	c.stats.AverageWPM = p.AverageWPM
	c.stats.AverageAccuracy = p.AverageAccuracy
}

// ApplyOnlineCount replaces only the online count.
func (c *StatsCache) ApplyOnlineCount(count int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stats == nil {
		c.stats = &models.AggregateStats{}
	}
	c.stats.OnlineUsers = count
}

// Snapshot returns the latest known snapshot; false means nothing has
// loaded yet.
func (c *StatsCache) Snapshot() (models.AggregateStats, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.stats == nil {
		return models.AggregateStats{}, false
	}
	return *c.stats, true
}

// Run consumes stats and online-count events. Single writer for this
// cache.
func (c *StatsCache) Run(ctx context.Context, sub *realtime.Subscription) {
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			payload, err := realtime.ParseEventPayload(event)
			if err != nil {
				log.Warn().Err(err).Str("event_type", string(event.Type)).Msg("dropping malformed stats event")
				continue
			}
			switch p := payload.(type) {
			case realtime.StatsUpdatePayload:
				c.ApplyStats(p)
			case realtime.OnlineUsersPayload:
				c.ApplyOnlineCount(p.Count)
			}
		}
	}
}
