package views

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/typesprint/go/internal/models"
	"github.com/mcdev12/typesprint/go/internal/realtime"
)

// ProfileProvider is the pull side for the own-profile rollup.
type ProfileProvider interface {
	GetUserProfile(ctx context.Context, username string) (*models.UserProfile, error)
}

// ProfileCache holds the locally identified user's rollup. Push
// updates for any other username are ignored.
type ProfileCache struct {
	username string
	api      ProfileProvider

	mu      sync.RWMutex
	profile *models.UserProfile
}

// NewProfileCache creates a cache bound to an explicit identity.
func NewProfileCache(username string, api ProfileProvider) *ProfileCache {
	return &ProfileCache{
		username: username,
		api:      api,
	}
}

// Load pulls the rollup. On failure the previous snapshot is retained.
func (c *ProfileCache) Load(ctx context.Context) error {
	profile, err := c.api.GetUserProfile(ctx, c.username)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.profile = profile
	c.mu.Unlock()
	return nil
}

// Apply merges a pushed rollup refresh, only when it targets this
// cache's identity. Recent tests are not part of the push; they stay
// as last pulled.
func (c *ProfileCache) Apply(p realtime.UserStatsUpdatedPayload) {
	if p.Username != c.username {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.profile == nil {
		// Nothing pulled yet; a partial push cannot seed the profile
		// because recentTests would be missing.
		log.Debug().Str("username", p.Username).Msg("profile push before first load, ignored")
		return
	}
	c.profile.AvgWPM = p.Stats.AvgWpm
	c.profile.AvgAccuracy = p.Stats.AvgAccuracy
	c.profile.AvgConsistency = p.Stats.AvgConsistency
	c.profile.BestWPM = p.Stats.BestWpm
	c.profile.TotalTests = p.Stats.TotalTests
}

// Snapshot returns the latest rollup; false until the first successful
// load.
func (c *ProfileCache) Snapshot() (models.UserProfile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.profile == nil {
		return models.UserProfile{}, false
	}
	return *c.profile, true
}

// Run consumes user_stats_updated events for this cache's identity.
func (c *ProfileCache) Run(ctx context.Context, sub *realtime.Subscription) {
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
				log.Warn().Err(err).Str("event_type", string(event.Type)).Msg("dropping malformed profile event")
				continue
			}
			if p, ok := payload.(realtime.UserStatsUpdatedPayload); ok {
				c.Apply(p)
			}
		}
	}
}
