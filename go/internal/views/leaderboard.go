package views

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/typesprint/go/internal/models"
	"github.com/mcdev12/typesprint/go/internal/realtime"
)

// LeaderboardAPI is the pull side for the ranked board and the
// per-user enrichment.
type LeaderboardAPI interface {
	GetLeaderboard(ctx context.Context, boardType string, limit int) ([]models.LeaderboardEntry, error)
	GetUserProfile(ctx context.Context, username string) (*models.UserProfile, error)
}

// LeaderboardCache holds the latest ranked snapshot. The backend
// assigns ranks; the cache trusts the order, replaces wholesale on
// every refresh and never re-sorts. Each entry is enriched with the
// user's profile stats, one pull per row (intentional N+1, bounded by
// the board limit).
type LeaderboardCache struct {
	api       LeaderboardAPI
	boardType string
	limit     int

	mu      sync.RWMutex
	entries []models.LeaderboardEntry
	loaded  bool
}

// NewLeaderboardCache creates a cache for the given board type and
// size.
func NewLeaderboardCache(api LeaderboardAPI, boardType string, limit int) *LeaderboardCache {
	return &LeaderboardCache{
		api:       api,
		boardType: boardType,
		limit:     limit,
	}
}

// Load pulls the ranked sequence and enriches each row with that
// user's profile. Any failure keeps the previous snapshot intact.
func (c *LeaderboardCache) Load(ctx context.Context) error {
	ranked, err := c.api.GetLeaderboard(ctx, c.boardType, c.limit)
	if err != nil {
		return fmt.Errorf("pull leaderboard: %w", err)
	}

	entries := make([]models.LeaderboardEntry, 0, len(ranked))
	for _, row := range ranked {
		profile, err := c.api.GetUserProfile(ctx, row.Username)
		if err != nil {
			return fmt.Errorf("enrich leaderboard entry %q: %w", row.Username, err)
		}
		entries = append(entries, models.LeaderboardEntry{
			Rank:           row.Rank,
			Username:       row.Username,
			AvgWpm:         profile.AvgWPM,
			AvgAccuracy:    profile.AvgAccuracy,
			AvgConsistency: profile.AvgConsistency,
			BestWpm:        profile.BestWPM,
			TotalTests:     profile.TotalTests,
		})
	}

	c.mu.Lock()
	c.entries = entries
	c.loaded = true
	c.mu.Unlock()
	return nil
}

// Snapshot returns the latest ranked entries in backend order; false
// means no successful load yet.
func (c *LeaderboardCache) Snapshot() ([]models.LeaderboardEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.loaded {
		return nil, false
	}
	out := make([]models.LeaderboardEntry, len(c.entries))
	copy(out, c.entries)
	return out, true
}

// Run reloads the board whenever a leaderboard_update signal arrives.
// The signal carries no payload; receipt alone invalidates the cache.
func (c *LeaderboardCache) Run(ctx context.Context, sub *realtime.Subscription) {
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if event.Type != realtime.EventTypeLeaderboardUpdate {
				continue
			}
			if err := c.Load(ctx); err != nil {
				log.Warn().Err(err).Msg("leaderboard refresh failed, keeping previous snapshot")
			}
		}
	}
}
