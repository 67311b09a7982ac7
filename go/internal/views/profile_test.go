package views

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/typesprint/go/internal/models"
	"github.com/mcdev12/typesprint/go/internal/realtime"
)

type fakeProfileAPI struct {
	profiles map[string]*models.UserProfile
}

func (f *fakeProfileAPI) GetUserProfile(ctx context.Context, username string) (*models.UserProfile, error) {
	p := *f.profiles[username]
	return &p, nil
}

func aliceAPI() *fakeProfileAPI {
	return &fakeProfileAPI{profiles: map[string]*models.UserProfile{
		"alice": {
			Username: "alice", AvgWPM: 75, AvgAccuracy: 96, AvgConsistency: 94,
			BestWPM: 99, TotalTests: 21,
			RecentTests: []models.RecentTest{{Wpm: 80, Accuracy: 97, Timestamp: "2026-08-30T10:00:00Z"}},
		},
	}}
}

func TestProfileAppliesOwnUpdatesOnly(t *testing.T) {
	c := NewProfileCache("alice", aliceAPI())
	require.NoError(t, c.Load(context.Background()))

	// Update for another identity is ignored.
	c.Apply(realtime.UserStatsUpdatedPayload{
		Username: "bob",
		Stats:    realtime.UserStatsPayload{AvgWpm: 10, TotalTests: 1},
	})
	snap, ok := c.Snapshot()
	require.True(t, ok)
	assert.Equal(t, 75.0, snap.AvgWPM)
	assert.Equal(t, 21, snap.TotalTests)

	// Matching identity merges the pushed rollup.
	c.Apply(realtime.UserStatsUpdatedPayload{
		Username: "alice",
		Stats: realtime.UserStatsPayload{
			AvgWpm: 76, AvgAccuracy: 96.5, AvgConsistency: 94.2, BestWpm: 102, TotalTests: 22,
		},
	})
	snap, _ = c.Snapshot()
	assert.Equal(t, 76.0, snap.AvgWPM)
	assert.Equal(t, 102.0, snap.BestWPM)
	assert.Equal(t, 22, snap.TotalTests)
	// Recent tests are not part of the push; the pulled list stays.
	assert.Len(t, snap.RecentTests, 1)
}

func TestProfilePushBeforeLoadIgnored(t *testing.T) {
	c := NewProfileCache("alice", aliceAPI())

	c.Apply(realtime.UserStatsUpdatedPayload{
		Username: "alice",
		Stats:    realtime.UserStatsPayload{AvgWpm: 50},
	})

	_, ok := c.Snapshot()
	assert.False(t, ok, "a partial push cannot seed an unloaded profile")
}
