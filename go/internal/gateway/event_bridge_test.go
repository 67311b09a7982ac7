package gateway

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/typesprint/go/internal/realtime"
)

func bridgeEvent(t *testing.T, eventType realtime.EventType, payload interface{}) *realtime.Event {
	t.Helper()
	event, err := realtime.NewEvent(eventType, payload)
	require.NoError(t, err)
	return event
}

func TestConvertTypingProgress(t *testing.T) {
	in := bridgeEvent(t, realtime.EventTypeTypingProgress, realtime.TypingProgressPayload{
		Username: "alice", Progress: 60, CurrentWpm: 72, Errors: 1,
	})

	out, ok, err := convertToBroadcastEvent(in)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, realtime.EventTypeUserTypingProgress, out.Type)

	var p realtime.TypingProgressPayload
	require.NoError(t, json.Unmarshal(out.Data, &p))
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, 72, p.CurrentWpm)
}

func TestConvertTypingStartBecomesZeroProgress(t *testing.T) {
	in := bridgeEvent(t, realtime.EventTypeTypingStart, realtime.TypingStartPayload{
		Username: "bob", TextID: "t-9",
	})

	out, ok, err := convertToBroadcastEvent(in)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, realtime.EventTypeUserTypingProgress, out.Type)

	var p realtime.TypingProgressPayload
	require.NoError(t, json.Unmarshal(out.Data, &p))
	assert.Equal(t, "bob", p.Username)
	assert.Equal(t, 0.0, p.Progress)
	assert.Equal(t, 0, p.CurrentWpm)
}

func TestConvertUserOnlineNotRebroadcast(t *testing.T) {
	in := bridgeEvent(t, realtime.EventTypeUserOnline, realtime.UserOnlinePayload{Username: "bob"})

	_, ok, err := convertToBroadcastEvent(in)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConvertBackendEventsPassThrough(t *testing.T) {
	for _, eventType := range []realtime.EventType{
		realtime.EventTypeStatsUpdate,
		realtime.EventTypeOnlineUsersUpdate,
		realtime.EventTypeLeaderboardUpdate,
		realtime.EventTypeUserStatsUpdated,
	} {
		in := &realtime.Event{Type: eventType, Timestamp: time.Now(), Data: []byte(`{}`)}
		out, ok, err := convertToBroadcastEvent(in)
		require.NoError(t, err)
		require.True(t, ok, "%s should pass through", eventType)
		assert.Equal(t, eventType, out.Type)
	}
}

func TestStampUsernameOverridesClientClaim(t *testing.T) {
	in := bridgeEvent(t, realtime.EventTypeTypingProgress, realtime.TypingProgressPayload{
		Username: "mallory", Progress: 10, CurrentWpm: 200,
	})

	out, err := stampUsername(in, "alice")
	require.NoError(t, err)

	var p realtime.TypingProgressPayload
	require.NoError(t, json.Unmarshal(out.Data, &p))
	assert.Equal(t, "alice", p.Username, "upgrade-time identity wins over the payload claim")
	assert.Equal(t, 200, p.CurrentWpm)
}
