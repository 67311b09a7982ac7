package realtime

import (
	"encoding/json"
	"time"
)

// Event is the envelope for everything crossing the shared channel.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// EventType names use the wire contract of the backend; they are
// shared between the client core and the relay gateway.
type EventType string

const (
	// Outbound (client -> channel)
	EventTypeUserOnline     EventType = "user_online"
	EventTypeTypingStart    EventType = "typing_start"
	EventTypeTypingProgress EventType = "typing_progress"

	// Inbound (channel -> client)
	EventTypeUserTypingProgress EventType = "user_typing_progress"
	EventTypeStatsUpdate        EventType = "stats_update"
	EventTypeOnlineUsersUpdate  EventType = "online_users_update"
	EventTypeLeaderboardUpdate  EventType = "leaderboard_update"
	EventTypeUserStatsUpdated   EventType = "user_stats_updated"
)

// UserOnlinePayload announces a connected identity.
type UserOnlinePayload struct {
	Username string `json:"username"`
}

// TypingStartPayload is emitted once, on the first accepted keystroke
// of an attempt.
type TypingStartPayload struct {
	Username string `json:"username"`
	TextID   string `json:"textId"`
}

// TypingProgressPayload is a snapshot, not a delta: the latest
// received payload per username is authoritative.
type TypingProgressPayload struct {
	Username   string  `json:"username"`
	Progress   float64 `json:"progress"`
	CurrentWpm int     `json:"currentWpm"`
	Errors     int     `json:"errors"`
}

// StatsUpdatePayload replaces every aggregate field except the online
// count, which travels on its own event.
type StatsUpdatePayload struct {
	TotalTests      int     `json:"totalTests"`
	TotalUsers      int     `json:"totalUsers"`
	AverageWPM      float64 `json:"averageWPM"`
	AverageAccuracy float64 `json:"averageAccuracy"`
}

// OnlineUsersPayload carries the current connection count.
type OnlineUsersPayload struct {
	Count int `json:"count"`
}

// UserStatsPayload carries the refreshed rollup inside a
// user_stats_updated event. Keys are snake_case on this path while the
// REST profile uses camelCase; the asymmetry is part of the contract.
type UserStatsPayload struct {
	AvgWpm         float64 `json:"avg_wpm"`
	AvgAccuracy    float64 `json:"avg_accuracy"`
	AvgConsistency float64 `json:"avg_consistency"`
	BestWpm        float64 `json:"best_wpm"`
	TotalTests     int     `json:"totalTests"`
}

// UserStatsUpdatedPayload targets a single username; other clients
// ignore it.
type UserStatsUpdatedPayload struct {
	Username string           `json:"username"`
	Stats    UserStatsPayload `json:"stats"`
}

// NewEvent wraps a payload into an envelope. Marshal errors cannot
// occur for the payload types above, so the error is surfaced for
// callers passing arbitrary data.
func NewEvent(eventType EventType, payload interface{}) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}, nil
}

// ParseEventPayload parses event data into the appropriate payload struct.
func ParseEventPayload(event *Event) (interface{}, error) {
	switch event.Type {
	case EventTypeUserOnline:
		var payload UserOnlinePayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeTypingStart:
		var payload TypingStartPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeTypingProgress, EventTypeUserTypingProgress:
		var payload TypingProgressPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeStatsUpdate:
		var payload StatsUpdatePayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeOnlineUsersUpdate:
		var payload OnlineUsersPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeLeaderboardUpdate:
		// Signal only, no payload.
		return nil, nil

	case EventTypeUserStatsUpdated:
		var payload UserStatsUpdatedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	default:
		return nil, nil // Unknown event type
	}
}
