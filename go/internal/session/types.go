package session

import (
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle position of one typing attempt. Transitions
// are monotonic: Idle -> Active -> Finished, never backwards.
type State string

const (
	StateIdle     State = "IDLE"
	StateActive   State = "ACTIVE"
	StateFinished State = "FINISHED"
)

// Session is one typing attempt against one reference text. It is
// owned exclusively by the controller; a reset replaces it wholesale
// with a fresh Idle session, it is never mutated back.
type Session struct {
	ID        uuid.UUID `json:"id"`
	TextID    string    `json:"text_id"`
	Reference string    `json:"reference"`
	Typed     string    `json:"typed"`
	StartedAt time.Time `json:"started_at,omitempty"`
	EndedAt   time.Time `json:"ended_at,omitempty"`
	State     State     `json:"state"`

	// Live metrics, recomputed on every accepted keystroke.
	Wpm         int `json:"wpm"`
	RawWpm      int `json:"raw_wpm"`
	Accuracy    int `json:"accuracy"`
	Consistency int `json:"consistency"`
	Errors      int `json:"errors"`
}
