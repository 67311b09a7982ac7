package views

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/typesprint/go/internal/realtime"
)

// TyperStatus is one live entry in the "who's typing now" view. It is
// the latest received snapshot for a username, nothing is interpolated.
type TyperStatus struct {
	Username   string    `json:"username"`
	Progress   float64   `json:"progress"`
	CurrentWpm int       `json:"currentWpm"`
	Errors     int       `json:"errors"`
	LastSeen   time.Time `json:"lastSeen"`
}

// Roster maintains the active-typer view with a replace-by-key merge:
// the last received event per username wins, regardless of emission
// order. Entries idle past the TTL are swept out so the view reflects
// only recently active users.
type Roster struct {
	clock clockwork.Clock
	ttl   time.Duration

	mu     sync.RWMutex
	typers map[string]TyperStatus
}

const defaultRosterTTL = 30 * time.Second

// NewRoster creates a roster evicting entries idle longer than ttl. A
// non-positive ttl falls back to the default; the sweep ticker in Run
// cannot accept a zero interval.
func NewRoster(clock clockwork.Clock, ttl time.Duration) *Roster {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if ttl <= 0 {
		ttl = defaultRosterTTL
	}
	return &Roster{
		clock:  clock,
		ttl:    ttl,
		typers: make(map[string]TyperStatus),
	}
}

// Apply merges one progress snapshot. Applying the same event twice,
// or two events out of emission order, is harmless: the entry is
// replaced wholesale either way. A later-emitted-earlier-arriving
// event can transiently overwrite a fresher one; the protocol accepts
// that.
func (r *Roster) Apply(p realtime.TypingProgressPayload) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.typers[p.Username] = TyperStatus{
		Username:   p.Username,
		Progress:   p.Progress,
		CurrentWpm: p.CurrentWpm,
		Errors:     p.Errors,
		LastSeen:   r.clock.Now(),
	}
}

// Snapshot returns the roster ordered by current WPM descending, ties
// broken by username for a stable view.
func (r *Roster) Snapshot() []TyperStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]TyperStatus, 0, len(r.typers))
	for _, t := range r.typers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CurrentWpm != out[j].CurrentWpm {
			return out[i].CurrentWpm > out[j].CurrentWpm
		}
		return out[i].Username < out[j].Username
	})
	return out
}

// Run consumes progress events from the subscription and sweeps stale
// entries on a periodic tick. It is the roster's single writer.
func (r *Roster) Run(ctx context.Context, sub *realtime.Subscription) {
	defer sub.Close()

	ticker := r.clock.NewTicker(r.ttl / 2)
	defer ticker.Stop()

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
				log.Warn().Err(err).Str("event_type", string(event.Type)).Msg("dropping malformed progress event")
				continue
			}
			if p, ok := payload.(realtime.TypingProgressPayload); ok {
				r.Apply(p)
			}
		case <-ticker.Chan():
			r.sweep()
		}
	}
}

func (r *Roster) sweep() {
	cutoff := r.clock.Now().Add(-r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	for username, t := range r.typers {
		if t.LastSeen.Before(cutoff) {
			delete(r.typers, username)
			log.Debug().Str("username", username).Msg("evicted stale roster entry")
		}
	}
}
