package realtime

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Sender is the outbound half of the shared channel. The transport
// guarantees ordered at-least-once delivery per connection; reconnect
// handling lives outside this package.
type Sender interface {
	Send(ctx context.Context, event *Event) error
}

// Publisher emits session lifecycle and per-keystroke events onto the
// shared channel on behalf of one identity.
type Publisher struct {
	username string
	sender   Sender
}

// NewPublisher creates a publisher bound to an explicit identity. The
// identity is injected rather than read from ambient storage so the
// publisher stays testable without a storage stub.
func NewPublisher(username string, sender Sender) *Publisher {
	return &Publisher{
		username: username,
		sender:   sender,
	}
}

// Announce declares the identity online. Sent once per connection.
func (p *Publisher) Announce(ctx context.Context) error {
	return p.publish(ctx, EventTypeUserOnline, UserOnlinePayload{
		Username: p.username,
	})
}

// SessionStarted is emitted once, on the Idle -> Active transition.
func (p *Publisher) SessionStarted(ctx context.Context, textID string) error {
	return p.publish(ctx, EventTypeTypingStart, TypingStartPayload{
		Username: p.username,
		TextID:   textID,
	})
}

// Progress is emitted once per accepted keystroke while the session is
// Active. Publish frequency equals keystroke frequency; there is no
// batching or coalescing.
func (p *Publisher) Progress(ctx context.Context, progress float64, currentWpm, errors int) error {
	return p.publish(ctx, EventTypeTypingProgress, TypingProgressPayload{
		Username:   p.username,
		Progress:   progress,
		CurrentWpm: currentWpm,
		Errors:     errors,
	})
}

func (p *Publisher) publish(ctx context.Context, eventType EventType, payload interface{}) error {
	event, err := NewEvent(eventType, payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	if err := p.sender.Send(ctx, event); err != nil {
		log.Warn().
			Err(err).
			Str("event_type", string(eventType)).
			Str("username", p.username).
			Msg("failed to publish event")
		return fmt.Errorf("send %s: %w", eventType, err)
	}
	return nil
}
