package realtime

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const subscriptionBuffer = 64

// Subscriber owns the inbound side of the shared channel and fans
// events out to view-level subscriptions. No acknowledgement, sequence
// number, or deduplication exists at this layer: delivery is assumed
// reliable-ordered per sender-receiver pair, with no cross-sender
// ordering. Consumers must merge idempotently.
type Subscriber struct {
	inbound <-chan *Event

	mu   sync.RWMutex
	subs map[uuid.UUID]*Subscription
}

// Subscription is an explicit handle returned by Subscribe. Closing it
// deregisters the consumer; the handle's lifetime is tied to the view
// that holds it.
type Subscription struct {
	id         uuid.UUID
	types      map[EventType]bool
	ch         chan *Event
	subscriber *Subscriber
	closeOnce  sync.Once
}

// NewSubscriber creates a subscriber reading from the given inbound
// feed. The feed closing (transport gone) shuts down dispatch and all
// subscriptions.
func NewSubscriber(inbound <-chan *Event) *Subscriber {
	return &Subscriber{
		inbound: inbound,
		subs:    make(map[uuid.UUID]*Subscription),
	}
}

// Subscribe registers interest in the given event types. With no types
// the subscription receives everything.
func (s *Subscriber) Subscribe(types ...EventType) *Subscription {
	sub := &Subscription{
		id:         uuid.New(),
		types:      make(map[EventType]bool, len(types)),
		ch:         make(chan *Event, subscriptionBuffer),
		subscriber: s,
	}
	for _, t := range types {
		sub.types[t] = true
	}

	s.mu.Lock()
	s.subs[sub.id] = sub
	s.mu.Unlock()

	return sub
}

// Run dispatches inbound events until the context is cancelled or the
// inbound feed closes. Dispatch is non-blocking per subscription: a
// slow consumer drops events rather than stalling the whole feed.
func (s *Subscriber) Run(ctx context.Context) {
	defer s.closeAll()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-s.inbound:
			if !ok {
				log.Info().Msg("inbound event feed closed, subscriber shutting down")
				return
			}
			s.dispatch(event)
		}
	}
}

func (s *Subscriber) dispatch(event *Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.subs {
		if len(sub.types) > 0 && !sub.types[event.Type] {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			log.Warn().
				Str("event_type", string(event.Type)).
				Msg("subscription buffer full, dropping event")
		}
	}
}

func (s *Subscriber) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, sub := range s.subs {
		close(sub.ch)
		delete(s.subs, id)
	}
}

func (s *Subscriber) unsubscribe(sub *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subs[sub.id]; ok {
		delete(s.subs, sub.id)
		close(sub.ch)
	}
}

// Events is the subscription's receive channel. It closes when the
// subscription is closed or the subscriber shuts down.
func (s *Subscription) Events() <-chan *Event {
	return s.ch
}

// Close releases the subscription. Safe to call more than once and
// safe to race with subscriber shutdown.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.subscriber.unsubscribe(s)
	})
}
