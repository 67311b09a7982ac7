package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/typesprint/go/internal/realtime"
)

// BridgeConfig holds NATS wiring for the event bridge.
type BridgeConfig struct {
	URL           string
	SubjectPrefix string // e.g. "typing.events"
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultBridgeConfig returns default bridge configuration.
func DefaultBridgeConfig() BridgeConfig {
	return BridgeConfig{
		URL:           nats.DefaultURL,
		SubjectPrefix: "typing.events",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// EventBridge connects the websocket pool to NATS. Client events are
// published onto per-kind subjects; everything arriving on the subject
// tree (from this gateway, its peers, or the backend aggregator) is
// converted to the inbound wire kinds and broadcast to every
// connection. Core NATS, not JetStream: progress snapshots are
// last-write-wins, so redelivering stale ones has no value.
type EventBridge struct {
	connectionManager *ConnectionManager
	nc                *nats.Conn
	config            BridgeConfig
}

// NewEventBridge connects to NATS and wires the bridge to the pool.
func NewEventBridge(cm *ConnectionManager, config BridgeConfig) (*EventBridge, error) {
	opts := []nats.Option{
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &EventBridge{
		connectionManager: cm,
		nc:                nc,
		config:            config,
	}, nil
}

// Start subscribes to the subject tree and relays until the context
// ends.
func (b *EventBridge) Start(ctx context.Context) error {
	subject := b.config.SubjectPrefix + ".>"
	messageCh := make(chan *nats.Msg, 256)

	sub, err := b.nc.ChanSubscribe(subject, messageCh)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	defer sub.Unsubscribe()

	log.Info().Str("subject", subject).Msg("event bridge started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("event bridge shutting down")
			return nil
		case msg := <-messageCh:
			b.relay(msg)
		}
	}
}

// PublishClientEvent forwards one client event to NATS. The username
// bound at upgrade time overwrites whatever the payload claims, so the
// merge key cannot be spoofed by a stray client.
func (b *EventBridge) PublishClientEvent(ctx context.Context, username string, event *realtime.Event) error {
	stamped, err := stampUsername(event, username)
	if err != nil {
		return fmt.Errorf("stamp %s payload: %w", event.Type, err)
	}

	data, err := json.Marshal(stamped)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}

	subject := b.config.SubjectPrefix + "." + string(event.Type)
	if err := b.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Stop closes the NATS connection.
func (b *EventBridge) Stop() error {
	log.Info().Msg("stopping event bridge")
	if b.nc != nil {
		b.nc.Close()
	}
	return nil
}

func (b *EventBridge) relay(msg *nats.Msg) {
	var event realtime.Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		log.Warn().Err(err).Str("subject", msg.Subject).Msg("dropping malformed bridge message")
		return
	}

	outbound, ok, err := convertToBroadcastEvent(&event)
	if err != nil {
		log.Warn().Err(err).Str("event_type", string(event.Type)).Msg("failed to convert bridge event")
		return
	}
	if !ok {
		return
	}

	b.connectionManager.Broadcast(outbound)
}

// convertToBroadcastEvent maps subject-tree events onto the inbound
// wire kinds clients consume. typing_start becomes a zero-progress
// user_typing_progress so rosters light up on the first keystroke.
func convertToBroadcastEvent(event *realtime.Event) (*realtime.Event, bool, error) {
	switch event.Type {
	case realtime.EventTypeTypingProgress:
		return &realtime.Event{
			Type:      realtime.EventTypeUserTypingProgress,
			Timestamp: event.Timestamp,
			Data:      event.Data,
		}, true, nil

	case realtime.EventTypeTypingStart:
		var start realtime.TypingStartPayload
		if err := json.Unmarshal(event.Data, &start); err != nil {
			return nil, false, err
		}
		zero, err := realtime.NewEvent(realtime.EventTypeUserTypingProgress, realtime.TypingProgressPayload{
			Username: start.Username,
		})
		if err != nil {
			return nil, false, err
		}
		return zero, true, nil

	case realtime.EventTypeUserOnline:
		// Presence is tracked per gateway from its own connection
		// count; the announcement itself is not rebroadcast.
		return nil, false, nil

	case realtime.EventTypeStatsUpdate,
		realtime.EventTypeOnlineUsersUpdate,
		realtime.EventTypeLeaderboardUpdate,
		realtime.EventTypeUserStatsUpdated:
		return event, true, nil

	default:
		return nil, false, nil
	}
}

func stampUsername(event *realtime.Event, username string) (*realtime.Event, error) {
	switch event.Type {
	case realtime.EventTypeUserOnline:
		return realtime.NewEvent(event.Type, realtime.UserOnlinePayload{Username: username})

	case realtime.EventTypeTypingStart:
		var p realtime.TypingStartPayload
		if err := json.Unmarshal(event.Data, &p); err != nil {
			return nil, err
		}
		p.Username = username
		return realtime.NewEvent(event.Type, p)

	case realtime.EventTypeTypingProgress:
		var p realtime.TypingProgressPayload
		if err := json.Unmarshal(event.Data, &p); err != nil {
			return nil, err
		}
		p.Username = username
		return realtime.NewEvent(event.Type, p)

	default:
		return event, nil
	}
}
