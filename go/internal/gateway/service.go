package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/typesprint/go/internal/realtime"
)

// Service is the relay gateway: it terminates client websockets,
// publishes their events onto NATS, and broadcasts everything arriving
// on the subject tree back out to every connection. It ranks nothing
// and persists nothing.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	eventBridge       *EventBridge
}

// Config holds configuration for the gateway service.
type Config struct {
	ConnectionConfig ConnectionConfig
	BridgeConfig     BridgeConfig
}

// DefaultConfig returns default gateway configuration.
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		BridgeConfig:     DefaultBridgeConfig(),
	}
}

// NewService creates the gateway service and wires its parts.
func NewService(config Config) (*Service, error) {
	connectionManager := NewConnectionManager(config.ConnectionConfig)
	wsHandler := NewWebSocketHandler(connectionManager)

	eventBridge, err := NewEventBridge(connectionManager, config.BridgeConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create event bridge: %w", err)
	}

	connectionManager.SetClientEventHandler(func(ctx context.Context, username string, event *realtime.Event) {
		if err := eventBridge.PublishClientEvent(ctx, username, event); err != nil {
			log.Warn().
				Err(err).
				Str("username", username).
				Str("event_type", string(event.Type)).
				Msg("failed to publish client event")
		}
	})

	// Presence: every join/leave rebroadcasts the connection count as
	// an online_users_update.
	connectionManager.SetCountChangeHandler(func(count int) {
		event, err := realtime.NewEvent(realtime.EventTypeOnlineUsersUpdate, realtime.OnlineUsersPayload{Count: count})
		if err != nil {
			return
		}
		connectionManager.Broadcast(event)
	})

	return &Service{
		connectionManager: connectionManager,
		wsHandler:         wsHandler,
		eventBridge:       eventBridge,
	}, nil
}

// Start runs the gateway until the context is cancelled.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting gateway service")

	go s.connectionManager.Start(ctx)

	go func() {
		if err := s.eventBridge.Start(ctx); err != nil {
			log.Error().Err(err).Msg("event bridge failed")
		}
	}()

	<-ctx.Done()

	log.Info().Msg("gateway service shutting down")
	return s.Stop()
}

// Stop gracefully shuts down the gateway.
func (s *Service) Stop() error {
	if err := s.eventBridge.Stop(); err != nil {
		log.Error().Err(err).Msg("failed to stop event bridge")
	}
	log.Info().Msg("gateway service stopped")
	return nil
}

// RegisterRoutes registers the gateway HTTP routes.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	log.Info().Msg("gateway routes registered")
}
