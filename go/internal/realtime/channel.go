package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	// ErrChannelClosed is returned by Send after the transport is gone.
	ErrChannelClosed = errors.New("channel closed")
	// ErrSendBufferFull is returned when the outbound buffer is full.
	// Keystroke handling never blocks on the transport.
	ErrSendBufferFull = errors.New("send buffer full")
)

// ChannelConfig holds transport tuning for the websocket channel.
type ChannelConfig struct {
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
	SendBuffer     int
	InboundBuffer  int
}

// DefaultChannelConfig returns default websocket channel configuration.
func DefaultChannelConfig() ChannelConfig {
	return ChannelConfig{
		WriteTimeout:   10 * time.Second,
		ReadTimeout:    60 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 64 * 1024,
		SendBuffer:     256,
		InboundBuffer:  256,
	}
}

// Channel is the client end of the shared synchronization channel: a
// single websocket carrying Event envelopes both ways. It provides
// ordered at-least-once delivery per connection; reconnecting is the
// caller's concern, surfaced here as a closed inbound feed.
type Channel struct {
	conn    *websocket.Conn
	config  ChannelConfig
	send    chan *Event
	inbound chan *Event

	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects to the gateway websocket endpoint and starts the read
// and write pumps.
func Dial(ctx context.Context, url string, config ChannelConfig) (*Channel, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	c := &Channel{
		conn:    conn,
		config:  config,
		send:    make(chan *Event, config.SendBuffer),
		inbound: make(chan *Event, config.InboundBuffer),
		done:    make(chan struct{}),
	}

	go c.writePump()
	go c.readPump()

	log.Info().Str("url", url).Msg("realtime channel established")
	return c, nil
}

// Send enqueues an event for delivery. It never blocks: a full buffer
// is an error the caller may log and drop.
func (c *Channel) Send(ctx context.Context, event *Event) error {
	select {
	case <-c.done:
		return ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	case c.send <- event:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Inbound is the feed of events received from the gateway. It closes
// when the connection drops or Close is called.
func (c *Channel) Inbound() <-chan *Event {
	return c.inbound
}

// Close tears down the connection and both pumps.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
	return nil
}

func (c *Channel) writePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case event := <-c.send:
			data, err := json.Marshal(event)
			if err != nil {
				log.Error().Err(err).Msg("failed to marshal outbound event")
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Msg("failed to write event to channel")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().Err(err).Msg("failed to send ping")
				return
			}
		}
	}
}

func (c *Channel) readPump() {
	defer func() {
		c.Close()
		close(c.inbound)
	}()

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Msg("unexpected channel close")
			}
			return
		}

		var event Event
		if err := json.Unmarshal(data, &event); err != nil {
			log.Warn().Err(err).Msg("dropping malformed inbound event")
			continue
		}

		select {
		case c.inbound <- &event:
		default:
			log.Warn().
				Str("event_type", string(event.Type)).
				Msg("inbound buffer full, dropping event")
		}
	}
}
