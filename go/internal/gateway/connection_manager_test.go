package gateway

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mcdev12/typesprint/go/internal/realtime"
)

func TestBroadcastDuringUnregisterDoesNotPanic(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())

	event, err := realtime.NewEvent(realtime.EventTypeOnlineUsersUpdate, realtime.OnlineUsersPayload{Count: 1})
	require.NoError(t, err)

	// Connections churn while the broadcaster fans out: a connection
	// whose Send closes mid-broadcast must never crash the broadcast
	// loop. Each connection gets a drainer so its buffer never fills.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 2000; i++ {
			conn := &Connection{
				ID:          strconv.Itoa(i),
				Username:    "alice",
				Send:        make(chan []byte, 4096),
				Manager:     cm,
				ConnectedAt: time.Now(),
			}
			go func(c *Connection) {
				for range c.Send {
				}
			}(conn)
			cm.registerConnection(conn)
			cm.unregisterConnection(conn)
		}
	}()

	for {
		select {
		case <-done:
			require.Equal(t, 0, cm.ConnectionCount())
			return
		default:
			cm.handleBroadcast(event)
		}
	}
}
