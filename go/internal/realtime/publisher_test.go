package realtime

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	events []*Event
	err    error
}

func (r *recordingSender) Send(ctx context.Context, event *Event) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

func TestPublisherEmitsIdentity(t *testing.T) {
	sender := &recordingSender{}
	pub := NewPublisher("alice", sender)
	ctx := context.Background()

	require.NoError(t, pub.Announce(ctx))
	require.NoError(t, pub.SessionStarted(ctx, "text-1"))
	require.NoError(t, pub.Progress(ctx, 25.0, 48, 2))

	require.Len(t, sender.events, 3)
	assert.Equal(t, EventTypeUserOnline, sender.events[0].Type)
	assert.Equal(t, EventTypeTypingStart, sender.events[1].Type)
	assert.Equal(t, EventTypeTypingProgress, sender.events[2].Type)

	payload, err := ParseEventPayload(sender.events[2])
	require.NoError(t, err)
	assert.Equal(t, TypingProgressPayload{
		Username:   "alice",
		Progress:   25.0,
		CurrentWpm: 48,
		Errors:     2,
	}, payload)
}

func TestPublisherPropagatesSendErrors(t *testing.T) {
	sender := &recordingSender{err: errors.New("transport down")}
	pub := NewPublisher("alice", sender)

	err := pub.Progress(context.Background(), 10, 30, 0)
	assert.ErrorContains(t, err, "transport down")
}
