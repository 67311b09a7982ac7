package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/typesprint/go/internal/models"
)

type fakeTexts struct {
	texts []models.ReferenceText
	calls int
	err   error
}

func (f *fakeTexts) GetText(ctx context.Context) (*models.ReferenceText, error) {
	if f.err != nil {
		return nil, f.err
	}
	text := f.texts[f.calls%len(f.texts)]
	f.calls++
	return &text, nil
}

type publishedProgress struct {
	progress   float64
	currentWpm int
	errors     int
}

type fakePublisher struct {
	started  []string
	progress []publishedProgress
}

func (f *fakePublisher) SessionStarted(ctx context.Context, textID string) error {
	f.started = append(f.started, textID)
	return nil
}

func (f *fakePublisher) Progress(ctx context.Context, progress float64, currentWpm, errors int) error {
	f.progress = append(f.progress, publishedProgress{progress, currentWpm, errors})
	return nil
}

type fakeEnqueuer struct {
	queued []models.PendingResult
}

func (f *fakeEnqueuer) Enqueue(result models.PendingResult) error {
	f.queued = append(f.queued, result)
	return nil
}

func newTestController(t *testing.T, reference string) (*Controller, *fakePublisher, *fakeEnqueuer, *clockwork.FakeClock) {
	t.Helper()
	texts := &fakeTexts{texts: []models.ReferenceText{{ID: "t-1", Content: reference}}}
	pub := &fakePublisher{}
	queue := &fakeEnqueuer{}
	clock := clockwork.NewFakeClock()

	ctrl, err := NewController("alice", texts, pub, queue, clock)
	require.NoError(t, err)
	require.NoError(t, ctrl.LoadText(context.Background()))
	return ctrl, pub, queue, clock
}

func TestNewControllerValidatesUsername(t *testing.T) {
	_, err := NewController("", nil, nil, nil, nil)
	assert.Error(t, err)

	_, err = NewController("a-username-over-twenty-chars", nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestInputBlockedWithoutText(t *testing.T) {
	texts := &fakeTexts{err: errors.New("backend down")}
	pub := &fakePublisher{}
	ctrl, err := NewController("alice", texts, pub, &fakeEnqueuer{}, clockwork.NewFakeClock())
	require.NoError(t, err)

	assert.Error(t, ctrl.LoadText(context.Background()))

	ctrl.HandleInput(context.Background(), "t")
	_, ok := ctrl.Snapshot()
	assert.False(t, ok, "no session should be installed")
	assert.Empty(t, pub.started)
	assert.Empty(t, pub.progress)
}

func TestFirstKeystrokeStartsSession(t *testing.T) {
	ctrl, pub, _, _ := newTestController(t, "the quick brown fox ")

	ctrl.HandleInput(context.Background(), "t")

	snap, ok := ctrl.Snapshot()
	require.True(t, ok)
	assert.Equal(t, StateActive, snap.State)
	assert.False(t, snap.StartedAt.IsZero())
	assert.Equal(t, []string{"t-1"}, pub.started)
	require.Len(t, pub.progress, 1)
	assert.InDelta(t, 5.0, pub.progress[0].progress, 0.001)
	// First keystroke has zero elapsed time, so WPM is 0 by contract.
	assert.Equal(t, 0, pub.progress[0].currentWpm)
}

func TestPerKeystrokeRecomputeAndPublish(t *testing.T) {
	reference := "abcd"
	ctrl, pub, _, clock := newTestController(t, reference)
	ctx := context.Background()

	ctrl.HandleInput(ctx, "a")
	clock.Advance(3 * time.Second)
	ctrl.HandleInput(ctx, "ab")
	clock.Advance(3 * time.Second)
	ctrl.HandleInput(ctx, "abx")

	require.Len(t, pub.progress, 3)
	assert.InDelta(t, 25.0, pub.progress[0].progress, 0.001)
	assert.InDelta(t, 50.0, pub.progress[1].progress, 0.001)
	assert.InDelta(t, 75.0, pub.progress[2].progress, 0.001)
	assert.Equal(t, 1, pub.progress[2].errors)

	snap, _ := ctrl.Snapshot()
	assert.Equal(t, StateActive, snap.State)
	assert.Equal(t, 1, snap.Errors)
	assert.Equal(t, 67, snap.Accuracy)
}

func TestCompletionSubmitsExactlyOnce(t *testing.T) {
	reference := "the quick brown fox "
	ctrl, _, queue, clock := newTestController(t, reference)
	ctx := context.Background()

	ctrl.HandleInput(ctx, "the")
	clock.Advance(12 * time.Second)
	ctrl.HandleInput(ctx, reference)

	snap, _ := ctrl.Snapshot()
	assert.Equal(t, StateFinished, snap.State)
	assert.False(t, snap.EndedAt.IsZero())
	assert.Equal(t, 20, snap.RawWpm)
	assert.Equal(t, 20, snap.Wpm)
	assert.Equal(t, 100, snap.Accuracy)

	// Late keystrokes after Finished are ignored and never re-submit.
	ctrl.HandleInput(ctx, reference)
	ctrl.HandleInput(ctx, reference+"!!")

	require.Len(t, queue.queued, 1)
	queued := queue.queued[0]
	assert.Equal(t, snap.ID, queued.SessionID)
	assert.Equal(t, "alice", queued.Result.Username)
	assert.Equal(t, 20, queued.Result.Wpm)
	assert.Equal(t, "t-1", queued.Result.TextID)
	assert.InDelta(t, 12.0, queued.Result.TimeSpent, 0.001)
}

func TestInputCappedAtReferenceLength(t *testing.T) {
	reference := "abc"
	ctrl, _, queue, _ := newTestController(t, reference)

	ctrl.HandleInput(context.Background(), "abcdef")

	snap, _ := ctrl.Snapshot()
	assert.Equal(t, "abc", snap.Typed)
	assert.Equal(t, StateFinished, snap.State)
	assert.Len(t, queue.queued, 1)
}

func TestResetReplacesSessionWholesale(t *testing.T) {
	reference := "abc"
	ctrl, pub, queue, clock := newTestController(t, reference)
	ctx := context.Background()

	ctrl.HandleInput(ctx, "a")
	clock.Advance(time.Second)
	ctrl.HandleInput(ctx, "abc")

	first, _ := ctrl.Snapshot()
	require.Equal(t, StateFinished, first.State)
	require.Len(t, queue.queued, 1)

	require.NoError(t, ctrl.Reset(ctx))

	second, ok := ctrl.Snapshot()
	require.True(t, ok)
	assert.Equal(t, StateIdle, second.State)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Empty(t, second.Typed)

	// The first session's queued result is untouched by the reset and
	// still carries the superseded session's ID.
	require.Len(t, queue.queued, 1)
	assert.Equal(t, first.ID, queue.queued[0].SessionID)

	// A fresh attempt starts its own lifecycle.
	ctrl.HandleInput(ctx, "a")
	assert.Equal(t, []string{"t-1", "t-1"}, pub.started)
}
