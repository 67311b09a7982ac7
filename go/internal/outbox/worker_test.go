package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/typesprint/go/internal/models"
)

type flakySubmitter struct {
	mu        sync.Mutex
	failFirst int
	calls     int
	submitted []models.TestResult
}

func (f *flakySubmitter) SubmitResult(ctx context.Context, result models.TestResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failFirst {
		return errors.New("backend unavailable")
	}
	f.submitted = append(f.submitted, result)
	return nil
}

func (f *flakySubmitter) submittedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submitted)
}

func testConfig() Config {
	return Config{
		PollInterval: 10 * time.Millisecond,
		MaxRetries:   2,
		RetryDelay:   time.Millisecond,
		MaxAttempts:  6,
	}
}

func pendingResult(username string) models.PendingResult {
	return models.PendingResult{
		SessionID: uuid.New(),
		Result:    models.TestResult{Username: username, Wpm: 60, TextID: "t-1"},
	}
}

func TestQueueBounded(t *testing.T) {
	q := NewQueue(2)
	require.NoError(t, q.Enqueue(pendingResult("a")))
	require.NoError(t, q.Enqueue(pendingResult("b")))
	assert.Error(t, q.Enqueue(pendingResult("c")))
	assert.Equal(t, 2, q.Pending())
}

func TestWorkerDrainsQueue(t *testing.T) {
	q := NewQueue(16)
	sub := &flakySubmitter{}
	w := NewWorker(q, sub, testConfig())

	require.NoError(t, q.Enqueue(pendingResult("alice")))

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.Eventually(t, func() bool {
		return sub.submittedCount() == 1 && q.Pending() == 0
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "alice", sub.submitted[0].Username)
}

func TestWorkerRetriesTransientFailure(t *testing.T) {
	q := NewQueue(16)
	sub := &flakySubmitter{failFirst: 2}
	w := NewWorker(q, sub, testConfig())

	require.NoError(t, q.Enqueue(pendingResult("alice")))

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.Eventually(t, func() bool {
		return sub.submittedCount() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestWorkerDropsAfterAttemptBudget(t *testing.T) {
	q := NewQueue(16)
	sub := &flakySubmitter{failFirst: 1 << 30}
	cfg := testConfig()
	cfg.MaxAttempts = 3
	w := NewWorker(q, sub, cfg)

	require.NoError(t, q.Enqueue(pendingResult("alice")))

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.Eventually(t, func() bool {
		return q.Pending() == 0
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, sub.submittedCount())
}

func TestQueueSurvivesWithoutWorker(t *testing.T) {
	// Results queued while offline stay pending until a worker drains
	// them; the queue has no eviction of its own.
	q := NewQueue(16)
	require.NoError(t, q.Enqueue(pendingResult("alice")))
	require.NoError(t, q.Enqueue(pendingResult("bob")))
	assert.Equal(t, 2, q.Pending())

	sub := &flakySubmitter{}
	w := NewWorker(q, sub, testConfig())
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.Eventually(t, func() bool {
		return sub.submittedCount() == 2
	}, time.Second, 5*time.Millisecond)
}

func TestWorkerRestartDrainsNewResults(t *testing.T) {
	// Stop/Start is the reconnect path: results queued after a restart
	// must still reach the backend on the poll loop, not just the
	// one-shot drain at startup.
	q := NewQueue(16)
	sub := &flakySubmitter{}
	w := NewWorker(q, sub, testConfig())

	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Stop())
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, q.Enqueue(pendingResult("alice")))

	require.Eventually(t, func() bool {
		return sub.submittedCount() == 1 && q.Pending() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestWorkerDoubleStart(t *testing.T) {
	q := NewQueue(4)
	w := NewWorker(q, &flakySubmitter{}, testConfig())

	require.NoError(t, w.Start(context.Background()))
	assert.Error(t, w.Start(context.Background()))
	require.NoError(t, w.Stop())
	assert.Error(t, w.Stop())
}
