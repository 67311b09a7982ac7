package outbox

import (
	"fmt"
	"sync"

	"github.com/mcdev12/typesprint/go/internal/models"
)

// Queue is an in-memory outbox for completed results awaiting
// submission. It is owned by the application, not by any one session,
// so pending results survive a session reset and drain when
// connectivity returns.
type Queue struct {
	mu       sync.Mutex
	pending  []entry
	capacity int
}

type entry struct {
	result   models.PendingResult
	attempts int
}

// NewQueue creates a queue bounded at the given capacity.
func NewQueue(capacity int) *Queue {
	return &Queue{capacity: capacity}
}

// Enqueue adds a completed result. A full queue rejects the result
// rather than evicting older pending work.
func (q *Queue) Enqueue(result models.PendingResult) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) >= q.capacity {
		return fmt.Errorf("outbox full (%d pending)", len(q.pending))
	}
	q.pending = append(q.pending, entry{result: result})
	return nil
}

// Pending reports the number of results awaiting submission. This is
// the "pending sync" figure surfaced to the user.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// snapshot hands back the current batch and clears the queue; the
// worker re-enqueues entries that still have attempt budget left.
func (q *Queue) snapshot() []entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	batch := q.pending
	q.pending = nil
	return batch
}

// requeue returns not-yet-delivered entries to the front of the queue,
// preserving completion order ahead of anything enqueued meanwhile.
func (q *Queue) requeue(entries []entry) {
	if len(entries) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending = append(entries, q.pending...)
}
