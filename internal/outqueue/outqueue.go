// Package outqueue is the mutex-guarded FIFO of outbound work items shared
// between the event goroutine (push only) and the polling goroutine
// (peek/pop only).
package outqueue

import (
	"sync"

	"github.com/tinkerforge/red-stackd/internal/slavetable"
)

// WorkItem pairs a request packet with the slave it targets.
type WorkItem struct {
	Slave  *slavetable.Slave
	Packet []byte
}

// Queue is an unbounded FIFO. Push is safe to call from any goroutine;
// Peek and Pop are intended to be called only from the polling goroutine,
// always as a Peek followed by either nothing (retry next tick) or a Pop
// of the same head item — this is what lets a failed send leave the item
// in place atomically.
type Queue struct {
	mu    sync.Mutex
	items []WorkItem
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{}
}

// Push appends work to the tail of the queue.
func (q *Queue) Push(work WorkItem) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, work)
}

// Peek returns a copy of the head item and true, or the zero value and
// false if the queue is empty. It does not remove the item.
func (q *Queue) Peek() (WorkItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return WorkItem{}, false
	}
	return q.items[0], true
}

// Pop removes the head item. It is a no-op on an empty queue.
func (q *Queue) Pop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return
	}
	q.items[0] = WorkItem{}
	q.items = q.items[1:]
}

// Len reports the current queue depth (for metrics sampling only).
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
