package sync

import (
	"sync"

	"github.com/paulologeh/pychat/internal/push"
)

// Queue buffers push events between the websocket reader and the engine's
// drain loop, so bursts never interleave mid-merge. It is unbounded and
// strictly FIFO: events are popped head-first in arrival order, which keeps
// same-conversation events applied in the order the server emitted them.
type Queue struct {
	mu    sync.Mutex
	items []push.Event
	wake  chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{wake: make(chan struct{}, 1)}
}

// Push appends an event. Never blocks, never drops.
func (q *Queue) Push(evt push.Event) {
	q.mu.Lock()
	q.items = append(q.items, evt)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Pop removes and returns the oldest event.
func (q *Queue) Pop() (push.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return push.Event{}, false
	}
	evt := q.items[0]
	q.items = q.items[1:]
	if len(q.items) == 0 {
		// Release the backing array so a drained queue holds nothing.
		q.items = nil
	}
	return evt, true
}

// Wake returns a channel that signals when new events may be available.
// The signal is collapsed: one receive can correspond to many pushes, so
// consumers must drain with Pop until empty.
func (q *Queue) Wake() <-chan struct{} {
	return q.wake
}

// Len returns the number of buffered events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
