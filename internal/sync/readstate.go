package sync

import (
	"sync"

	"github.com/paulologeh/pychat/internal/chat"
)

// readTracker guards against overlapping read-acknowledgement cycles for
// the same conversation.
type readTracker struct {
	mu       sync.Mutex
	inFlight map[string]bool
}

func newReadTracker() *readTracker {
	return &readTracker{inFlight: make(map[string]bool)}
}

// begin reports whether a read cycle may start for key.
func (r *readTracker) begin(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inFlight[key] {
		return false
	}
	r.inFlight[key] = true
	return true
}

func (r *readTracker) finish(key string) {
	r.mu.Lock()
	delete(r.inFlight, key)
	r.mu.Unlock()
}

// UnreadCount returns the unread count for one conversation, recomputed
// from the current store snapshot.
func (e *Engine) UnreadCount(key string) int {
	conv, ok := e.store.Get(key)
	if !ok {
		return 0
	}
	return chat.UnreadCount(conv.Messages, e.userID)
}

// TotalUnread returns the aggregate unread count across all conversations,
// for the window or tab title badge.
func (e *Engine) TotalUnread() int {
	return chat.TotalUnread(e.store.All(), e.userID)
}
