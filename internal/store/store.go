// Package store holds the authoritative in-memory conversation collection
// for one session. All state is ephemeral: it is rebuilt from the server by
// the sync engine's bootstrap on every (re)load.
//
// Conversations handed out by the store are treated as immutable values.
// Every mutation installs a fresh clone, so observers always see atomic
// snapshot transitions and never aliased partial writes.
package store

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/paulologeh/pychat/internal/bus"
	"github.com/paulologeh/pychat/internal/chat"
)

// Store is the single shared mutable resource of the engine. Only the sync
// engine writes to it; the UI layer issues intents and observes.
type Store struct {
	mu    sync.RWMutex
	bus   *bus.Bus
	convs []*chat.Conversation
	// activeKey addresses a member of convs (ID for persisted
	// conversations, LocalID for drafts), or is empty when unset.
	activeKey string
	rels      chat.Relationships
}

// New creates an empty store. The bus may be nil in tests.
func New(b *bus.Bus) *Store {
	return &Store{bus: b}
}

// Key addresses a conversation in the store: the server ID for persisted
// conversations, the local draft ID otherwise.
func Key(c *chat.Conversation) string {
	if c.Persisted() {
		return c.ID
	}
	return c.LocalID
}

func (s *Store) publish(kind string, payload any) {
	if s.bus != nil {
		s.bus.Publish(bus.Event{Kind: kind, Timestamp: time.Now(), Payload: payload})
	}
}

func (s *Store) indexOf(key string) int {
	return slices.IndexFunc(s.convs, func(c *chat.Conversation) bool {
		return Key(c) == key
	})
}

// All returns a snapshot of the collection, newest conversation first.
// Drafts sort to the front.
func (s *Store) All() []*chat.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*chat.Conversation, len(s.convs))
	copy(out, s.convs)
	slices.SortStableFunc(out, func(a, b *chat.Conversation) int {
		la, lb := a.LastMessage(), b.LastMessage()
		switch {
		case la == nil && lb == nil:
			return 0
		case la == nil:
			return -1
		case lb == nil:
			return 1
		default:
			return lb.CreatedAt.Compare(la.CreatedAt)
		}
	})
	return out
}

// Get returns the conversation addressed by key.
func (s *Store) Get(key string) (*chat.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(key); i >= 0 {
		return s.convs[i], true
	}
	return nil, false
}

// ByCounterpart returns the conversation whose other party is userID. At
// most one such conversation exists at any time.
func (s *Store) ByCounterpart(userID, currentUserID int) (*chat.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.convs {
		if c.Counterpart(currentUserID) == userID {
			return c, true
		}
	}
	return nil, false
}

// Upsert inserts or replaces a conversation. A persisted conversation
// overwrites any entry with the same ID. Inserting a draft first discards
// every other draft: only one may exist at a time.
func (s *Store) Upsert(c *chat.Conversation) {
	clearedActive := false
	s.mu.Lock()
	if c.Persisted() {
		if i := s.indexOf(c.ID); i >= 0 {
			s.convs[i] = c
		} else {
			s.convs = append(slices.Clone(s.convs), c)
		}
	} else {
		kept := make([]*chat.Conversation, 0, len(s.convs)+1)
		for _, existing := range s.convs {
			if existing.Persisted() {
				kept = append(kept, existing)
			} else if s.activeKey == Key(existing) {
				s.activeKey = ""
				clearedActive = true
			}
		}
		s.convs = append(kept, c)
	}
	s.mu.Unlock()
	s.publish("store.conversations", len(s.convs))
	if clearedActive {
		s.publish("store.active", "")
	}
}

// ReplaceDraft removes the draft addressed by localID and inserts its
// persisted successor, moving the active reference along with it. Any
// existing entry sharing the successor's server ID is discarded too, so a
// double promotion cannot leave two conversations with the same ID.
func (s *Store) ReplaceDraft(localID string, c *chat.Conversation) {
	s.mu.Lock()
	wasActive := s.activeKey == localID
	kept := make([]*chat.Conversation, 0, len(s.convs)+1)
	for _, existing := range s.convs {
		if Key(existing) == localID {
			continue
		}
		if c.Persisted() && existing.ID == c.ID {
			continue
		}
		kept = append(kept, existing)
	}
	s.convs = append(kept, c)
	if wasActive {
		s.activeKey = Key(c)
	}
	s.mu.Unlock()
	s.publish("store.conversations", len(s.convs))
	if wasActive {
		s.publish("store.active", Key(c))
	}
}

// ReplaceMessages installs a new message sequence for the conversation
// addressed by key. Returns false if the conversation is no longer in the
// store; the caller discards the (stale) result in that case.
func (s *Store) ReplaceMessages(key string, msgs []chat.Message) bool {
	s.mu.Lock()
	i := s.indexOf(key)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	next := s.convs[i].Clone()
	next.Messages = msgs
	s.convs[i] = next
	s.mu.Unlock()
	s.publish("store.conversations", len(s.convs))
	return true
}

// MarkRead stamps the given message IDs as read at the given time and
// returns how many messages changed. No event is published when nothing
// changed.
func (s *Store) MarkRead(key string, messageIDs []string, at time.Time) int {
	want := make(map[string]struct{}, len(messageIDs))
	for _, id := range messageIDs {
		want[id] = struct{}{}
	}

	s.mu.Lock()
	i := s.indexOf(key)
	if i < 0 {
		s.mu.Unlock()
		return 0
	}
	next := s.convs[i].Clone()
	changed := 0
	for j := range next.Messages {
		m := &next.Messages[j]
		if _, ok := want[m.ID]; ok && m.Read == nil {
			t := at
			m.Read = &t
			changed++
		}
	}
	if changed > 0 {
		s.convs[i] = next
	}
	s.mu.Unlock()

	if changed > 0 {
		s.publish("store.conversations", len(s.convs))
	}
	return changed
}

// Remove deletes the conversation addressed by key, clearing the active
// reference if it pointed at it.
func (s *Store) Remove(key string) bool {
	s.mu.Lock()
	i := s.indexOf(key)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.convs = slices.Delete(slices.Clone(s.convs), i, i+1)
	clearedActive := s.activeKey == key
	if clearedActive {
		s.activeKey = ""
	}
	s.mu.Unlock()

	s.publish("store.conversations", len(s.convs))
	if clearedActive {
		s.publish("store.active", "")
	}
	return true
}

// Replace swaps in a whole new collection (bootstrap or silent refresh).
// The active reference survives only if it still resolves.
func (s *Store) Replace(convs []*chat.Conversation) {
	s.mu.Lock()
	s.convs = slices.Clone(convs)
	clearedActive := false
	if s.activeKey != "" && s.indexOf(s.activeKey) < 0 {
		s.activeKey = ""
		clearedActive = true
	}
	s.mu.Unlock()

	s.publish("store.conversations", len(convs))
	if clearedActive {
		s.publish("store.active", "")
	}
}

// SetActive points the active reference at a member of the collection.
// Addressing a non-member is a programming error and fails fast.
func (s *Store) SetActive(key string) error {
	s.mu.Lock()
	if s.indexOf(key) < 0 {
		s.mu.Unlock()
		return fmt.Errorf("set active: conversation %q not in store", key)
	}
	s.activeKey = key
	s.mu.Unlock()
	s.publish("store.active", key)
	return nil
}

// ClearActive unsets the active reference and discards any draft, matching
// navigation away from an unsent conversation.
func (s *Store) ClearActive() {
	s.mu.Lock()
	s.activeKey = ""
	kept := s.convs[:0:0]
	dropped := false
	for _, c := range s.convs {
		if c.Persisted() {
			kept = append(kept, c)
		} else {
			dropped = true
		}
	}
	s.convs = kept
	s.mu.Unlock()

	s.publish("store.active", "")
	if dropped {
		s.publish("store.conversations", len(kept))
	}
}

// Active returns the active conversation, if one is set.
func (s *Store) Active() (*chat.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.activeKey == "" {
		return nil, false
	}
	if i := s.indexOf(s.activeKey); i >= 0 {
		return s.convs[i], true
	}
	return nil, false
}

// ActiveKey returns the active reference itself, or "" when unset.
func (s *Store) ActiveKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeKey
}

// SetRelationships replaces the relationship summary.
func (s *Store) SetRelationships(r chat.Relationships) {
	s.mu.Lock()
	s.rels = r
	s.mu.Unlock()
	s.publish("store.relationships", nil)
}

// Relationships returns the current relationship summary.
func (s *Store) Relationships() chat.Relationships {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rels
}
