package sync

import (
	"context"
	"fmt"
	"sync"

	"github.com/paulologeh/pychat/internal/chat"
	"github.com/paulologeh/pychat/internal/store"
	"go.uber.org/zap"
)

// Paginator manages backward-cursor fetches of older messages. LoadOlder is
// driven by a content signal (the oldest rendered message becoming visible),
// so callers may invoke it repeatedly; it degrades to a no-op while a load
// is in flight or once a conversation is exhausted.
type Paginator struct {
	fetcher  Fetcher
	store    *store.Store
	logger   *zap.Logger
	pageSize int

	mu        sync.Mutex
	inFlight  map[string]bool
	exhausted map[string]bool
}

// NewPaginator creates a pagination controller with the given page size.
func NewPaginator(fetcher Fetcher, st *store.Store, pageSize int, logger *zap.Logger) *Paginator {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Paginator{
		fetcher:   fetcher,
		store:     st,
		logger:    logger,
		pageSize:  pageSize,
		inFlight:  make(map[string]bool),
		exhausted: make(map[string]bool),
	}
}

// LoadOlder fetches up to one page of messages strictly older than the
// oldest currently-held message and merges them in. It reports whether new
// messages arrived. An empty page marks the conversation exhausted for the
// rest of its lifetime; Reset clears that when the conversation object is
// replaced or removed.
func (p *Paginator) LoadOlder(ctx context.Context, key string) (bool, error) {
	conv, ok := p.store.Get(key)
	if !ok {
		return false, fmt.Errorf("load older: conversation %q not in store", key)
	}
	if !conv.Persisted() {
		return false, nil
	}
	oldest := conv.OldestMessage()
	if oldest == nil {
		return false, nil
	}

	p.mu.Lock()
	if p.inFlight[conv.ID] || p.exhausted[conv.ID] {
		p.mu.Unlock()
		return false, nil
	}
	p.inFlight[conv.ID] = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.inFlight, conv.ID)
		p.mu.Unlock()
	}()

	fetched, err := p.fetcher.Conversation(ctx, conv.ID, p.pageSize, oldest.CreatedAt)
	if err != nil {
		p.logger.Warn("pagination fetch failed", zap.String("conversation", conv.ID), zap.Error(err))
		return false, fmt.Errorf("load older: %w", err)
	}
	if fetched == nil || len(fetched.Messages) == 0 {
		p.mu.Lock()
		p.exhausted[conv.ID] = true
		p.mu.Unlock()
		return false, nil
	}

	current, ok := p.store.Get(conv.ID)
	if !ok {
		// Deleted while the page was in flight.
		return false, nil
	}
	merged := chat.MergeMessages(current.Messages, fetched.Messages)
	if len(merged) == len(current.Messages) {
		return false, nil
	}
	if !p.store.ReplaceMessages(conv.ID, merged) {
		return false, nil
	}
	return true, nil
}

// Exhausted reports whether the conversation has no further history.
func (p *Paginator) Exhausted(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exhausted[id]
}

// Reset forgets pagination state for a conversation. Called when the
// conversation object is removed or replaced wholesale.
func (p *Paginator) Reset(id string) {
	p.mu.Lock()
	delete(p.exhausted, id)
	p.mu.Unlock()
}

// ResetAll forgets exhaustion for every conversation. Bootstrap and silent
// refresh replace each conversation object, so no prior exhaustion applies
// to the fresh copies.
func (p *Paginator) ResetAll() {
	p.mu.Lock()
	p.exhausted = make(map[string]bool)
	p.mu.Unlock()
}
