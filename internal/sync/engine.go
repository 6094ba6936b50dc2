// Package sync is the orchestrator: it drains the push-event queue,
// reconciles pushes against the server through the fetch collaborator,
// folds results into the store via the merge engine, and serializes
// conflicting operations per conversation.
package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/paulologeh/pychat/internal/api"
	"github.com/paulologeh/pychat/internal/bus"
	"github.com/paulologeh/pychat/internal/chat"
	"github.com/paulologeh/pychat/internal/push"
	"github.com/paulologeh/pychat/internal/status"
	"github.com/paulologeh/pychat/internal/store"
	"go.uber.org/zap"
)

// DefaultPageSize caps how many older messages one pagination fetch returns.
const DefaultPageSize = 10

// Fetcher is the REST collaborator surface the engine needs.
type Fetcher interface {
	AllConversations(ctx context.Context) ([]*chat.Conversation, error)
	Conversation(ctx context.Context, id string, limit int, before time.Time) (*chat.Conversation, error)
	SendMessage(ctx context.Context, conversationID, body string) (*chat.Message, error)
	CreateConversation(ctx context.Context, recipientID int, messageBody string) (*chat.Conversation, error)
	DeleteConversation(ctx context.Context, id string) error
	ReadMessages(ctx context.Context, messageIDs []string) error
	Friends(ctx context.Context) (chat.Relationships, error)
	AddFriend(ctx context.Context, username string) error
	RemoveFriend(ctx context.Context, username string) error
	BlockUser(ctx context.Context, username string) error
	UnblockUser(ctx context.Context, username string) error
	SearchUser(ctx context.Context, username string) (*chat.Profile, error)
}

// Engine keeps the local conversation store consistent with the server.
// All state it manages is ephemeral: Bootstrap rebuilds it from scratch.
type Engine struct {
	fetcher Fetcher
	store   *store.Store
	queue   *Queue
	bus     *bus.Bus
	machine *status.Machine
	logger  *zap.Logger
	userID  int

	locks  *keyedMutex
	pager  *Paginator
	reader *readTracker
	cancel context.CancelFunc
	done   chan struct{}
}

// NewEngine creates a sync engine for the given user. machine may be nil in
// tests.
func NewEngine(fetcher Fetcher, st *store.Store, b *bus.Bus, machine *status.Machine, userID int, logger *zap.Logger) *Engine {
	e := &Engine{
		fetcher: fetcher,
		store:   st,
		queue:   NewQueue(),
		bus:     b,
		machine: machine,
		logger:  logger,
		userID:  userID,
		locks:   newKeyedMutex(),
		reader:  newReadTracker(),
	}
	e.pager = NewPaginator(fetcher, st, DefaultPageSize, logger)
	return e
}

// Store exposes the conversation store for observers.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Paginator exposes the pagination controller.
func (e *Engine) Paginator() *Paginator {
	return e.pager
}

// UserID returns the current user's identifier.
func (e *Engine) UserID() int {
	return e.userID
}

// Enqueue accepts one push event. It is the push listener's sink and never
// blocks.
func (e *Engine) Enqueue(evt push.Event) {
	e.queue.Push(evt)
}

// Start launches the drain loop.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	e.done = make(chan struct{})

	go func() {
		defer close(e.done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-e.queue.Wake():
				// Drain to empty before idling again so no buffered
				// event starves behind a collapsed wake signal.
				for {
					evt, ok := e.queue.Pop()
					if !ok {
						break
					}
					e.HandlePush(ctx, evt)
				}
			}
		}
	}()
}

// Stop terminates the drain loop and waits for it to exit.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
		<-e.done
	}
}

// Bootstrap fetches all conversations and the relationship summary in
// parallel and populates the store. A failure is blocking: no partial state
// is installed and the session is not considered ready.
func (e *Engine) Bootstrap(ctx context.Context) error {
	if e.machine != nil {
		_ = e.machine.Transition(status.Bootstrapping)
	}

	convs, rels, err := e.fetchAll(ctx)
	if err != nil {
		if e.machine != nil {
			_ = e.machine.Transition(status.Error)
		}
		e.surface("modal", err)
		return fmt.Errorf("bootstrap: %w", err)
	}

	e.store.Replace(convs)
	e.store.SetRelationships(rels)
	e.pager.ResetAll()
	if e.machine != nil {
		_ = e.machine.Transition(status.Ready)
	}
	e.logger.Info("bootstrap complete",
		zap.Int("conversations", len(convs)),
		zap.Int("friends", len(rels.Friends)))
	return nil
}

// RefreshSilently repeats the bootstrap fetches in the background. Failures
// are logged only; the previous store state survives until a cycle
// succeeds.
func (e *Engine) RefreshSilently(ctx context.Context) {
	convs, rels, err := e.fetchAll(ctx)
	if err != nil {
		e.logger.Warn("silent refresh failed", zap.Error(err))
		return
	}
	e.store.Replace(convs)
	e.store.SetRelationships(rels)
	e.pager.ResetAll()
	e.logger.Info("silent refresh complete", zap.Int("conversations", len(convs)))
}

func (e *Engine) fetchAll(ctx context.Context) ([]*chat.Conversation, chat.Relationships, error) {
	var (
		convs    []*chat.Conversation
		rels     chat.Relationships
		convErr  error
		relsErr  error
		relsDone = make(chan struct{})
	)
	go func() {
		defer close(relsDone)
		rels, relsErr = e.fetcher.Friends(ctx)
	}()
	convs, convErr = e.fetcher.AllConversations(ctx)
	<-relsDone

	if convErr != nil {
		return nil, chat.Relationships{}, convErr
	}
	if relsErr != nil {
		return nil, chat.Relationships{}, relsErr
	}
	return convs, rels, nil
}

// HandlePush reconciles one push event. Unknown domains and change kinds
// are forward-compatible no-ops.
func (e *Engine) HandlePush(ctx context.Context, evt push.Event) {
	switch evt.Name {
	case push.DomainConversation:
		e.handleConversationPush(ctx, evt)
	case push.DomainRelationship:
		e.syncRelationships(ctx)
	default:
		e.logger.Warn("ignoring push event for unknown domain", zap.String("domain", evt.Name))
	}
}

func (e *Engine) handleConversationPush(ctx context.Context, evt push.Event) {
	if evt.ID == "" {
		e.logger.Warn("ignoring conversation push without subject id", zap.String("kind", evt.Kind))
		return
	}

	switch evt.Kind {
	case push.KindDelete:
		// Remove clears the active reference when it pointed here.
		if e.store.Remove(evt.ID) {
			e.pager.Reset(evt.ID)
			e.logger.Info("conversation removed by push", zap.String("conversation", evt.ID))
		}
	case push.KindNew:
		conv, err := e.fetcher.Conversation(ctx, evt.ID, 0, time.Time{})
		if err != nil {
			e.logger.Warn("push NEW fetch failed", zap.String("conversation", evt.ID), zap.Error(err))
			return
		}
		if conv == nil {
			// Visibility revoked between push and fetch.
			return
		}
		e.store.Upsert(conv)
		e.pager.Reset(conv.ID)
	case push.KindUpdate:
		e.reconcileUpdate(ctx, evt.ID)
	default:
		e.logger.Warn("ignoring unknown conversation change kind", zap.String("kind", evt.Kind))
	}
}

// reconcileUpdate refetches a conversation (unbounded, no cursor) and merges
// its messages into the local copy. Holding the conversation lock for the
// whole cycle keeps a second reconciliation for the same conversation from
// starting until this one has resolved and merged.
func (e *Engine) reconcileUpdate(ctx context.Context, id string) {
	lock := e.locks.get(id)
	lock.Lock()
	defer lock.Unlock()

	fetched, err := e.fetcher.Conversation(ctx, id, 0, time.Time{})
	if err != nil {
		e.logger.Warn("push UPDATE fetch failed", zap.String("conversation", id), zap.Error(err))
		return
	}
	if fetched == nil || len(fetched.Messages) == 0 {
		return
	}

	existing, ok := e.store.Get(id)
	if !ok {
		// Deleted while the fetch was outstanding: stale result, discard.
		e.logger.Info("discarding stale fetch result", zap.String("conversation", id))
		return
	}
	if chat.ContainsAll(existing.Messages, fetched.Messages) {
		// Nothing new: skip the store write and observer wakeup.
		return
	}

	merged := chat.MergeMessages(existing.Messages, fetched.Messages)
	if !e.store.ReplaceMessages(id, merged) {
		e.logger.Info("discarding stale fetch result", zap.String("conversation", id))
	}
}

func (e *Engine) syncRelationships(ctx context.Context) {
	rels, err := e.fetcher.Friends(ctx)
	if err != nil {
		e.logger.Warn("relationship refetch failed", zap.Error(err))
		return
	}
	e.store.SetRelationships(rels)
}

// OpenConversationWith makes the conversation with userID active, creating
// a local draft when none exists yet. At most one conversation per
// counterpart ever exists; at most one draft ever exists.
func (e *Engine) OpenConversationWith(userID int) (*chat.Conversation, error) {
	if userID == e.userID {
		return nil, errors.New("cannot open a conversation with yourself")
	}
	if existing, ok := e.store.ByCounterpart(userID, e.userID); ok {
		if err := e.store.SetActive(store.Key(existing)); err != nil {
			return nil, err
		}
		return existing, nil
	}

	draft := &chat.Conversation{
		LocalID:     uuid.NewString(),
		SenderID:    e.userID,
		RecipientID: userID,
	}
	e.store.Upsert(draft)
	if err := e.store.SetActive(draft.LocalID); err != nil {
		return nil, err
	}
	return draft, nil
}

// SendMessage sends body in the conversation addressed by key. No message
// is added to the timeline until the server confirms, so a failed send
// leaves no ghost entry; the failure is published as a transient
// message.send_failed event instead. A draft is promoted to its persisted
// successor on first successful send and made active.
func (e *Engine) SendMessage(ctx context.Context, key, body string) (*chat.Conversation, error) {
	conv, ok := e.store.Get(key)
	if !ok {
		return nil, fmt.Errorf("send message: conversation %q not in store", key)
	}

	lock := e.locks.get(key)
	lock.Lock()
	defer lock.Unlock()

	// Re-resolve under the lock. A send that held the lock first may have
	// promoted the draft, in which case its persisted successor (same
	// counterpart, new key) receives this message instead of a second
	// CreateConversation producing a duplicate conversation.
	fresh, ok := e.store.Get(key)
	switch {
	case ok:
		conv = fresh
	case !conv.Persisted():
		succ, found := e.store.ByCounterpart(conv.Counterpart(e.userID), e.userID)
		if !found {
			return nil, fmt.Errorf("send message: conversation %q not in store", key)
		}
		conv = succ
	default:
		return nil, fmt.Errorf("send message: conversation %q not in store", key)
	}

	if conv.Persisted() {
		msg, err := e.fetcher.SendMessage(ctx, conv.ID, body)
		if err != nil {
			e.publishSendFailure(conv, err)
			return nil, fmt.Errorf("send message: %w", err)
		}

		current, ok := e.store.Get(conv.ID)
		if !ok {
			// Conversation vanished mid-send; nothing to merge into.
			return nil, nil
		}
		merged := chat.MergeMessages(current.Messages, []chat.Message{*msg})
		e.store.ReplaceMessages(conv.ID, merged)
		e.publish("message.sent", map[string]string{
			"conversation": conv.ID,
			"message":      msg.ID,
		})
		updated, _ := e.store.Get(conv.ID)
		return updated, nil
	}

	created, err := e.fetcher.CreateConversation(ctx, conv.Counterpart(e.userID), body)
	if err != nil {
		e.publishSendFailure(conv, err)
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	e.store.ReplaceDraft(conv.LocalID, created)
	if err := e.store.SetActive(created.ID); err != nil {
		return nil, err
	}
	e.publish("message.sent", map[string]string{"conversation": created.ID})
	return created, nil
}

// DeleteConversation deletes the conversation on the server and removes it
// locally. Any response from the server, success or error status, results
// in local removal; only a transport failure (no response at all) leaves
// the local state untouched.
func (e *Engine) DeleteConversation(ctx context.Context, id string) error {
	conv, ok := e.store.Get(id)
	if !ok || !conv.Persisted() {
		return fmt.Errorf("delete conversation: %q not in store or not persisted", id)
	}

	lock := e.locks.get(id)
	lock.Lock()
	defer lock.Unlock()

	err := e.fetcher.DeleteConversation(ctx, id)
	var apiErr *api.APIError
	if err != nil && !errors.As(err, &apiErr) {
		e.surface("toast", err)
		return fmt.Errorf("delete conversation: %w", err)
	}
	if err != nil {
		e.surface("toast", err)
	}

	e.store.Remove(id)
	e.pager.Reset(id)
	return nil
}

// MarkRead acknowledges all unread messages of the conversation addressed
// by key, then stamps them read locally once the server confirms. A second
// read cycle for the same conversation does not start while one is
// outstanding.
func (e *Engine) MarkRead(ctx context.Context, key string) error {
	conv, ok := e.store.Get(key)
	if !ok {
		return fmt.Errorf("mark read: conversation %q not in store", key)
	}

	ids := chat.UnreadIDs(conv.Messages, e.userID)
	if len(ids) == 0 {
		return nil
	}

	if !e.reader.begin(key) {
		return nil
	}
	defer e.reader.finish(key)

	if err := e.fetcher.ReadMessages(ctx, ids); err != nil {
		e.logger.Warn("read acknowledgement failed", zap.String("conversation", key), zap.Error(err))
		return fmt.Errorf("mark read: %w", err)
	}

	e.store.MarkRead(key, ids, time.Now())
	return nil
}

func (e *Engine) publishSendFailure(conv *chat.Conversation, err error) {
	e.logger.Warn("message send failed", zap.String("conversation", store.Key(conv)), zap.Error(err))
	e.publish("message.send_failed", bus.SendFailure{
		ConversationID: conv.ID,
		DraftLocalID:   conv.LocalID,
		Reason:         errorMessage(err),
	})
}

func (e *Engine) publish(kind string, payload any) {
	if e.bus != nil {
		e.bus.Publish(bus.Event{Kind: kind, Timestamp: time.Now(), Payload: payload})
	}
}

// surface reports a foreground failure for the UI to present. Background
// paths never call it.
func (e *Engine) surface(kind string, err error) {
	e.publish("app.error", bus.AppError{Surface: kind, Message: errorMessage(err)})
}

const defaultErrorMessage = "Something went wrong. Please try again later"

// errorMessage extracts the server's human-readable message when there is
// one, falling back to a generic user-facing string.
func errorMessage(err error) string {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return defaultErrorMessage
}
