package sync

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulologeh/pychat/internal/chat"
	"github.com/paulologeh/pychat/internal/store"
	"go.uber.org/zap"
)

func TestLoadOlderMergesPage(t *testing.T) {
	f := &fakeFetcher{
		conv: func(_ context.Context, id string, limit int, before time.Time) (*chat.Conversation, error) {
			if limit != DefaultPageSize {
				t.Errorf("limit = %d, want %d", limit, DefaultPageSize)
			}
			if !before.Equal(time.UnixMilli(3000)) {
				t.Errorf("cursor = %v, want oldest held message", before)
			}
			return &chat.Conversation{ID: id, Messages: []chat.Message{
				msgAt("m1", 2, 1000), msgAt("m2", 2, 2000),
			}}, nil
		},
	}
	st := store.New(nil)
	st.Upsert(&chat.Conversation{ID: "c1", SenderID: 1, RecipientID: 2,
		Messages: []chat.Message{msgAt("m3", 2, 3000)}})
	p := NewPaginator(f, st, 0, zap.NewNop())

	loaded, err := p.LoadOlder(context.Background(), "c1")
	if err != nil {
		t.Fatal(err)
	}
	if !loaded {
		t.Fatal("expected new messages")
	}

	c, _ := st.Get("c1")
	if len(c.Messages) != 3 || c.Messages[0].ID != "m1" || c.Messages[2].ID != "m3" {
		t.Errorf("messages = %v, want m1 m2 m3", c.Messages)
	}
}

func TestLoadOlderExhaustionIsPermanent(t *testing.T) {
	var fetches atomic.Int32
	f := &fakeFetcher{
		conv: func(_ context.Context, id string, _ int, _ time.Time) (*chat.Conversation, error) {
			fetches.Add(1)
			return &chat.Conversation{ID: id}, nil // no older messages
		},
	}
	st := store.New(nil)
	st.Upsert(&chat.Conversation{ID: "c1", SenderID: 1, RecipientID: 2,
		Messages: []chat.Message{msgAt("m1", 2, 1000)}})
	p := NewPaginator(f, st, 10, zap.NewNop())

	if loaded, err := p.LoadOlder(context.Background(), "c1"); err != nil || loaded {
		t.Fatalf("loaded=%v err=%v, want empty page", loaded, err)
	}
	if !p.Exhausted("c1") {
		t.Fatal("exhaustion flag not set")
	}

	// A later call must not fetch again.
	if _, err := p.LoadOlder(context.Background(), "c1"); err != nil {
		t.Fatal(err)
	}
	if got := fetches.Load(); got != 1 {
		t.Errorf("fetches = %d, want 1", got)
	}
}

func TestLoadOlderNoopForDraft(t *testing.T) {
	var fetches atomic.Int32
	f := &fakeFetcher{
		conv: func(_ context.Context, id string, _ int, _ time.Time) (*chat.Conversation, error) {
			fetches.Add(1)
			return nil, nil
		},
	}
	st := store.New(nil)
	st.Upsert(&chat.Conversation{LocalID: "d1", SenderID: 1, RecipientID: 2})
	p := NewPaginator(f, st, 10, zap.NewNop())

	if loaded, err := p.LoadOlder(context.Background(), "d1"); err != nil || loaded {
		t.Fatalf("loaded=%v err=%v, want no-op for draft", loaded, err)
	}
	if fetches.Load() != 0 {
		t.Error("draft pagination issued a fetch")
	}
}

func TestResetClearsExhaustion(t *testing.T) {
	f := &fakeFetcher{
		conv: func(_ context.Context, id string, _ int, _ time.Time) (*chat.Conversation, error) {
			return &chat.Conversation{ID: id}, nil
		},
	}
	st := store.New(nil)
	st.Upsert(&chat.Conversation{ID: "c1", SenderID: 1, RecipientID: 2,
		Messages: []chat.Message{msgAt("m1", 2, 1000)}})
	p := NewPaginator(f, st, 10, zap.NewNop())

	if _, err := p.LoadOlder(context.Background(), "c1"); err != nil {
		t.Fatal(err)
	}
	if !p.Exhausted("c1") {
		t.Fatal("expected exhaustion")
	}

	// Replacing the conversation object clears the flag.
	p.Reset("c1")
	if p.Exhausted("c1") {
		t.Error("exhaustion survived reset")
	}
}

func TestResetAllClearsEveryExhaustion(t *testing.T) {
	f := &fakeFetcher{
		conv: func(_ context.Context, id string, _ int, _ time.Time) (*chat.Conversation, error) {
			return &chat.Conversation{ID: id}, nil
		},
	}
	st := store.New(nil)
	for _, id := range []string{"c1", "c2"} {
		st.Upsert(&chat.Conversation{ID: id, SenderID: 1, RecipientID: 2,
			Messages: []chat.Message{msgAt("m-"+id, 2, 1000)}})
	}
	p := NewPaginator(f, st, 10, zap.NewNop())

	for _, id := range []string{"c1", "c2"} {
		if _, err := p.LoadOlder(context.Background(), id); err != nil {
			t.Fatal(err)
		}
		if !p.Exhausted(id) {
			t.Fatalf("expected %s exhausted", id)
		}
	}

	p.ResetAll()
	for _, id := range []string{"c1", "c2"} {
		if p.Exhausted(id) {
			t.Errorf("exhaustion for %s survived ResetAll", id)
		}
	}
}
