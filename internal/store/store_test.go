package store

import (
	"testing"
	"time"

	"github.com/paulologeh/pychat/internal/bus"
	"github.com/paulologeh/pychat/internal/chat"
)

func conv(id string, msgs ...chat.Message) *chat.Conversation {
	return &chat.Conversation{ID: id, SenderID: 1, RecipientID: 2, Messages: msgs}
}

func draft(localID string, recipient int) *chat.Conversation {
	return &chat.Conversation{LocalID: localID, SenderID: 1, RecipientID: recipient}
}

func TestUpsertReplacesByID(t *testing.T) {
	s := New(nil)
	s.Upsert(conv("c1"))
	s.Upsert(conv("c1", chat.Message{ID: "m1", CreatedAt: time.Now()}))

	all := s.All()
	if len(all) != 1 {
		t.Fatalf("got %d conversations, want 1", len(all))
	}
	if len(all[0].Messages) != 1 {
		t.Errorf("replacement did not take effect")
	}
}

func TestSingleDraftInvariant(t *testing.T) {
	s := New(nil)
	s.Upsert(conv("c1"))
	s.Upsert(draft("d1", 5))
	s.Upsert(draft("d2", 6))

	drafts := 0
	for _, c := range s.All() {
		if !c.Persisted() {
			drafts++
		}
	}
	if drafts != 1 {
		t.Errorf("got %d drafts, want 1", drafts)
	}
	if _, ok := s.Get("d2"); !ok {
		t.Error("newest draft should survive")
	}
}

func TestUpsertDraftDiscardNotifiesActiveCleared(t *testing.T) {
	b := bus.New()
	s := New(b)
	s.Upsert(draft("d1", 5))
	if err := s.SetActive("d1"); err != nil {
		t.Fatal(err)
	}

	activeCh, unsub := b.Subscribe("store.active", 10)
	defer unsub()

	s.Upsert(draft("d2", 6))

	select {
	case evt := <-activeCh:
		if evt.Payload != "" {
			t.Errorf("active key = %v, want cleared", evt.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("no store.active event after the active draft was discarded")
	}
	if s.ActiveKey() != "" {
		t.Errorf("active key = %q, want empty", s.ActiveKey())
	}
}

func TestReplaceDraftPromotesActive(t *testing.T) {
	s := New(nil)
	s.Upsert(draft("d1", 5))
	if err := s.SetActive("d1"); err != nil {
		t.Fatal(err)
	}

	persisted := &chat.Conversation{ID: "c9", SenderID: 1, RecipientID: 5}
	s.ReplaceDraft("d1", persisted)

	if _, ok := s.Get("d1"); ok {
		t.Error("draft survived promotion")
	}
	active, ok := s.Active()
	if !ok || active.ID != "c9" {
		t.Errorf("active = %v, want c9", active)
	}
}

func TestReplaceDraftDiscardsExistingWithSameID(t *testing.T) {
	s := New(nil)
	s.Upsert(conv("c9"))
	s.Upsert(draft("d1", 5))

	s.ReplaceDraft("d1", &chat.Conversation{ID: "c9", SenderID: 1, RecipientID: 5})

	withID := 0
	for _, c := range s.All() {
		if c.ID == "c9" {
			withID++
		}
	}
	if withID != 1 {
		t.Errorf("got %d conversations with id c9, want 1", withID)
	}
	if len(s.All()) != 1 {
		t.Errorf("got %d conversations, want 1", len(s.All()))
	}
}

func TestRemoveClearsActive(t *testing.T) {
	s := New(nil)
	s.Upsert(conv("c1"))
	if err := s.SetActive("c1"); err != nil {
		t.Fatal(err)
	}

	if !s.Remove("c1") {
		t.Fatal("remove failed")
	}
	if key := s.ActiveKey(); key != "" {
		t.Errorf("active key = %q, want empty", key)
	}
}

func TestSetActiveRequiresMember(t *testing.T) {
	s := New(nil)
	if err := s.SetActive("ghost"); err == nil {
		t.Error("expected error for unknown conversation")
	}
}

func TestClearActiveDiscardsDraft(t *testing.T) {
	s := New(nil)
	s.Upsert(conv("c1"))
	s.Upsert(draft("d1", 5))
	if err := s.SetActive("d1"); err != nil {
		t.Fatal(err)
	}

	s.ClearActive()

	if _, ok := s.Get("d1"); ok {
		t.Error("draft should be discarded on navigation away")
	}
	if _, ok := s.Get("c1"); !ok {
		t.Error("persisted conversation should survive")
	}
}

func TestReplaceKeepsResolvingActive(t *testing.T) {
	s := New(nil)
	s.Upsert(conv("c1"))
	s.Upsert(conv("c2"))
	if err := s.SetActive("c2"); err != nil {
		t.Fatal(err)
	}

	s.Replace([]*chat.Conversation{conv("c2")})
	if key := s.ActiveKey(); key != "c2" {
		t.Errorf("active key = %q, want c2", key)
	}

	s.Replace([]*chat.Conversation{conv("c3")})
	if key := s.ActiveKey(); key != "" {
		t.Errorf("active key = %q, want empty after active vanished", key)
	}
}

func TestReplaceMessagesMissingConversation(t *testing.T) {
	s := New(nil)
	if s.ReplaceMessages("gone", []chat.Message{{ID: "m1"}}) {
		t.Error("ReplaceMessages should report a missing conversation")
	}
}

func TestMarkRead(t *testing.T) {
	s := New(nil)
	s.Upsert(conv("c1",
		chat.Message{ID: "m1", SenderID: 2},
		chat.Message{ID: "m2", SenderID: 2},
	))

	now := time.Now()
	if got := s.MarkRead("c1", []string{"m1"}, now); got != 1 {
		t.Fatalf("marked %d, want 1", got)
	}
	// A second pass over the same ID changes nothing: read never reverts.
	if got := s.MarkRead("c1", []string{"m1"}, now.Add(time.Hour)); got != 0 {
		t.Errorf("re-mark changed %d messages, want 0", got)
	}

	c, _ := s.Get("c1")
	if c.Messages[0].Read == nil || !c.Messages[0].Read.Equal(now) {
		t.Error("read timestamp not applied")
	}
	if c.Messages[1].Read != nil {
		t.Error("unrelated message marked read")
	}
}

func TestAllOrdersNewestFirst(t *testing.T) {
	s := New(nil)
	s.Upsert(conv("old", chat.Message{ID: "m1", CreatedAt: time.UnixMilli(1000)}))
	s.Upsert(conv("new", chat.Message{ID: "m2", CreatedAt: time.UnixMilli(2000)}))
	s.Upsert(draft("d1", 5))

	all := s.All()
	want := []string{"d1", "new", "old"}
	for i, c := range all {
		if Key(c) != want[i] {
			t.Errorf("position %d = %q, want %q", i, Key(c), want[i])
		}
	}
}

func TestByCounterpart(t *testing.T) {
	s := New(nil)
	s.Upsert(&chat.Conversation{ID: "c1", SenderID: 7, RecipientID: 1})

	c, ok := s.ByCounterpart(7, 1)
	if !ok || c.ID != "c1" {
		t.Errorf("ByCounterpart = %v, want c1", c)
	}
	if _, ok := s.ByCounterpart(9, 1); ok {
		t.Error("unexpected counterpart match")
	}
}
