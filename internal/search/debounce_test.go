package search

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/paulologeh/pychat/internal/chat"
)

type fakeSearcher struct {
	mu    sync.Mutex
	terms []string
}

func (f *fakeSearcher) SearchUsers(_ context.Context, term string) ([]chat.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terms = append(f.terms, term)
	return []chat.User{{ID: 1, Username: term}}, nil
}

func (f *fakeSearcher) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.terms...)
}

func TestOnlyLastTermFires(t *testing.T) {
	searcher := &fakeSearcher{}
	done := make(chan string, 1)
	d := New(searcher, func(term string, users []chat.User, err error) {
		done <- term
	}, 20*time.Millisecond, zap.NewNop())
	defer d.Close()

	ctx := context.Background()
	d.Query(ctx, "a")
	d.Query(ctx, "al")
	d.Query(ctx, "ali")

	select {
	case term := <-done:
		if term != "ali" {
			t.Errorf("delivered term = %q, want ali", term)
		}
	case <-time.After(time.Second):
		t.Fatal("no result delivered")
	}

	if seen := searcher.seen(); len(seen) != 1 || seen[0] != "ali" {
		t.Errorf("server saw %v, want [ali]", seen)
	}
}

func TestEmptyTermCancels(t *testing.T) {
	searcher := &fakeSearcher{}
	var fired atomic.Int32
	d := New(searcher, func(string, []chat.User, error) {
		fired.Add(1)
	}, 10*time.Millisecond, zap.NewNop())
	defer d.Close()

	ctx := context.Background()
	d.Query(ctx, "bob")
	d.Query(ctx, "")

	time.Sleep(50 * time.Millisecond)
	if n := fired.Load(); n != 0 {
		t.Errorf("results fired %d times, want 0", n)
	}
	if seen := searcher.seen(); len(seen) != 0 {
		t.Errorf("server saw %v, want none", seen)
	}
}

func TestCancelDiscardsPending(t *testing.T) {
	searcher := &fakeSearcher{}
	var fired atomic.Int32
	d := New(searcher, func(string, []chat.User, error) {
		fired.Add(1)
	}, 10*time.Millisecond, zap.NewNop())
	defer d.Close()

	d.Query(context.Background(), "carol")
	d.Cancel()

	time.Sleep(50 * time.Millisecond)
	if n := fired.Load(); n != 0 {
		t.Errorf("results fired %d times, want 0", n)
	}
}

func TestCloseRejectsFurtherQueries(t *testing.T) {
	searcher := &fakeSearcher{}
	var fired atomic.Int32
	d := New(searcher, func(string, []chat.User, error) {
		fired.Add(1)
	}, 10*time.Millisecond, zap.NewNop())

	d.Close()
	d.Query(context.Background(), "dave")

	time.Sleep(50 * time.Millisecond)
	if n := fired.Load(); n != 0 {
		t.Errorf("results fired %d times after Close, want 0", n)
	}
}
