// Package search provides debounced user lookup for search-as-you-type
// surfaces. Each keystroke schedules a query; only the last term typed
// within the quiet period reaches the server.
package search

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/paulologeh/pychat/internal/chat"
)

// DefaultQuietPeriod is how long input must be idle before a query fires.
const DefaultQuietPeriod = 300 * time.Millisecond

// Searcher is the API surface the debouncer queries.
type Searcher interface {
	SearchUsers(ctx context.Context, term string) ([]chat.User, error)
}

// Results delivers the outcome of a fired query. Superseded queries are
// never delivered.
type Results func(term string, users []chat.User, err error)

// Debouncer coalesces rapid Query calls into one server request per quiet
// period. Safe for concurrent use.
type Debouncer struct {
	searcher Searcher
	results  Results
	logger   *zap.Logger
	quiet    time.Duration

	mu     sync.Mutex
	timer  *time.Timer
	seq    uint64
	closed bool
}

// New returns a Debouncer delivering outcomes to results. A zero quiet
// duration falls back to DefaultQuietPeriod.
func New(searcher Searcher, results Results, quiet time.Duration, logger *zap.Logger) *Debouncer {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &Debouncer{
		searcher: searcher,
		results:  results,
		logger:   logger,
		quiet:    quiet,
	}
}

// Query schedules a search for term, cancelling any pending one. An empty
// term cancels without querying, matching clearing the search box.
func (d *Debouncer) Query(ctx context.Context, term string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
	if term == "" {
		return
	}
	seq := d.seq
	d.timer = time.AfterFunc(d.quiet, func() {
		d.fire(ctx, seq, term)
	})
}

// Cancel discards any pending query.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
}

// Close cancels pending work and rejects further queries.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
	d.closed = true
}

func (d *Debouncer) fire(ctx context.Context, seq uint64, term string) {
	d.mu.Lock()
	stale := d.closed || seq != d.seq
	d.mu.Unlock()
	if stale {
		return
	}

	users, err := d.searcher.SearchUsers(ctx, term)

	// A newer query may have been scheduled while this one was in flight.
	d.mu.Lock()
	stale = d.closed || seq != d.seq
	d.mu.Unlock()
	if stale {
		return
	}

	if err != nil {
		d.logger.Warn("user search failed", zap.String("term", term), zap.Error(err))
	}
	d.results(term, users, err)
}
