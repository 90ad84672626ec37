// Package homefeed loads the home screen's month calendar and quotes.
//
// Each load is tagged with a generation. A result is applied only if no
// newer load began and the feed was not closed in the meantime; superseded
// calls also have their context cancelled.
package homefeed

import (
	"context"
	"sync"
)

// Ticket identifies one load.
type Ticket struct {
	Key    string
	gen    uint64
	cancel context.CancelFunc
}

// Tracker hands out generations for one feed.
type Tracker struct {
	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	closed bool
}

// Begin starts a load for key, superseding any load in flight. The returned
// context ends when the load is superseded, the tracker closes, or ctx ends.
func (t *Tracker) Begin(ctx context.Context, key string) (context.Context, Ticket) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}
	loadCtx, cancel := context.WithCancel(ctx)
	if t.closed {
		cancel()
	}
	t.gen++
	t.cancel = cancel
	return loadCtx, Ticket{Key: key, gen: t.gen, cancel: cancel}
}

// Commit releases tk and reports whether its result may be applied. Every
// Begin must be paired with a Commit.
func (t *Tracker) Commit(tk Ticket) bool {
	if tk.cancel != nil {
		tk.cancel()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.closed && tk.gen == t.gen
}

// Close discards every load in flight and any started later.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	if t.cancel != nil {
		t.cancel()
	}
}
