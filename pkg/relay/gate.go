package relay

import (
	"sync"
	"time"
)

// FlushFunc receives one assembled batch, parts in arrival order.
type FlushFunc func(batch *Event)

// Gate groups a burst of related events (album parts) under one key
// into a single batch, and independently coalesces duplicate triggers
// of low-value side effects.
//
// The first part under a key starts a debounce window; parts arriving
// inside the window are appended. When the window elapses the batch is
// flushed oldest-first and the key is cleared. A keyless admit passes
// straight through. The gate is process-local; a multi-process
// deployment would need to externalize it.
type Gate struct {
	window  time.Duration
	sliding bool
	flush   FlushFunc

	mu      sync.Mutex
	pending map[string]*pendingBatch
	seen    map[string]time.Time
	stopped bool

	now func() time.Time
}

type pendingBatch struct {
	event *Event
	timer *time.Timer
}

// NewGate creates a gate with the given debounce window. With sliding
// set, each appended part refreshes the window; otherwise the window is
// fixed from the first part.
func NewGate(window time.Duration, sliding bool, flush FlushFunc) *Gate {
	return &Gate{
		window:  window,
		sliding: sliding,
		flush:   flush,
		pending: make(map[string]*pendingBatch),
		seen:    make(map[string]time.Time),
		now:     time.Now,
	}
}

// Admit buffers ev under key, or delivers it immediately when key is
// empty or no window is configured. Parts merged under one key keep
// the first part's tenant and user context; their messages are
// concatenated in arrival order.
func (g *Gate) Admit(key string, ev *Event) {
	if key == "" || g.window <= 0 {
		g.flush(ev)
		return
	}

	g.mu.Lock()
	if g.stopped {
		g.mu.Unlock()
		return
	}
	if batch, ok := g.pending[key]; ok {
		batch.event.Messages = append(batch.event.Messages, ev.Messages...)
		if g.sliding {
			batch.timer.Reset(g.window)
		}
		g.mu.Unlock()
		return
	}
	batch := &pendingBatch{event: ev}
	batch.timer = time.AfterFunc(g.window, func() { g.fire(key) })
	g.pending[key] = batch
	g.mu.Unlock()
}

func (g *Gate) fire(key string) {
	g.mu.Lock()
	batch, ok := g.pending[key]
	delete(g.pending, key)
	g.mu.Unlock()
	if !ok {
		return
	}
	g.flush(batch.event)
}

// Allow reports whether a trigger under key may fire now, suppressing
// repeats within interval. Used to coalesce duplicate notices such as
// the edited-message hint.
func (g *Gate) Allow(key string, interval time.Duration) bool {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	if last, ok := g.seen[key]; ok && now.Sub(last) < interval {
		return false
	}
	g.seen[key] = now

	// Drop stale entries so the map does not grow unbounded.
	for k, t := range g.seen {
		if now.Sub(t) >= interval {
			delete(g.seen, k)
		}
	}
	return true
}

// Stop cancels all pending windows. Buffered partial batches are lost,
// which is acceptable: the transport redelivers undelivered updates.
func (g *Gate) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopped = true
	for key, batch := range g.pending {
		batch.timer.Stop()
		delete(g.pending, key)
	}
}
