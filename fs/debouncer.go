package fs

import (
	"sync"
	"sync/atomic"
	"time"
)

// Default debounce delay for coalescing rapid filesystem events.
// A single rename or save commonly produces several raw notifications.
const DefaultDebounceDelay = 150 * time.Millisecond

// debouncer coalesces rapid events per key. Every Queue call for a key resets
// that key's timer; onProcess runs once the key has been quiet for delay and
// receives the number of raw events folded into that call.
type debouncer struct {
	pending   map[string]*pendingEvent
	mu        sync.Mutex
	delay     time.Duration
	onProcess func(key string, coalesced int)
	stopping  atomic.Bool // Prevents new events during shutdown
}

// pendingEvent represents a queued key waiting to be processed
type pendingEvent struct {
	timer *time.Timer
	gen   uint64
	count int // raw events coalesced into this firing
}

// newDebouncer creates a debouncer with specified delay
func newDebouncer(delay time.Duration, onProcess func(key string, coalesced int)) *debouncer {
	if delay <= 0 {
		delay = DefaultDebounceDelay
	}
	return &debouncer{
		pending:   make(map[string]*pendingEvent),
		delay:     delay,
		onProcess: onProcess,
	}
}

// Queue records an event for key and (re)starts its timer.
// Returns false if the debouncer is stopping and the event was ignored.
func (d *debouncer) Queue(key string) bool {
	if d.stopping.Load() {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	// Double-check after acquiring lock (prevents race with Stop)
	if d.stopping.Load() {
		return false
	}

	if p, ok := d.pending[key]; ok {
		p.count++
		if p.timer.Reset(d.delay) {
			return true
		}
		// Timer already fired and its callback is waiting on mu. Bump the
		// generation so that callback drops out, and arm a fresh timer.
		p.gen++
		gen := p.gen
		p.timer = time.AfterFunc(d.delay, func() { d.onTimer(key, gen) })
		return true
	}

	p := &pendingEvent{count: 1}
	gen := p.gen
	p.timer = time.AfterFunc(d.delay, func() { d.onTimer(key, gen) })
	d.pending[key] = p
	return true
}

// onTimer fires when debounce delay expires
func (d *debouncer) onTimer(key string, gen uint64) {
	d.mu.Lock()
	p, ok := d.pending[key]
	if !ok || p.gen != gen || d.stopping.Load() {
		d.mu.Unlock()
		return
	}
	count := p.count
	delete(d.pending, key)
	d.mu.Unlock()

	d.onProcess(key, count)
}

// Cancel drops any pending event for key without processing it
func (d *debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.pending[key]; ok {
		p.timer.Stop()
		delete(d.pending, key)
	}
}

// Stop cancels all pending events and prevents new ones from being queued.
// After Stop returns, no more events will be processed.
func (d *debouncer) Stop() {
	d.stopping.Store(true)

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, p := range d.pending {
		p.timer.Stop()
	}
	d.pending = make(map[string]*pendingEvent)
}

// PendingCount returns the number of pending keys (for testing)
func (d *debouncer) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
