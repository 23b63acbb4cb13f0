package fs

import (
	"sync"
	"testing"
	"time"
)

type firings struct {
	mu    sync.Mutex
	keys  []string
	count []int
}

func (f *firings) record(key string, coalesced int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	f.count = append(f.count, coalesced)
}

func (f *firings) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.keys)
}

func TestDebouncer_CoalescesBurst(t *testing.T) {
	f := &firings{}
	d := newDebouncer(50*time.Millisecond, f.record)
	defer d.Stop()

	for i := 0; i < 50; i++ {
		d.Queue("/dir")
	}

	time.Sleep(150 * time.Millisecond)

	if n := f.len(); n != 1 {
		t.Fatalf("expected 1 firing, got %d", n)
	}
	if f.count[0] != 50 {
		t.Errorf("expected 50 coalesced events, got %d", f.count[0])
	}
}

func TestDebouncer_ResetTimerOnNewEvent(t *testing.T) {
	var firedAt time.Time
	var mu sync.Mutex
	d := newDebouncer(50*time.Millisecond, func(string, int) {
		mu.Lock()
		firedAt = time.Now()
		mu.Unlock()
	})
	defer d.Stop()

	start := time.Now()
	d.Queue("k")
	time.Sleep(25 * time.Millisecond)
	d.Queue("k")
	time.Sleep(25 * time.Millisecond)
	d.Queue("k")

	time.Sleep(120 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if firedAt.IsZero() {
		t.Fatal("debouncer never fired")
	}
	// ~50ms of queueing plus one full delay
	if elapsed := firedAt.Sub(start); elapsed < 90*time.Millisecond {
		t.Errorf("fired too early: %v", elapsed)
	}
}

func TestDebouncer_SeparateBurstsFireSeparately(t *testing.T) {
	f := &firings{}
	d := newDebouncer(30*time.Millisecond, f.record)
	defer d.Stop()

	d.Queue("k")
	time.Sleep(80 * time.Millisecond)
	d.Queue("k")
	time.Sleep(80 * time.Millisecond)

	if n := f.len(); n != 2 {
		t.Errorf("expected 2 firings, got %d", n)
	}
}

func TestDebouncer_IndependentKeys(t *testing.T) {
	f := &firings{}
	d := newDebouncer(30*time.Millisecond, f.record)
	defer d.Stop()

	d.Queue("a")
	d.Queue("b")
	d.Queue("a")

	time.Sleep(80 * time.Millisecond)

	if n := f.len(); n != 2 {
		t.Errorf("expected one firing per key, got %d", n)
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	f := &firings{}
	d := newDebouncer(30*time.Millisecond, f.record)
	defer d.Stop()

	d.Queue("a")
	d.Cancel("a")

	time.Sleep(60 * time.Millisecond)

	if n := f.len(); n != 0 {
		t.Errorf("cancelled key fired %d times", n)
	}
	if d.PendingCount() != 0 {
		t.Errorf("expected no pending keys, got %d", d.PendingCount())
	}
}

func TestDebouncer_StopPreventsNewEvents(t *testing.T) {
	f := &firings{}
	d := newDebouncer(20*time.Millisecond, f.record)

	d.Queue("a")
	d.Stop()

	if d.Queue("b") {
		t.Error("Queue after Stop should return false")
	}

	time.Sleep(50 * time.Millisecond)

	if n := f.len(); n != 0 {
		t.Errorf("expected no firings after Stop, got %d", n)
	}
}
