package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestWatcher(t *testing.T, delay time.Duration) *Watcher {
	t.Helper()
	w, err := NewWatcher(delay)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

// countDirty drains the dirty channel for d and returns how many signals arrived
func countDirty(w *Watcher, d time.Duration) int {
	n := 0
	deadline := time.After(d)
	for {
		select {
		case _, ok := <-w.Dirty():
			if !ok {
				return n
			}
			n++
		case <-deadline:
			return n
		}
	}
}

func TestWatcher_BurstYieldsOneDirtySignal(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(t, 200*time.Millisecond)
	if err := w.Retarget(dir); err != nil {
		t.Fatalf("Retarget: %v", err)
	}

	for i := 0; i < 50; i++ {
		name := filepath.Join(dir, fmt.Sprintf("f%02d", i))
		if err := os.WriteFile(name, []byte("data"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	if n := countDirty(w, 700*time.Millisecond); n != 1 {
		t.Errorf("expected exactly 1 dirty signal, got %d", n)
	}
}

func TestWatcher_SignalCarriesTarget(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(t, 30*time.Millisecond)
	if err := w.Retarget(dir); err != nil {
		t.Fatalf("Retarget: %v", err)
	}

	os.Mkdir(filepath.Join(dir, "sub"), 0o755)

	select {
	case got := <-w.Dirty():
		if got != dir {
			t.Errorf("dirty path = %s, want %s", got, dir)
		}
	case <-time.After(time.Second):
		t.Fatal("no dirty signal")
	}
}

func TestWatcher_RenameAndDeleteAreReported(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "a")
	os.WriteFile(f, nil, 0o644)

	w := newTestWatcher(t, 30*time.Millisecond)
	if err := w.Retarget(dir); err != nil {
		t.Fatalf("Retarget: %v", err)
	}

	os.Rename(f, filepath.Join(dir, "b"))
	if n := countDirty(w, 200*time.Millisecond); n != 1 {
		t.Errorf("rename: expected 1 signal, got %d", n)
	}

	os.Remove(filepath.Join(dir, "b"))
	if n := countDirty(w, 200*time.Millisecond); n != 1 {
		t.Errorf("delete: expected 1 signal, got %d", n)
	}
}

func TestWatcher_RetargetIgnoresOldDirectory(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()

	w := newTestWatcher(t, 30*time.Millisecond)
	if err := w.Retarget(first); err != nil {
		t.Fatalf("Retarget: %v", err)
	}
	if err := w.Retarget(second); err != nil {
		t.Fatalf("Retarget: %v", err)
	}
	if w.Target() != second {
		t.Fatalf("target = %s, want %s", w.Target(), second)
	}

	os.WriteFile(filepath.Join(first, "x"), nil, 0o644)
	if n := countDirty(w, 200*time.Millisecond); n != 0 {
		t.Errorf("old directory produced %d signals", n)
	}

	os.WriteFile(filepath.Join(second, "y"), nil, 0o644)
	if n := countDirty(w, 200*time.Millisecond); n != 1 {
		t.Errorf("new directory: expected 1 signal, got %d", n)
	}
}

func TestWatcher_RetargetSamePathIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(t, 30*time.Millisecond)

	for i := 0; i < 3; i++ {
		if err := w.Retarget(dir); err != nil {
			t.Fatalf("Retarget #%d: %v", i, err)
		}
	}

	os.WriteFile(filepath.Join(dir, "x"), nil, 0o644)
	if n := countDirty(w, 200*time.Millisecond); n != 1 {
		t.Errorf("expected 1 signal, got %d", n)
	}
}

func TestWatcher_RetargetMissingDirectory(t *testing.T) {
	w := newTestWatcher(t, 30*time.Millisecond)

	err := w.Retarget(filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, ErrWatchLost) {
		t.Errorf("error = %v, want ErrWatchLost", err)
	}
}

func TestWatcher_DeletedDirectoryIsLostOnce(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "doomed")
	mkTree(t, dir, []string{"child"}, []string{"f1", "f2"})

	w := newTestWatcher(t, 30*time.Millisecond)
	if err := w.Retarget(dir); err != nil {
		t.Fatalf("Retarget: %v", err)
	}

	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("RemoveAll: %v", err)
	}

	lost := 0
	deadline := time.After(500 * time.Millisecond)
loop:
	for {
		select {
		case ev := <-w.Lost():
			lost++
			if ev.Path != dir {
				t.Errorf("lost path = %s, want %s", ev.Path, dir)
			}
			if !errors.Is(ev.Err, ErrWatchLost) {
				t.Errorf("lost err = %v", ev.Err)
			}
		case <-w.Dirty():
		case <-deadline:
			break loop
		}
	}

	if lost != 1 {
		t.Errorf("expected exactly 1 lost event, got %d", lost)
	}

	// Retargeting onto the surviving parent restores signalling
	if err := w.Retarget(parent); err != nil {
		t.Fatalf("Retarget parent: %v", err)
	}
	os.WriteFile(filepath.Join(parent, "again"), nil, 0o644)
	if n := countDirty(w, 200*time.Millisecond); n != 1 {
		t.Errorf("expected 1 signal after retarget, got %d", n)
	}
}

func TestWatcher_CloseIsIdempotent(t *testing.T) {
	w, err := NewWatcher(10 * time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := w.Retarget(t.TempDir()); err != nil {
		t.Fatalf("Retarget: %v", err)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := w.Retarget(t.TempDir()); !errors.Is(err, ErrWatcherClosed) {
		t.Errorf("Retarget after Close = %v, want ErrWatcherClosed", err)
	}
	if _, ok := <-w.Dirty(); ok {
		t.Error("dirty channel should be closed")
	}
}
