package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/weeksdev/duckfinder/log"
)

// Watcher observes one directory at a time and reports, debounced, that its
// contents may have changed. Changes by any process count, not only ours.
type Watcher struct {
	fsw       *fsnotify.Watcher
	debouncer *debouncer

	dirty chan string
	lost  chan LostEvent

	mu     sync.Mutex
	target string
	alive  bool // a watch is established on target and has not been lost
	closed bool

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewWatcher creates a watcher with the given debounce window. Nothing is
// observed until Retarget is called.
func NewWatcher(delay time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		fsw:      fsw,
		dirty:    make(chan string, 1),
		lost:     make(chan LostEvent, 8),
		stopChan: make(chan struct{}),
	}
	w.debouncer = newDebouncer(delay, w.processDebounced)

	w.wg.Add(1)
	go w.eventLoop()

	return w, nil
}

// Dirty delivers the watched path once per quiet period after changes.
// Pending signals coalesce; a receiver should re-list the current directory.
func (w *Watcher) Dirty() <-chan string {
	return w.dirty
}

// Lost delivers at most one event per target when its watch goes away.
func (w *Watcher) Lost() <-chan LostEvent {
	return w.lost
}

// Target returns the directory currently being watched
func (w *Watcher) Target() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.target
}

// Retarget stops observing the previous directory and starts observing path.
// Calling it again with the same live path is a no-op.
func (w *Watcher) Retarget(path string) error {
	path = filepath.Clean(path)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	if path == w.target && w.alive {
		return nil
	}

	if w.target != "" {
		// The old watch may already be gone (deleted directory); that's fine
		_ = w.fsw.Remove(w.target)
		w.debouncer.Cancel(w.target)
	}

	w.target = path
	w.alive = false

	if err := w.fsw.Add(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to watch directory")
		return fmt.Errorf("%w: %s: %v", ErrWatchLost, path, err)
	}
	w.alive = true

	log.Debug().Str("path", path).Msg("watching directory")
	return nil
}

// Close releases the OS watch. Dirty and Lost are closed once it returns.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.alive = false
	w.mu.Unlock()

	w.debouncer.Stop()
	close(w.stopChan)

	err := w.fsw.Close()
	w.wg.Wait()

	// Senders check closed under mu, so nothing can send past this point
	w.mu.Lock()
	close(w.dirty)
	close(w.lost)
	w.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// eventLoop processes fsnotify events
func (w *Watcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			// Usually a queue overflow: events were dropped, so rescan
			log.Warn().Err(err).Msg("watcher error")
			if target, alive := w.current(); alive {
				w.debouncer.Queue(target)
			}

		case <-w.stopChan:
			return
		}
	}
}

func (w *Watcher) current() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.target, w.alive
}

// handleEvent processes a single filesystem event
func (w *Watcher) handleEvent(event fsnotify.Event) {
	target, alive := w.current()
	if !alive {
		return
	}

	// Permission bits don't change what a listing shows
	if event.Op == fsnotify.Chmod {
		return
	}

	name := filepath.Clean(event.Name)

	// The watched directory itself was deleted or moved away
	if name == target && event.Has(fsnotify.Remove|fsnotify.Rename) {
		w.markLost(target, fmt.Errorf("%w: %s was removed", ErrWatchLost, target))
		return
	}

	// Late events from a previous target can still be queued in fsnotify
	if filepath.Dir(name) != target {
		return
	}

	w.debouncer.Queue(target)
}

// processDebounced is called by the debouncer when a burst has settled
func (w *Watcher) processDebounced(path string, coalesced int) {
	// A burst that ends with the directory gone is a lost watch, not a refresh
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		w.markLost(path, fmt.Errorf("%w: %s no longer exists", ErrWatchLost, path))
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || !w.alive || path != w.target {
		return
	}

	log.Debug().Str("path", path).Int("events", coalesced).Msg("directory dirty")

	select {
	case w.dirty <- path:
	default:
		// A signal is already pending; the receiver will re-list anyway
	}
}

// markLost reports path as lost exactly once per target
func (w *Watcher) markLost(path string, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || !w.alive || path != w.target {
		return
	}
	w.alive = false
	_ = w.fsw.Remove(path)
	w.debouncer.Cancel(path)

	log.Warn().Str("path", path).Err(err).Msg("directory watch lost")

	select {
	case w.lost <- LostEvent{Path: path, Err: err}:
	default:
		log.Error().Str("path", path).Msg("lost-watch queue full, dropping event")
	}
}
