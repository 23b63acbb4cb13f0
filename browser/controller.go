package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/weeksdev/duckfinder/fs"
	"github.com/weeksdev/duckfinder/log"
	"github.com/weeksdev/duckfinder/shell"
)

const eventBufferSize = 256

// Watcher is satisfied by *fs.Watcher
type Watcher interface {
	Retarget(path string) error
	Dirty() <-chan string
	Lost() <-chan fs.LostEvent
	Close() error
}

// Runner is satisfied by *shell.Runner
type Runner interface {
	Submit(commandLine, dir string) (*shell.Session, error)
	Cancel(id string) error
	Active() *shell.Session
	Events() <-chan shell.Event
	Close() error
}

// Config configures a Controller
type Config struct {
	StartDir      string
	DebounceDelay time.Duration
	Shell         shell.Config
}

type op struct {
	fn    func() error
	reply chan error
}

// Controller keeps the browser's current directory in sync with the
// filesystem and with the shell. A single loop goroutine owns the current
// directory; every entry point is posted to it and waits for the result.
type Controller struct {
	cfg     Config
	watcher Watcher
	runner  Runner
	history *shell.History

	ops    chan op
	events chan Event

	// dir is owned by the loop; state mirrors it for readers
	dir     string
	stateMu sync.RWMutex
	state   State

	started   atomic.Bool
	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates a controller over the given watcher and runner. It takes
// ownership of both and closes them in Close.
func New(cfg Config, watcher Watcher, runner Runner) *Controller {
	return &Controller{
		cfg:     cfg,
		watcher: watcher,
		runner:  runner,
		history: shell.NewHistory(),
		ops:     make(chan op),
		events:  make(chan Event, eventBufferSize),
		stop:    make(chan struct{}),
	}
}

// NewDefault creates a controller backed by a real fsnotify watcher and
// shell runner
func NewDefault(cfg Config) (*Controller, error) {
	w, err := fs.NewWatcher(cfg.DebounceDelay)
	if err != nil {
		return nil, err
	}
	return New(cfg, w, shell.NewRunner(cfg.Shell)), nil
}

// Start launches the event loop and opens the start directory, or the
// nearest ancestor of it that can be listed
func (c *Controller) Start(ctx context.Context) error {
	if c.started.Swap(true) {
		return ErrAlreadyStarted
	}

	c.wg.Add(1)
	go c.loop()

	start := c.cfg.StartDir
	if start == "" {
		if home, err := os.UserHomeDir(); err == nil {
			start = home
		} else {
			start = "/"
		}
	}
	if abs, err := filepath.Abs(start); err == nil {
		start = abs
	}

	return c.do(ctx, func() error {
		if err := c.navigate(start); err == nil {
			return nil
		}
		log.Warn().Str("path", start).Msg("start directory unavailable, falling back to ancestor")
		return c.fallback(start)
	})
}

// Events delivers view events in order. There must be exactly one consumer.
// The channel is closed by Close.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// State returns the last committed directory and snapshot
func (c *Controller) State() State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// CurrentDirectory returns the last committed directory
func (c *Controller) CurrentDirectory() string {
	return c.State().Dir
}

// NavigateTo moves the browser to path; relative paths resolve against the
// current directory. On error the current directory is unchanged.
func (c *Controller) NavigateTo(ctx context.Context, path string) error {
	return c.do(ctx, func() error {
		return c.navigate(fs.Resolve(c.dir, path))
	})
}

// NavigateUp moves to the parent of the current directory; a no-op at root
func (c *Controller) NavigateUp(ctx context.Context) error {
	return c.do(ctx, func() error {
		parent, ok := fs.Parent(c.dir)
		if !ok {
			return nil
		}
		return c.navigate(parent)
	})
}

// ShellDirectoryChanged follows a directory change made by the shell
func (c *Controller) ShellDirectoryChanged(ctx context.Context, path string) error {
	return c.NavigateTo(ctx, path)
}

// Refresh re-lists the current directory
func (c *Controller) Refresh(ctx context.Context) error {
	return c.do(ctx, c.refresh)
}

// Submit records commandLine in history and runs it in the current directory
func (c *Controller) Submit(ctx context.Context, commandLine string) (*shell.Session, error) {
	var session *shell.Session
	err := c.do(ctx, func() error {
		s, err := c.runner.Submit(commandLine, c.dir)
		if err != nil {
			return err
		}
		c.history.Add(s.Command)
		session = s
		return nil
	})
	return session, err
}

// Cancel cancels the session with the given id
func (c *Controller) Cancel(id string) error {
	return c.runner.Cancel(id)
}

// ActiveSession returns the live shell session, or nil
func (c *Controller) ActiveSession() *shell.Session {
	return c.runner.Active()
}

// HistoryPrevious steps the recall cursor back one command and returns it
func (c *Controller) HistoryPrevious() (string, bool) {
	return c.history.Previous()
}

// HistoryNext steps the recall cursor forward; see shell.History.Next
func (c *Controller) HistoryNext() (string, bool) {
	return c.history.Next()
}

// History returns the command history shared with the API
func (c *Controller) History() *shell.History {
	return c.history
}

// Close stops the loop, terminates the live command and releases the watch.
// Safe to call more than once.
func (c *Controller) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.stop)
		c.wg.Wait()

		if rerr := c.runner.Close(); rerr != nil {
			log.Warn().Err(rerr).Msg("failed to close shell runner")
			err = rerr
		}
		if werr := c.watcher.Close(); werr != nil {
			log.Warn().Err(werr).Msg("failed to close watcher")
			if err == nil {
				err = werr
			}
		}

		// The loop is the only sender and has exited
		close(c.events)
		log.Info().Msg("browser controller closed")
	})
	return err
}

// do runs fn on the loop goroutine and waits for its result
func (c *Controller) do(ctx context.Context, fn func() error) error {
	if !c.started.Load() {
		return ErrNotStarted
	}

	o := op{fn: fn, reply: make(chan error, 1)}
	select {
	case c.ops <- o:
	case <-c.stop:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-o.reply:
		return err
	case <-c.stop:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) loop() {
	defer c.wg.Done()

	dirty := c.watcher.Dirty()
	lost := c.watcher.Lost()
	shellEvents := c.runner.Events()

	for {
		select {
		case o := <-c.ops:
			o.reply <- o.fn()

		case path, ok := <-dirty:
			if !ok {
				dirty = nil
				continue
			}
			if path == c.dir {
				_ = c.refresh()
			}

		case ev, ok := <-lost:
			if !ok {
				lost = nil
				continue
			}
			c.handleLost(ev)

		case ev, ok := <-shellEvents:
			if !ok {
				shellEvents = nil
				continue
			}
			c.handleShellEvent(ev)

		case <-c.stop:
			return
		}
	}
}

// navigate watches, lists and commits target. The watch is in place before
// the listing is taken, so a change racing the navigation still produces a
// dirty signal. Loop goroutine only.
func (c *Controller) navigate(target string) error {
	if !filepath.IsAbs(target) {
		if abs, err := filepath.Abs(target); err == nil {
			target = abs
		}
	}

	if err := c.watcher.Retarget(target); err != nil {
		// Report why the directory can't be opened when that is the cause
		if _, serr := fs.Snap(target); serr != nil {
			err = serr
		}
		c.emitError(target, err)
		c.restoreWatch(target)
		return err
	}

	snap, err := fs.Snap(target)
	if err != nil {
		c.emitError(target, err)
		c.restoreWatch(target)
		return err
	}

	c.commit(target, snap)
	c.emit(Event{Type: EventDirectory, Dir: target})
	c.emit(Event{Type: EventSnapshot, Dir: target, Snapshot: snap})

	log.Debug().Str("path", target).Int("entries", len(snap.Entries)).Msg("navigated")
	return nil
}

// restoreWatch points the watcher back at the current directory after a
// failed navigation to target
func (c *Controller) restoreWatch(target string) {
	if c.dir == "" || c.dir == target {
		return
	}
	if err := c.watcher.Retarget(c.dir); err != nil {
		log.Warn().Err(err).Str("path", c.dir).Msg("failed to restore directory watch")
	}
}

// refresh re-lists the current directory. Loop goroutine only.
func (c *Controller) refresh() error {
	if c.dir == "" {
		return nil
	}
	snap, err := fs.Snap(c.dir)
	if err != nil {
		c.emitError(c.dir, err)
		return err
	}
	c.commit(c.dir, snap)
	c.emit(Event{Type: EventSnapshot, Dir: c.dir, Snapshot: snap})
	return nil
}

func (c *Controller) handleLost(ev fs.LostEvent) {
	// A loss reported for a directory we already left
	if ev.Path != c.dir {
		return
	}
	msg := fs.ErrWatchLost.Error()
	if ev.Err != nil {
		msg = ev.Err.Error()
	}
	c.emit(Event{Type: EventWatchLost, Dir: ev.Path, Error: msg})

	if err := c.fallback(ev.Path); err != nil {
		log.Error().Err(err).Str("path", ev.Path).Msg("no reachable ancestor after watch loss")
	}
}

// fallback navigates to the nearest ancestor of path that can be opened,
// walking further up whenever a candidate fails
func (c *Controller) fallback(path string) error {
	candidate := fs.NearestExistingAncestor(path)
	for {
		err := c.navigate(candidate)
		if err == nil {
			return nil
		}
		parent, ok := fs.Parent(candidate)
		if !ok {
			return fmt.Errorf("no usable ancestor of %s: %w", path, err)
		}
		candidate = parent
	}
}

func (c *Controller) handleShellEvent(ev shell.Event) {
	out := ev
	c.emit(Event{Type: EventOutput, Output: &out})

	if ev.Type == shell.EventDirectoryChanged {
		if err := c.navigate(ev.Dir); err != nil {
			log.Warn().Err(err).Str("path", ev.Dir).Msg("failed to follow shell directory change")
		}
	}
}

func (c *Controller) commit(dir string, snap *fs.Snapshot) {
	c.dir = dir
	c.stateMu.Lock()
	c.state = State{Dir: dir, Snapshot: snap}
	c.stateMu.Unlock()
}

func (c *Controller) emitError(path string, err error) {
	log.Debug().Err(err).Str("path", path).Msg("browser error")
	c.emit(Event{Type: EventError, Dir: path, Error: err.Error()})
}

func (c *Controller) emit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.stop:
	}
}
