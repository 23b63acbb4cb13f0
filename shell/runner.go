package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/weeksdev/duckfinder/log"
)

const (
	// DefaultShell runs every command as `<shell> -c <command>`
	DefaultShell = "/bin/bash"

	// DefaultCancelGrace is how long an interrupted command may take to exit
	// before its process group is killed
	DefaultCancelGrace = 3 * time.Second

	// DefaultWaitDelay bounds how long output is drained after the shell
	// exits while background children still hold its pipes
	DefaultWaitDelay = time.Second

	eventBufferSize = 256
	recentSessions  = 16
)

// Config configures a Runner
type Config struct {
	Shell       string
	PathEnv     string   // replaces PATH for subshells when set
	Env         []string // extra KEY=VALUE pairs
	CancelGrace time.Duration
	WaitDelay   time.Duration
	Home        string // target of a bare `cd`; defaults to the user's home
}

// Runner executes one shell command at a time and streams its output as
// events. Submitting while a session is live fails with ErrSessionBusy.
type Runner struct {
	cfg    Config
	user   string
	host   string
	events chan Event

	mu     sync.Mutex
	active *Session
	recent []*Session // newest last, bounded
	closed bool

	done chan struct{}
	wg   sync.WaitGroup
}

// NewRunner creates a runner, filling unset fields with defaults
func NewRunner(cfg Config) *Runner {
	if cfg.Shell == "" {
		cfg.Shell = DefaultShell
	}
	if cfg.CancelGrace <= 0 {
		cfg.CancelGrace = DefaultCancelGrace
	}
	if cfg.WaitDelay <= 0 {
		cfg.WaitDelay = DefaultWaitDelay
	}
	if cfg.Home == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Home = home
		} else {
			cfg.Home = "/"
		}
	}

	return &Runner{
		cfg:    cfg,
		user:   currentUser(),
		host:   hostname(),
		events: make(chan Event, eventBufferSize),
		done:   make(chan struct{}),
	}
}

// Events returns the ordered event stream of all sessions
func (r *Runner) Events() <-chan Event {
	return r.events
}

// Active returns the live session, or nil
func (r *Runner) Active() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Submit starts commandLine in dir and returns without waiting for it.
// Progress is reported on Events.
func (r *Runner) Submit(commandLine, dir string) (*Session, error) {
	commandLine = strings.TrimSpace(commandLine)
	if commandLine == "" {
		return nil, ErrEmptyCommand
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRunnerClosed
	}
	if r.active != nil {
		id := r.active.ID
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: session %s", ErrSessionBusy, id)
	}
	s := newSession(commandLine, dir, r.cfg.CancelGrace)
	r.active = s
	r.recent = append(r.recent, s)
	if len(r.recent) > recentSessions {
		r.recent = r.recent[len(r.recent)-recentSessions:]
	}
	r.mu.Unlock()

	r.wg.Add(1)
	go r.run(s)

	return s, nil
}

// Cancel cancels the session with the given id. Cancelling a session that
// has already terminated is a no-op.
func (r *Runner) Cancel(id string) error {
	r.mu.Lock()
	var found *Session
	for _, s := range r.recent {
		if s.ID == id {
			found = s
			break
		}
	}
	r.mu.Unlock()

	if found == nil {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	found.Cancel()
	return nil
}

// Close cancels the live session and waits, bounded by the cancel grace
// period, for it to wind down. Events still pending are discarded.
func (r *Runner) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	active := r.active
	r.mu.Unlock()

	close(r.done)
	if active != nil {
		active.Cancel()
	}

	finished := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-time.After(r.cfg.CancelGrace + r.cfg.WaitDelay + time.Second):
		log.Warn().Msg("timeout waiting for command to exit")
		return fmt.Errorf("timeout waiting for command to exit")
	}
}

// Prompt formats the echo line shown before a command's output
func Prompt(user, host, dir, command string) string {
	return fmt.Sprintf("%s@%s %s$ %s", user, host, filepath.Base(dir), command)
}

func (r *Runner) run(s *Session) {
	defer r.wg.Done()

	r.emit(Event{
		SessionID: s.ID,
		Type:      EventStarted,
		Text:      Prompt(r.user, r.host, s.Dir, s.Command),
		Dir:       s.Dir,
	})

	cmd := exec.Command(r.cfg.Shell, "-c", s.Command)
	cmd.Dir = s.Dir
	cmd.Env = r.environ()
	cmd.WaitDelay = r.cfg.WaitDelay
	setProcessGroup(cmd)

	// exec copies into the pipe writers; Wait returns once the copies finish
	// (or WaitDelay expires, when background children keep the pipes open),
	// after which closing the writers ends the readers
	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := cmd.Start(); err != nil {
		stdoutW.Close()
		stderrW.Close()
		log.Warn().Err(err).Str("session", s.ID).Str("shell", r.cfg.Shell).Msg("failed to start command")
		r.finish(s, Event{
			SessionID:   s.ID,
			Type:        EventExit,
			ExitCode:    -1,
			Cancelled:   s.Cancelled(),
			SpawnFailed: true,
			Text:        fmt.Sprintf("%v: %v", ErrSpawnFailed, err),
		})
		return
	}

	log.Info().
		Str("session", s.ID).
		Int("pid", cmd.Process.Pid).
		Str("cwd", s.Dir).
		Str("command", s.Command).
		Msg("command started")

	if s.attach(cmd) {
		s.interrupt(cmd.Process)
	}

	box := newOutbox()
	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		box.drain(r.emit)
	}()

	var readers sync.WaitGroup
	readers.Add(2)
	go r.readLines(s, stdoutR, Stdout, box, &readers)
	go r.readLines(s, stderrR, Stderr, box, &readers)

	waitErr := cmd.Wait()
	stdoutW.Close()
	stderrW.Close()
	readers.Wait()

	// Every captured line reaches the consumer before the exit event
	box.close()
	<-forwarded

	exitCode := -1
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}
	cancelled := s.Cancelled()

	if waitErr != nil && !errors.As(waitErr, new(*exec.ExitError)) {
		log.Debug().Err(waitErr).Str("session", s.ID).Msg("command wait")
	}
	log.Info().
		Str("session", s.ID).
		Int("exitCode", exitCode).
		Bool("cancelled", cancelled).
		Msg("command exited")

	if exitCode == 0 && !cancelled {
		if arg, ok := ParseChangeDir(s.Command); ok {
			r.emit(Event{
				SessionID: s.ID,
				Type:      EventDirectoryChanged,
				Dir:       ResolveChangeDir(s.Dir, arg, r.cfg.Home),
			})
		}
	}

	r.finish(s, Event{
		SessionID: s.ID,
		Type:      EventExit,
		ExitCode:  exitCode,
		Cancelled: cancelled,
	})
}

// readLines captures rd line by line until EOF, queueing one event per line
func (r *Runner) readLines(s *Session, rd io.ReadCloser, stream Stream, box *outbox, wg *sync.WaitGroup) {
	defer wg.Done()
	defer rd.Close()

	br := bufio.NewReader(rd)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			text := strings.TrimRight(line, "\r\n")
			s.appendLine(Line{Stream: stream, Text: text})
			box.push(Event{SessionID: s.ID, Type: EventOutput, Stream: stream, Text: text})
		}
		if err != nil {
			if err != io.EOF {
				log.Debug().Err(err).Str("session", s.ID).Str("stream", string(stream)).Msg("output reader stopped")
			}
			return
		}
	}
}

// finish clears the live marker, then publishes the terminal event
func (r *Runner) finish(s *Session, ev Event) {
	r.mu.Lock()
	if r.active == s {
		r.active = nil
	}
	r.mu.Unlock()

	s.terminate(ev.ExitCode)
	r.emit(ev)
}

func (r *Runner) emit(ev Event) {
	select {
	case r.events <- ev:
	case <-r.done:
	}
}

func (r *Runner) environ() []string {
	env := os.Environ()
	env = append(env, "SHELL="+r.cfg.Shell)
	if r.cfg.PathEnv != "" {
		env = append(env, "PATH="+r.cfg.PathEnv)
	}
	return append(env, r.cfg.Env...)
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "user"
}

func hostname() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "localhost"
	}
	if i := strings.IndexByte(host, '.'); i > 0 {
		host = host[:i]
	}
	return host
}
