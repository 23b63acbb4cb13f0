package shell

import (
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/weeksdev/duckfinder/log"
)

// Line is one line of captured output
type Line struct {
	Stream Stream `json:"stream"`
	Text   string `json:"text"`
}

// Session is a single command run by a Runner. It is live from Submit until
// its terminal event has been produced.
type Session struct {
	ID        string    `json:"id"`
	Command   string    `json:"command"`
	Dir       string    `json:"dir"`
	StartedAt time.Time `json:"startedAt"`

	grace time.Duration

	mu         sync.Mutex
	lines      []Line
	process    *os.Process
	cancelled  bool
	terminated bool
	exitCode   int
	killTimer  *time.Timer
	done       chan struct{}
}

func newSession(command, dir string, grace time.Duration) *Session {
	return &Session{
		ID:        uuid.New().String(),
		Command:   command,
		Dir:       dir,
		StartedAt: time.Now(),
		grace:     grace,
		exitCode:  -1,
		done:      make(chan struct{}),
	}
}

// Lines returns a copy of the output captured so far
func (s *Session) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// Terminated reports whether the terminal event has been produced
func (s *Session) Terminated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminated
}

// ExitCode returns the exit status once the session has terminated.
// A process killed by a signal reports -1.
func (s *Session) ExitCode() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitCode, s.terminated
}

// Cancelled reports whether Cancel was called before termination
func (s *Session) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// Done is closed when the session terminates
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Cancel interrupts the process group, escalating to SIGKILL after the grace
// period. Safe to call from any goroutine; a no-op after termination.
func (s *Session) Cancel() {
	s.mu.Lock()
	if s.terminated || s.cancelled {
		s.mu.Unlock()
		return
	}
	s.cancelled = true
	p := s.process
	s.mu.Unlock()

	// Not spawned yet; run checks the flag once the process exists
	if p != nil {
		s.interrupt(p)
	}
}

func (s *Session) interrupt(p *os.Process) {
	log.Info().Str("session", s.ID).Int("pid", p.Pid).Msg("interrupting command")
	if err := interruptProcess(p); err != nil {
		log.Debug().Err(err).Str("session", s.ID).Msg("failed to interrupt process group")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminated || s.killTimer != nil {
		return
	}
	s.killTimer = time.AfterFunc(s.grace, func() {
		if s.Terminated() {
			return
		}
		log.Warn().Str("session", s.ID).Dur("grace", s.grace).Msg("command ignored interrupt, killing")
		if err := killProcess(p); err != nil {
			log.Debug().Err(err).Str("session", s.ID).Msg("failed to kill process group")
		}
	})
}

// attach records the started process. Returns true if a cancel arrived first.
func (s *Session) attach(cmd *exec.Cmd) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.process = cmd.Process
	return s.cancelled
}

func (s *Session) appendLine(l Line) {
	s.mu.Lock()
	s.lines = append(s.lines, l)
	s.mu.Unlock()
}

func (s *Session) terminate(exitCode int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminated {
		return
	}
	s.terminated = true
	s.exitCode = exitCode
	if s.killTimer != nil {
		s.killTimer.Stop()
	}
	close(s.done)
}
