package shell

import (
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/creack/pty"
	"github.com/weeksdev/duckfinder/log"
)

// Terminal is an interactive shell attached to a pseudo-terminal. It runs
// independently of the Runner and does not take part in directory sync.
type Terminal struct {
	cmd  *exec.Cmd
	ptmx *os.File

	closeOnce sync.Once
	done      chan struct{}
	exitErr   error
}

// StartTerminal starts an interactive login shell in dir
func StartTerminal(dir, shellPath string, env []string) (*Terminal, error) {
	if shellPath == "" {
		shellPath = DefaultShell
	}

	cmd := exec.Command(shellPath, "-l")
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "TERM=xterm-256color", "SHELL="+shellPath)
	cmd.Env = append(cmd.Env, env...)

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}

	t := &Terminal{cmd: cmd, ptmx: ptmx, done: make(chan struct{})}
	go func() {
		t.exitErr = cmd.Wait()
		close(t.done)
	}()

	log.Info().Int("pid", cmd.Process.Pid).Str("cwd", dir).Msg("terminal started")
	return t, nil
}

func (t *Terminal) Read(p []byte) (int, error) {
	return t.ptmx.Read(p)
}

func (t *Terminal) Write(p []byte) (int, error) {
	return t.ptmx.Write(p)
}

// Resize sets the window size seen by the shell
func (t *Terminal) Resize(rows, cols uint16) error {
	return pty.Setsize(t.ptmx, &pty.Winsize{Rows: rows, Cols: cols})
}

// Done is closed when the shell exits
func (t *Terminal) Done() <-chan struct{} {
	return t.done
}

// Close kills the shell and releases the pty. Safe to call more than once.
func (t *Terminal) Close() error {
	var err error
	t.closeOnce.Do(func() {
		select {
		case <-t.done:
		default:
			if t.cmd.Process != nil {
				_ = t.cmd.Process.Kill()
			}
		}
		err = t.ptmx.Close()
		<-t.done
		log.Debug().Err(t.exitErr).Msg("terminal closed")
	})
	return err
}
