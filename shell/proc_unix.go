//go:build !windows

package shell

import (
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// setProcessGroup puts the shell in its own process group so signals reach
// every process of a pipeline.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func interruptProcess(p *os.Process) error {
	return unix.Kill(-p.Pid, unix.SIGINT)
}

func killProcess(p *os.Process) error {
	return unix.Kill(-p.Pid, unix.SIGKILL)
}
