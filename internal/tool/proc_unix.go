//go:build !windows

package tool

import (
	"os/exec"
	"syscall"
	"time"
)

// sigkillGrace is how long a process group gets to exit on SIGTERM
// before SIGKILL follows.
const sigkillGrace = 200 * time.Millisecond

// setProcessGroup puts the command in its own process group so the
// whole tree can be killed atomically.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcessTree terminates the command's process group: SIGTERM
// first, SIGKILL after a short grace period.
func killProcessTree(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	pid := cmd.Process.Pid

	_ = syscall.Kill(-pid, syscall.SIGTERM)
	time.Sleep(sigkillGrace)

	if cmd.ProcessState == nil {
		_ = syscall.Kill(-pid, syscall.SIGKILL)
	}
}
