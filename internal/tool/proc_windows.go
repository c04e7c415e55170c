//go:build windows

package tool

import (
	"os/exec"
	"strconv"
)

// setProcessGroup is a no-op on Windows; taskkill /T walks the tree.
func setProcessGroup(cmd *exec.Cmd) {}

// killProcessTree terminates the command and all its children.
func killProcessTree(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(cmd.Process.Pid)).Run()
}
