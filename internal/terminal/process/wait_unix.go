//go:build !windows

package process

import (
	"errors"
	"os/exec"
	"syscall"
)

// waitProcess waits for the child to exit and returns exit info.
// On Unix, uses cmd.Wait() which inspects WaitStatus for signal information.
func waitProcess(cmd *exec.Cmd, _ PtyHandle) (exitCode int, signalName string, err error) {
	err = cmd.Wait()
	if err == nil {
		return 0, "", nil
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return 1, "", err
	}
	waitStatus, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok {
		return 1, "", err
	}
	if waitStatus.Signaled() {
		return 128 + int(waitStatus.Signal()), waitStatus.Signal().String(), err
	}
	return waitStatus.ExitStatus(), "", err
}

// killProcess force-kills a child that ignored the PTY hangup.
func killProcess(cmd *exec.Cmd) error {
	return cmd.Process.Signal(syscall.SIGKILL)
}
