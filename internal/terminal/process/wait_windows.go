//go:build windows

package process

import "os/exec"

// waitProcess waits for the child to exit and returns exit info.
// ConPTY reads do not end when the child exits, so the pseudo-console is
// closed here to let the reader observe end of stream.
func waitProcess(cmd *exec.Cmd, handle PtyHandle) (exitCode int, signalName string, err error) {
	state, err := cmd.Process.Wait()
	_ = handle.Close()
	if err != nil {
		return 1, "", err
	}
	code := state.ExitCode()
	if code != 0 {
		return code, "", &exec.ExitError{ProcessState: state}
	}
	return 0, "", nil
}

// killProcess terminates the child. Windows has no SIGKILL.
func killProcess(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}
