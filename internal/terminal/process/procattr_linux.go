//go:build linux

package process

import (
	"os/exec"
	"syscall"
)

// setProcAttrs makes the kernel signal the child if this process dies without
// closing the PTY. Setpgid is left unset: the PTY start already calls setsid.
func setProcAttrs(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Pdeathsig: syscall.SIGTERM,
	}
}
