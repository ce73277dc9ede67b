//go:build !linux

package process

import "os/exec"

// setProcAttrs is a no-op: Pdeathsig is Linux-specific, and ConPTY creates the
// process itself. Orphan cleanup relies on Close.
func setProcAttrs(*exec.Cmd) {}
