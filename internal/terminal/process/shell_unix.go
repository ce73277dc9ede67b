//go:build !windows

package process

import "os"

// defaultShell returns the user's login shell. $SHELL wins; otherwise the
// first of a few common shells that exists.
func defaultShell() (string, []string) {
	if shell := os.Getenv("SHELL"); shell != "" {
		return shell, []string{"-l"}
	}
	for _, sh := range []string{"/bin/bash", "/bin/zsh", "/bin/sh"} {
		if _, err := os.Stat(sh); err == nil {
			return sh, []string{"-l"}
		}
	}
	return "/bin/sh", nil
}
