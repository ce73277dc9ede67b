//go:build windows

package process

import "os/exec"

// defaultShell prefers PowerShell and falls back to cmd.exe.
// Windows shells have no login mode.
func defaultShell() (string, []string) {
	if _, err := exec.LookPath("pwsh.exe"); err == nil {
		return "pwsh.exe", []string{"-NoLogo", "-NoExit"}
	}
	if _, err := exec.LookPath("powershell.exe"); err == nil {
		return "powershell.exe", []string{"-NoLogo", "-NoExit"}
	}
	return "cmd.exe", nil
}
