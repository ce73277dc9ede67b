//go:build !windows

package process

import (
	"os"
	"os/exec"

	"github.com/creack/pty"

	"github.com/kandev/ptyterm/internal/terminal/grid"
)

// unixPTY wraps a Unix PTY master file descriptor.
type unixPTY struct {
	f *os.File
}

func (p *unixPTY) Read(b []byte) (int, error)  { return p.f.Read(b) }
func (p *unixPTY) Write(b []byte) (int, error) { return p.f.Write(b) }
func (p *unixPTY) Close() error                { return p.f.Close() }

func (p *unixPTY) Resize(ws grid.WindowSize) error {
	return pty.Setsize(p.f, winsize(ws))
}

func winsize(ws grid.WindowSize) *pty.Winsize {
	return &pty.Winsize{
		Rows: ws.Rows,
		Cols: ws.Cols,
		X:    ws.Cols * ws.CellWidth,
		Y:    ws.Rows * ws.CellHeight,
	}
}

// startPTY starts the command in a Unix PTY with the given size.
// pty.StartWithSize calls cmd.Start() internally and makes the child a session leader.
func startPTY(cmd *exec.Cmd, ws grid.WindowSize) (PtyHandle, error) {
	f, err := pty.StartWithSize(cmd, winsize(ws))
	if err != nil {
		return nil, err
	}
	return &unixPTY{f: f}, nil
}
