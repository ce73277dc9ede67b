// Package process hosts a child process on a pseudo-terminal: it spawns the
// program, pumps its output into the terminal engine, relays the resulting
// events, and serialises writes back to it.
package process

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kandev/ptyterm/internal/common/logger"
	"github.com/kandev/ptyterm/internal/terminal/bridge"
	"github.com/kandev/ptyterm/internal/terminal/engine"
	"github.com/kandev/ptyterm/internal/terminal/grid"
)

const (
	readBufferSize = 32 * 1024

	// killGrace is how long a child may ignore the hangup sent by Close.
	killGrace = 5 * time.Second
)

// Feeder applies program output to the terminal state.
type Feeder interface {
	Feed(data []byte) engine.Effects
}

// Sink receives the events produced by the reader loop.
type Sink interface {
	Send(ev bridge.Event)
}

// Options configures the spawned process.
type Options struct {
	// WorkingDir must exist when set. Empty inherits the current directory.
	WorkingDir string
	// Program is resolved on PATH. Empty starts the user's default shell.
	Program string
	Args    []string
	// Env holds extra KEY=VALUE entries layered over the inherited environment.
	Env  []string
	Term string
	Size grid.WindowSize
}

// Host owns one child process and its pseudo-terminal.
type Host struct {
	logger *logger.Logger
	cmd    *exec.Cmd
	pty    PtyHandle
	feeder Feeder
	sink   Sink
	writes *bridge.Queue[[]byte]

	sizeMu sync.Mutex
	size   grid.WindowSize

	exitCode  atomic.Int64
	exited    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// Start spawns the program on a new PTY and starts the reader, writer and
// waiter goroutines.
func Start(opts Options, feeder Feeder, sink Sink, log *logger.Logger) (*Host, error) {
	program, args := opts.Program, opts.Args
	if program == "" {
		program, args = defaultShell()
	}

	if opts.WorkingDir != "" {
		info, err := os.Stat(opts.WorkingDir)
		if err == nil && !info.IsDir() {
			err = fs.ErrInvalid
		}
		if err != nil {
			return nil, &SpawnError{Reason: ErrInvalidWorkingDirectory, Program: program, Dir: opts.WorkingDir, Err: err}
		}
	}

	path, err := exec.LookPath(program)
	if err != nil {
		return nil, &SpawnError{Reason: ErrProgramNotFound, Program: program, Dir: opts.WorkingDir, Err: err}
	}

	cmd := exec.Command(path, args...)
	cmd.Args[0] = program
	cmd.Dir = opts.WorkingDir
	cmd.Env = buildEnv(opts)
	setProcAttrs(cmd)

	size := clampSize(opts.Size)
	handle, err := startPTY(cmd, size)
	if err != nil {
		return nil, &SpawnError{Reason: ErrPTYAllocation, Program: program, Dir: opts.WorkingDir, Err: err}
	}

	h := &Host{
		logger: log.WithComponent("process-host"),
		cmd:    cmd,
		pty:    handle,
		feeder: feeder,
		sink:   sink,
		writes: bridge.NewQueue[[]byte](),
		size:   size,
		exited: make(chan struct{}),
		done:   make(chan struct{}),
	}
	h.exitCode.Store(-1)
	h.logger = h.logger.WithFields(zap.Int("pid", h.Pid()))

	h.logger.Info("process started",
		zap.String("program", program),
		zap.Strings("args", args),
		zap.String("cwd", opts.WorkingDir),
		zap.Uint16("cols", size.Cols),
		zap.Uint16("rows", size.Rows))

	go h.waitForExit()
	go h.writeInput()
	go h.readOutput()

	return h, nil
}

func clampSize(ws grid.WindowSize) grid.WindowSize {
	ws.Rows = max(ws.Rows, 1)
	ws.Cols = max(ws.Cols, 1)
	return ws
}

// Pid returns the child's process id.
func (h *Host) Pid() int {
	if h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

// Write queues data for the child. It never blocks; failed writes are dropped.
func (h *Host) Write(data []byte) {
	if len(data) == 0 {
		return
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	if !h.writes.Push(buf) {
		h.logger.Debug("dropping write after close", zap.Int("bytes", len(data)))
	}
}

// Resize sets the PTY window size. An unchanged size is not sent to the OS.
func (h *Host) Resize(ws grid.WindowSize) {
	ws = clampSize(ws)

	h.sizeMu.Lock()
	if ws == h.size {
		h.sizeMu.Unlock()
		return
	}
	h.size = ws
	h.sizeMu.Unlock()

	if err := h.pty.Resize(ws); err != nil {
		h.logger.Debug("pty resize failed", zap.Error(err),
			zap.Uint16("cols", ws.Cols), zap.Uint16("rows", ws.Rows))
	}
}

// Close hangs up the PTY. The child gets SIGHUP on Unix and is killed if it
// has not exited after a grace period. Safe to call more than once.
func (h *Host) Close() {
	h.closeOnce.Do(func() {
		h.writes.Close()
		if err := h.pty.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			h.logger.Debug("pty close failed", zap.Error(err))
		}
		go func() {
			select {
			case <-h.exited:
			case <-time.After(killGrace):
				h.logger.Warn("process ignored hangup, killing")
				_ = killProcess(h.cmd)
			}
		}()
	})
}

// Done is closed after the reader loop has emitted CloseRequested.
func (h *Host) Done() <-chan struct{} {
	return h.done
}

// ExitCode returns the child's exit code, or -1 while it is running.
func (h *Host) ExitCode() int {
	return int(h.exitCode.Load())
}

// readOutput pumps PTY output into the engine until end of stream, then
// reports the close once the child has been reaped.
func (h *Host) readOutput() {
	defer close(h.done)

	buf := make([]byte, readBufferSize)
	for {
		n, err := h.pty.Read(buf)
		if n > 0 {
			h.relay(h.feeder.Feed(buf[:n]))
		}
		if err != nil {
			if !isEndOfStream(err) {
				h.logger.Debug("pty read error", zap.Error(err))
			}
			break
		}
	}

	<-h.exited
	h.sink.Send(bridge.Event{Kind: bridge.CloseRequested})
}

// relay turns engine side effects into events, replies first so that query
// answers reach the child as soon as possible.
func (h *Host) relay(fx engine.Effects) {
	for _, reply := range fx.Replies {
		h.sink.Send(bridge.Event{Kind: bridge.RawWrite, Data: reply})
	}
	for i := 0; i < fx.Bells; i++ {
		h.sink.Send(bridge.Event{Kind: bridge.Bell})
	}
	if fx.TitleChanged {
		h.sink.Send(bridge.Event{Kind: bridge.TitleChanged, Title: fx.Title})
	}
	h.sink.Send(bridge.Event{Kind: bridge.Wakeup})
}

func (h *Host) writeInput() {
	for {
		data, err := h.writes.Pop(context.Background())
		if err != nil {
			return
		}
		if _, err := h.pty.Write(data); err != nil {
			h.logger.Debug("dropping pty write", zap.Error(err), zap.Int("bytes", len(data)))
		}
	}
}

func (h *Host) waitForExit() {
	code, signal, err := waitProcess(h.cmd, h.pty)
	h.exitCode.Store(int64(code))

	fields := []zap.Field{zap.Int("exit_code", code)}
	if signal != "" {
		fields = append(fields, zap.String("signal", signal))
	}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		fields = append(fields, zap.Error(err))
	}
	h.logger.Info("process exited", fields...)
	close(h.exited)
}

// isEndOfStream reports errors that mean the PTY has no more output: EOF,
// EIO once the slave side is gone on Linux, or a closed master.
func isEndOfStream(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, os.ErrClosed) ||
		errors.Is(err, syscall.EIO)
}
