package terminal

import (
	"github.com/kandev/ptyterm/internal/common/logger"
	"github.com/kandev/ptyterm/internal/terminal/grid"
	"github.com/kandev/ptyterm/internal/terminal/process"
)

// processHost is the part of process.Host a session drives.
type processHost interface {
	Write(data []byte)
	Resize(ws grid.WindowSize)
	Close()
	Done() <-chan struct{}
	Pid() int
	ExitCode() int
}

type spawnFunc func(opts process.Options, feeder process.Feeder, sink process.Sink, log *logger.Logger) (processHost, error)

func startProcess(opts process.Options, feeder process.Feeder, sink process.Sink, log *logger.Logger) (processHost, error) {
	h, err := process.Start(opts, feeder, sink, log)
	if err != nil {
		return nil, err
	}
	return h, nil
}
