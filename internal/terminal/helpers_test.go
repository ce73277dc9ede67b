package terminal

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kandev/ptyterm/internal/common/logger"
	"github.com/kandev/ptyterm/internal/terminal/bridge"
	"github.com/kandev/ptyterm/internal/terminal/grid"
	"github.com/kandev/ptyterm/internal/terminal/process"
)

const waitTimeout = 5 * time.Second

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(logger.LoggingConfig{Level: "error", Format: "console", OutputPath: "stderr"})
	require.NoError(t, err)
	return log
}

// fakeHost stands in for a process host. Tests drive program output with
// output and the child's exit with exit.
type fakeHost struct {
	feeder process.Feeder
	sink   process.Sink
	pid    int

	mu       sync.Mutex
	written  bytes.Buffer
	sizes    []grid.WindowSize
	closed   bool
	exitCode int

	done     chan struct{}
	exitOnce sync.Once
}

func newFakeHost(opts process.Options, feeder process.Feeder, sink process.Sink) *fakeHost {
	return &fakeHost{
		feeder:   feeder,
		sink:     sink,
		pid:      4242,
		sizes:    []grid.WindowSize{opts.Size},
		exitCode: -1,
		done:     make(chan struct{}),
	}
}

// output feeds data as if the program wrote it and relays the effects the
// way the process host does.
func (h *fakeHost) output(data string) {
	fx := h.feeder.Feed([]byte(data))
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

func (h *fakeHost) exit(code int) {
	h.exitOnce.Do(func() {
		h.mu.Lock()
		h.exitCode = code
		h.mu.Unlock()
		h.sink.Send(bridge.Event{Kind: bridge.CloseRequested})
		close(h.done)
	})
}

func (h *fakeHost) Write(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.written.Write(data)
}

func (h *fakeHost) Resize(ws grid.WindowSize) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sizes = append(h.sizes, ws)
}

func (h *fakeHost) Close() {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	h.exit(-1)
}

func (h *fakeHost) Done() <-chan struct{} { return h.done }
func (h *fakeHost) Pid() int              { return h.pid }

func (h *fakeHost) ExitCode() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exitCode
}

func (h *fakeHost) input() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.written.String()
}

func (h *fakeHost) resetInput() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.written.Reset()
}

func (h *fakeHost) lastSize() grid.WindowSize {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sizes[len(h.sizes)-1]
}

func (h *fakeHost) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// fakeSpawner records the hosts it creates.
type fakeSpawner struct {
	mu    sync.Mutex
	hosts []*fakeHost
	err   error
	// gate, when set, holds every spawn until it is closed
	gate chan struct{}
}

func (f *fakeSpawner) spawn(opts process.Options, feeder process.Feeder, sink process.Sink, _ *logger.Logger) (processHost, error) {
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return nil, f.err
	}
	h := newFakeHost(opts, feeder, sink)
	f.mu.Lock()
	f.hosts = append(f.hosts, h)
	f.mu.Unlock()
	return h, nil
}

func (f *fakeSpawner) last() *fakeHost {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hosts[len(f.hosts)-1]
}

// testDimensions is a 20x5 grid with one pixel per cell.
func testDimensions() grid.Dimensions {
	return grid.Dimensions{CellWidth: 1, LineHeight: 1, Bounds: grid.Bounds{Width: 20, Height: 5}}
}

func newTestSession(t *testing.T, cfg Config) (*Session, *fakeHost) {
	t.Helper()
	if cfg.Dimensions == (grid.Dimensions{}) {
		cfg.Dimensions = testDimensions()
	}
	sp := &fakeSpawner{}
	s, err := newSession(context.Background(), cfg, newTestLogger(t), sp.spawn)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, sp.last()
}

// nextEvent returns the next UI event of the given kind, skipping others.
func nextEvent(t *testing.T, s *Session, kind EventKind) Event {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case ev, ok := <-s.Events():
			require.True(t, ok, "event stream closed while waiting for %s", kind)
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", kind)
		}
	}
}

// outputAndSync feeds program output and publishes a snapshot of it. Feeding
// is synchronous, so the snapshot reflects data.
func outputAndSync(s *Session, h *fakeHost, data string) *grid.Content {
	h.output(data)
	return s.Sync()
}
