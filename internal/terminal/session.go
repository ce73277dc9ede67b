// Package terminal runs an interactive program on a pseudo-terminal and
// exposes its screen as immutable snapshots plus a stream of UI events.
package terminal

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kandev/ptyterm/internal/common/logger"
	"github.com/kandev/ptyterm/internal/terminal/bridge"
	"github.com/kandev/ptyterm/internal/terminal/engine"
	"github.com/kandev/ptyterm/internal/terminal/grid"
	"github.com/kandev/ptyterm/internal/terminal/hyperlink"
	"github.com/kandev/ptyterm/internal/terminal/keys"
	"github.com/kandev/ptyterm/internal/terminal/process"
	"github.com/kandev/ptyterm/internal/tracing"
)

// eventBuffer is the capacity of the channel returned by Events.
const eventBuffer = 64

const (
	pasteStart = "\x1b[200~"
	pasteEnd   = "\x1b[201~"
)

// pendingOp is a viewport change applied at the next Sync.
type pendingOp struct {
	apply    func(engine.Engine)
	toBottom bool
}

type pointerState struct {
	point grid.Point
	mods  keys.Modifiers
}

// Session is one terminal: a child process, the emulation state it drives,
// and the snapshot the UI renders.
//
// Program output is parsed on the process reader goroutine. A consumer
// goroutine turns the resulting events into snapshots and UI events. All
// methods are safe for concurrent use and none blocks on the child.
type Session struct {
	id          string
	cfg         Config
	logger      *logger.Logger
	term        *engine.Handle
	bridge      *bridge.Bridge
	host        processHost
	altSendsEsc bool

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	pending    []pendingOp
	dims       grid.Dimensions
	title      string
	tracker    hyperlink.Tracker
	pointer    *pointerState
	wheelAccum float64

	syncMu   sync.Mutex
	snapshot atomic.Pointer[grid.Content]

	ui        *bridge.Queue[Event]
	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
}

// New spawns the configured program and starts processing its output.
// Cancelling ctx tears the session down like Close.
func New(ctx context.Context, cfg Config, log *logger.Logger) (*Session, error) {
	return newSession(ctx, cfg, log, startProcess)
}

func newSession(ctx context.Context, cfg Config, log *logger.Logger, spawn spawnFunc) (*Session, error) {
	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}
	cfg = cfg.withDefaults()
	ws := cfg.Dimensions.WindowSize()

	s := &Session{
		id:          cfg.ID,
		cfg:         cfg,
		logger:      log.WithSessionID(cfg.ID).WithComponent("terminal-session"),
		term:        engine.NewHandle(engine.NewVT(int(ws.Cols), int(ws.Rows), cfg.engineScrollback())),
		altSendsEsc: keys.AltSendsEscape(cfg.OptionAsMeta),
		dims:        cfg.Dimensions,
		ui:          bridge.NewQueue[Event](),
		events:      make(chan Event, eventBuffer),
		done:        make(chan struct{}),
	}
	s.bridge = bridge.New(s.logger)
	s.snapshot.Store(grid.NewContent(s.term.Frame(), cfg.Dimensions, ""))

	_, span := tracing.TraceSpawn(ctx, cfg.ID, cfg.Program, cfg.WorkingDir, int(ws.Rows), int(ws.Cols))
	h, err := spawn(process.Options{
		WorkingDir: cfg.WorkingDir,
		Program:    cfg.Program,
		Args:       cfg.Args,
		Env:        cfg.Env,
		Term:       cfg.Term,
		Size:       ws,
	}, s.term, s.bridge, s.logger)
	tracing.EndSpan(span, err)
	if err != nil {
		return nil, fmt.Errorf("failed to start terminal session: %w", err)
	}
	s.host = h
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.logger.Info("terminal session started",
		zap.Int("pid", h.Pid()),
		zap.Int("rows", int(ws.Rows)),
		zap.Int("cols", int(ws.Cols)))

	go s.run()
	go s.pump()
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Pid returns the child's process id.
func (s *Session) Pid() int { return s.host.Pid() }

// ExitCode returns the child's exit code, or -1 while it is running.
func (s *Session) ExitCode() int { return s.host.ExitCode() }

// Title returns the last window title set by the program.
func (s *Session) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

// Events returns the UI event stream. It is closed after EventCloseRequested
// or when the session is closed.
func (s *Session) Events() <-chan Event { return s.events }

// Done is closed once the session has stopped processing output.
func (s *Session) Done() <-chan struct{} { return s.done }

// Snapshot returns the last published content. It never blocks on the engine.
func (s *Session) Snapshot() *grid.Content { return s.snapshot.Load() }

// Dimensions returns the current geometry.
func (s *Session) Dimensions() grid.Dimensions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dims
}

// run is the single consumer of the event bridge.
func (s *Session) run() {
	defer close(s.done)
	defer s.ui.Close()
	defer s.bridge.Close()

	if err := s.bridge.Run(s.ctx, s.dispatch); err != nil {
		s.logger.Debug("event loop stopped", zap.Error(err))
		s.host.Close()
	}
}

func (s *Session) dispatch(ev bridge.Event) {
	switch ev.Kind {
	case bridge.RawWrite:
		s.host.Write(ev.Data)
	case bridge.Wakeup:
		s.Sync()
		s.emit(Event{Kind: EventWakeup})
	case bridge.Bell:
		s.emit(Event{Kind: EventBell})
	case bridge.TitleChanged:
		s.mu.Lock()
		s.title = ev.Title
		s.mu.Unlock()
		s.emit(Event{Kind: EventTitleChanged, Title: ev.Title})
	case bridge.CloseRequested:
		s.Sync()
		code := s.host.ExitCode()
		s.logger.Info("terminal session ended", zap.Int("exit_code", code))
		s.emit(Event{Kind: EventCloseRequested, ExitCode: code})
	}
}

func (s *Session) emit(ev Event) {
	s.ui.Push(ev)
}

// pump forwards UI events to the Events channel so the consumer never waits
// on a slow UI.
func (s *Session) pump() {
	defer close(s.events)
	for {
		ev, err := s.ui.Pop(s.ctx)
		if err != nil {
			return
		}
		select {
		case s.events <- ev:
		case <-s.ctx.Done():
			return
		}
	}
}

// Input sends bytes to the program and snaps the viewport back to the bottom
// at the next sync.
func (s *Session) Input(data []byte) {
	if len(data) == 0 {
		return
	}
	s.host.Write(data)
	s.mu.Lock()
	if n := len(s.pending); n == 0 || !s.pending[n-1].toBottom {
		s.pending = append(s.pending, pendingOp{
			apply:    func(e engine.Engine) { e.Scroll(grid.Scroll{Kind: grid.ScrollBottom}) },
			toBottom: true,
		})
	}
	s.mu.Unlock()
}

// TryKeystroke encodes ev for the current terminal mode and sends it. It
// returns false, sending nothing, when the key has no terminal encoding.
func (s *Session) TryKeystroke(ev keys.KeyEvent) bool {
	b, ok := keys.Encode(ev, s.Snapshot().Mode, s.altSendsEsc)
	if !ok {
		return false
	}
	s.Input(b)
	return true
}

// Paste sends text as pasted input. Line endings become carriage returns and
// the text is bracketed when the program asked for it.
func (s *Session) Paste(text string) {
	text = strings.ReplaceAll(text, "\r\n", "\r")
	text = strings.ReplaceAll(text, "\n", "\r")
	if s.Snapshot().Mode.Has(grid.ModeBracketedPaste) {
		// a pasted end marker would let the rest run as typed input
		text = pasteStart + strings.ReplaceAll(text, pasteEnd, "") + pasteEnd
	}
	s.Input([]byte(text))
}

// Resize applies new geometry to the engine and the PTY and publishes a
// fresh snapshot. Resizing to the current size changes nothing.
func (s *Session) Resize(d grid.Dimensions) {
	ws := d.WindowSize()
	cols, rows := int(ws.Cols), int(ws.Rows)

	changed := false
	s.term.With(func(e engine.Engine) {
		if c, r := e.Size(); c != cols || r != rows {
			e.Resize(cols, rows)
			changed = true
		}
	})
	s.host.Resize(ws)

	s.mu.Lock()
	s.dims = d
	s.mu.Unlock()

	if changed {
		s.logger.Debug("terminal resized", zap.Int("rows", rows), zap.Int("cols", cols))
		tracing.TraceResize(s.ctx, s.id, rows, cols)
	}
	s.Sync()
}

func (s *Session) enqueue(fn func(engine.Engine)) {
	s.mu.Lock()
	s.pending = append(s.pending, pendingOp{apply: fn})
	s.mu.Unlock()
}

// Scroll moves the viewport at the next sync.
func (s *Session) Scroll(sc grid.Scroll) {
	s.enqueue(func(e engine.Engine) { e.Scroll(sc) })
}

// ScrollLines scrolls n lines; positive values move into history.
func (s *Session) ScrollLines(n int) { s.Scroll(grid.ScrollLines(n)) }

func (s *Session) ScrollPageUp()   { s.Scroll(grid.Scroll{Kind: grid.ScrollPageUp}) }
func (s *Session) ScrollPageDown() { s.Scroll(grid.Scroll{Kind: grid.ScrollPageDown}) }
func (s *Session) ScrollToTop()    { s.Scroll(grid.Scroll{Kind: grid.ScrollTop}) }
func (s *Session) ScrollToBottom() { s.Scroll(grid.Scroll{Kind: grid.ScrollBottom}) }

// Clear erases the visible screen at the next sync.
func (s *Session) Clear() {
	s.enqueue(func(e engine.Engine) { e.Clear(grid.ClearScreen) })
}

// ClearScrollback drops the history at the next sync.
func (s *Session) ClearScrollback() {
	s.enqueue(func(e engine.Engine) { e.Clear(grid.ClearScrollback) })
}

// Select sets the selection, in viewport coordinates, at the next sync.
func (s *Session) Select(r grid.Range) {
	s.enqueue(func(e engine.Engine) { e.SetSelection(&r) })
}

// ClearSelection removes the selection at the next sync.
func (s *Session) ClearSelection() {
	s.enqueue(func(e engine.Engine) { e.SetSelection(nil) })
}

// Sync applies queued viewport changes, copies the engine state and
// publishes it as the new snapshot. The engine lock is held only for the copy.
func (s *Session) Sync() *grid.Content {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	s.mu.Lock()
	ops := s.pending
	s.pending = nil
	dims, title := s.dims, s.title
	s.mu.Unlock()

	var f grid.Frame
	s.term.With(func(e engine.Engine) {
		for _, op := range ops {
			op.apply(e)
		}
		f = e.Frame()
	})
	c := grid.NewContent(f, dims, title)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pointer != nil {
		s.tracker.Move(c, s.pointer.point, s.pointer.mods)
	}
	c = c.WithHoveredLink(s.tracker.Hovered())
	s.snapshot.Store(c)
	return c
}

// PointerPress starts a modifier-click on the link under p. It reports
// whether a link was armed.
func (s *Session) PointerPress(p grid.Point, mods keys.Modifiers) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Press(s.snapshot.Load(), p, mods)
}

// PointerMove updates the hovered link and republishes the snapshot when it
// changed.
func (s *Session) PointerMove(p grid.Point, mods keys.Modifiers) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pointer = &pointerState{point: p, mods: mods}
	snap := s.snapshot.Load()
	if s.tracker.Move(snap, p, mods) {
		s.snapshot.Store(snap.WithHoveredLink(s.tracker.Hovered()))
	}
}

// PointerRelease completes a modifier-click. When it lands on the link that
// was pressed, the URL is returned and an EventOpenURL is emitted.
func (s *Session) PointerRelease(p grid.Point, mods keys.Modifiers) (string, bool) {
	s.mu.Lock()
	url, ok := s.tracker.Release(s.snapshot.Load(), p, mods)
	s.mu.Unlock()
	if ok {
		s.logger.Debug("opening hyperlink", zap.String("url", url))
		s.emit(Event{Kind: EventOpenURL, URL: url})
	}
	return url, ok
}

// Close stops the session and hangs up the child. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.logger.Info("closing terminal session")
		s.host.Close()
		s.cancel()
	})
}
