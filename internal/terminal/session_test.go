package terminal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kandev/ptyterm/internal/terminal/grid"
	"github.com/kandev/ptyterm/internal/terminal/keys"
	"github.com/kandev/ptyterm/internal/terminal/process"
)

func numberedLines(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("line %d", i)
	}
	return strings.Join(parts, "\r\n")
}

func TestSession_WakeupPublishesSnapshot(t *testing.T) {
	s, h := newTestSession(t, Config{})

	h.output("hello\r\n")
	nextEvent(t, s, EventWakeup)

	snap := s.Snapshot()
	assert.Equal(t, "hello", snap.LineText(0))
	assert.Equal(t, 20, snap.Cols)
	assert.Equal(t, 5, snap.Rows)
	assert.Equal(t, grid.Point{Line: 1, Column: 0}, snap.Cursor.Point)
}

func TestSession_InitialSnapshotIsBlank(t *testing.T) {
	s, _ := newTestSession(t, Config{})
	snap := s.Snapshot()
	require.NotNil(t, snap)
	assert.Empty(t, snap.Text())
	assert.Equal(t, testDimensions(), snap.Dimensions)
}

func TestSession_BellAndTitleEvents(t *testing.T) {
	s, h := newTestSession(t, Config{})

	h.output("\x1b]0;vim\x07\x07")

	var kinds []EventKind
	for len(kinds) < 3 {
		select {
		case ev := <-s.Events():
			kinds = append(kinds, ev.Kind)
			if ev.Kind == EventTitleChanged {
				assert.Equal(t, "vim", ev.Title)
			}
		case <-time.After(waitTimeout):
			t.Fatal("timed out waiting for events")
		}
	}
	assert.Equal(t, []EventKind{EventBell, EventTitleChanged, EventWakeup}, kinds)
	assert.Equal(t, "vim", s.Title())
	assert.Equal(t, "vim", s.Snapshot().Title)
}

func TestSession_DeviceQueriesAreAnswered(t *testing.T) {
	s, h := newTestSession(t, Config{})

	h.output("ab\x1b[6n")
	require.Eventually(t, func() bool {
		return strings.Contains(h.input(), "\x1b[1;3R")
	}, waitTimeout, 5*time.Millisecond)

	h.output("\x1b[c")
	require.Eventually(t, func() bool {
		return strings.Contains(h.input(), "\x1b[?1;2c")
	}, waitTimeout, 5*time.Millisecond)
	_ = s
}

func TestSession_InputScrollsToBottom(t *testing.T) {
	s, h := newTestSession(t, Config{})
	outputAndSync(s, h, numberedLines(30))

	s.ScrollLines(3)
	snap := s.Sync()
	assert.Equal(t, 3, snap.DisplayOffset)
	assert.Equal(t, "line 22", snap.LineText(0))

	s.Input([]byte("x"))
	assert.Equal(t, "x", h.input())
	assert.Zero(t, s.Sync().DisplayOffset)
}

func TestSession_ScrollOpsAreAppliedInOrder(t *testing.T) {
	s, h := newTestSession(t, Config{})
	outputAndSync(s, h, numberedLines(30))

	s.ScrollToTop()
	snap := s.Sync()
	assert.Equal(t, snap.HistorySize, snap.DisplayOffset)
	assert.Equal(t, "line 0", snap.LineText(0))

	s.ScrollPageDown()
	s.ScrollLines(-1)
	snap = s.Sync()
	assert.Equal(t, snap.HistorySize-6, snap.DisplayOffset)

	s.Input([]byte("y"))
	s.ScrollPageUp()
	assert.Equal(t, 5, s.Sync().DisplayOffset)

	s.ScrollToBottom()
	assert.Zero(t, s.Sync().DisplayOffset)
}

func TestSession_ScrollIsDeferredUntilSync(t *testing.T) {
	s, h := newTestSession(t, Config{})
	h.output(numberedLines(30))
	nextEvent(t, s, EventWakeup)

	s.ScrollLines(2)
	assert.Zero(t, s.Snapshot().DisplayOffset)
	assert.Equal(t, 2, s.Sync().DisplayOffset)
}

func TestSession_TryKeystroke(t *testing.T) {
	s, h := newTestSession(t, Config{})

	require.True(t, s.TryKeystroke(keys.KeyEvent{Key: "c", Modifiers: keys.Modifiers{Control: true}}))
	assert.Equal(t, "\x03", h.input())

	h.resetInput()
	assert.False(t, s.TryKeystroke(keys.KeyEvent{Key: "pageup", Modifiers: keys.Modifiers{Shift: true}}))
	assert.Empty(t, h.input())

	require.True(t, s.TryKeystroke(keys.KeyEvent{Key: "up"}))
	assert.Equal(t, "\x1b[A", h.input())

	outputAndSync(s, h, "\x1b[?1h")
	h.resetInput()
	require.True(t, s.TryKeystroke(keys.KeyEvent{Key: "up"}))
	assert.Equal(t, "\x1bOA", h.input())
}

func TestSession_Paste(t *testing.T) {
	s, h := newTestSession(t, Config{})

	s.Paste("a\nb\r\nc")
	assert.Equal(t, "a\rb\rc", h.input())

	outputAndSync(s, h, "\x1b[?2004h")
	h.resetInput()
	s.Paste("ls\x1b[201~rm\n")
	assert.Equal(t, "\x1b[200~lsrm\r\x1b[201~", h.input())
}

func TestSession_Resize(t *testing.T) {
	s, h := newTestSession(t, Config{})
	outputAndSync(s, h, "abc")

	d := grid.Dimensions{CellWidth: 2, LineHeight: 2, Bounds: grid.Bounds{Width: 20, Height: 8}}
	s.Resize(d)

	snap := s.Snapshot()
	assert.Equal(t, 10, snap.Cols)
	assert.Equal(t, 4, snap.Rows)
	assert.Equal(t, d, snap.Dimensions)
	assert.Equal(t, d, s.Dimensions())
	assert.Equal(t, uint16(10), h.lastSize().Cols)
	assert.Equal(t, uint16(4), h.lastSize().Rows)

	cursor := snap.Cursor
	s.Resize(d)
	again := s.Snapshot()
	assert.Equal(t, 10, again.Cols)
	assert.Equal(t, 4, again.Rows)
	assert.Equal(t, cursor, again.Cursor)
	assert.Equal(t, "abc", again.LineText(0))
}

func TestSession_ResizeToDegenerateBounds(t *testing.T) {
	s, _ := newTestSession(t, Config{})

	s.Resize(grid.Dimensions{CellWidth: 7, LineHeight: 14, Bounds: grid.Bounds{Width: 0, Height: -5}})
	snap := s.Snapshot()
	assert.Equal(t, 1, snap.Cols)
	assert.Equal(t, 1, snap.Rows)
}

func TestSession_ClearAndClearScrollback(t *testing.T) {
	s, h := newTestSession(t, Config{})
	outputAndSync(s, h, numberedLines(30))

	s.ClearScrollback()
	snap := s.Sync()
	assert.Zero(t, snap.HistorySize)
	assert.Equal(t, "line 29", snap.LineText(4))

	s.Clear()
	assert.Empty(t, s.Sync().Text())
}

func TestSession_Selection(t *testing.T) {
	s, h := newTestSession(t, Config{})
	outputAndSync(s, h, "hello world")

	s.Select(grid.Range{Start: grid.Point{Line: 0, Column: 6}, End: grid.Point{Line: 0, Column: 10}})
	snap := s.Sync()
	require.NotNil(t, snap.Selection)
	assert.Equal(t, "world", snap.SelectedText())
	assert.True(t, snap.IsSelected(grid.Point{Line: 0, Column: 7}))

	s.ClearSelection()
	assert.Nil(t, s.Sync().Selection)
}

func TestSession_ScrollWheel(t *testing.T) {
	s, h := newTestSession(t, Config{})
	outputAndSync(s, h, numberedLines(30))

	s.ScrollWheel(WheelDelta{Y: 1, Unit: WheelLines})
	assert.Equal(t, 3, s.Sync().DisplayOffset)

	s.ScrollWheel(WheelDelta{Y: 10, Unit: WheelPixels})
	assert.Equal(t, 3, s.Sync().DisplayOffset)
	s.ScrollWheel(WheelDelta{Y: 10, Unit: WheelPixels})
	assert.Equal(t, 4, s.Sync().DisplayOffset)

	s.ScrollWheel(WheelDelta{Y: -1, Unit: WheelLines})
	assert.Equal(t, 1, s.Sync().DisplayOffset)
	assert.Empty(t, h.input())
}

func TestSession_ScrollWheelOnAltScreenSendsArrows(t *testing.T) {
	s, h := newTestSession(t, Config{WheelLinesPerTick: 2})
	outputAndSync(s, h, "\x1b[?1049h")

	s.ScrollWheel(WheelDelta{Y: 1, Unit: WheelLines})
	assert.Equal(t, "\x1b[A\x1b[A", h.input())

	h.resetInput()
	s.ScrollWheel(WheelDelta{Y: -1, Unit: WheelLines})
	assert.Equal(t, "\x1b[B\x1b[B", h.input())
	assert.Zero(t, s.Sync().DisplayOffset)
}

func TestSession_HyperlinkHoverAndOpen(t *testing.T) {
	s, h := newTestSession(t, Config{})
	outputAndSync(s, h, "go http://a.io/x).\r\nhttp://b.io")

	cmd := keys.Modifiers{Platform: true}
	s.PointerMove(grid.Point{Line: 0, Column: 5}, cmd)
	hovered := s.Snapshot().HoveredLink
	require.NotNil(t, hovered)
	assert.Equal(t, grid.Range{Start: grid.Point{Line: 0, Column: 3}, End: grid.Point{Line: 0, Column: 15}}, *hovered)

	// the hover survives a resync
	require.NotNil(t, s.Sync().HoveredLink)

	s.PointerMove(grid.Point{Line: 0, Column: 5}, keys.Modifiers{})
	assert.Nil(t, s.Snapshot().HoveredLink)

	require.True(t, s.PointerPress(grid.Point{Line: 0, Column: 4}, cmd))
	url, ok := s.PointerRelease(grid.Point{Line: 0, Column: 10}, cmd)
	require.True(t, ok)
	assert.Equal(t, "http://a.io/x", url)
	assert.Equal(t, "http://a.io/x", nextEvent(t, s, EventOpenURL).URL)

	require.True(t, s.PointerPress(grid.Point{Line: 0, Column: 4}, cmd))
	_, ok = s.PointerRelease(grid.Point{Line: 1, Column: 2}, cmd)
	assert.False(t, ok)
}

func TestSession_CloseRequestedEndsStream(t *testing.T) {
	s, h := newTestSession(t, Config{})

	h.output("bye")
	h.exit(3)

	ev := nextEvent(t, s, EventCloseRequested)
	assert.Equal(t, 3, ev.ExitCode)

	select {
	case _, ok := <-s.Events():
		assert.False(t, ok)
	case <-time.After(waitTimeout):
		t.Fatal("event stream not closed")
	}
	select {
	case <-s.Done():
	case <-time.After(waitTimeout):
		t.Fatal("session not done")
	}
	assert.Equal(t, "bye", s.Snapshot().LineText(0))
	assert.Equal(t, 3, s.ExitCode())
}

func TestSession_Close(t *testing.T) {
	s, h := newTestSession(t, Config{})

	s.Close()
	s.Close()

	select {
	case <-s.Done():
	case <-time.After(waitTimeout):
		t.Fatal("session not done")
	}
	assert.True(t, h.isClosed())

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-s.Events():
			return !ok
		default:
			return false
		}
	}, waitTimeout, 5*time.Millisecond)

	// writes after close are harmless
	s.Input([]byte("ignored"))
	s.Sync()
}

func TestSession_ContextCancelStopsSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sp := &fakeSpawner{}
	s, err := newSession(ctx, Config{Dimensions: testDimensions()}, newTestLogger(t), sp.spawn)
	require.NoError(t, err)

	cancel()
	select {
	case <-s.Done():
	case <-time.After(waitTimeout):
		t.Fatal("session not done")
	}
	assert.True(t, sp.last().isClosed())
}

func TestSession_SpawnError(t *testing.T) {
	cause := &process.SpawnError{Reason: process.ErrPTYAllocation, Program: "sh", Err: errors.New("no pty")}
	sp := &fakeSpawner{err: cause}

	_, err := newSession(context.Background(), Config{}, newTestLogger(t), sp.spawn)
	require.Error(t, err)
	assert.ErrorIs(t, err, process.ErrPTYAllocation)
}

func TestNew_ProgramNotFound(t *testing.T) {
	_, err := New(context.Background(), Config{Program: "ptyterm-no-such-program"}, newTestLogger(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, process.ErrProgramNotFound)

	var spawnErr *process.SpawnError
	require.ErrorAs(t, err, &spawnErr)
	assert.Equal(t, "ptyterm-no-such-program", spawnErr.Program)
}

func TestNew_InvalidWorkingDirectory(t *testing.T) {
	_, err := New(context.Background(), Config{WorkingDir: "/definitely/not/here"}, newTestLogger(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, process.ErrInvalidWorkingDirectory)
}

func TestSession_ConcurrentSyncNeverTears(t *testing.T) {
	s, h := newTestSession(t, Config{})

	frame := func(ch byte) string {
		row := strings.Repeat(string(ch), 20)
		return "\x1b[H" + strings.Join([]string{row, row, row, row, row}, "\r\n")
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
				h.output(frame(byte('A' + i%26)))
			}
		}
	}()

	for i := 0; i < 200; i++ {
		snap := s.Sync()
		first := snap.Cells[0].Char
		for _, c := range snap.Cells {
			if c.Char != first {
				close(stop)
				wg.Wait()
				t.Fatalf("torn snapshot: %q and %q in the same frame", first, c.Char)
			}
		}
	}
	close(stop)
	wg.Wait()
}
