// Package engine wraps the VT emulation library behind the narrow interface the
// terminal session needs, and provides the fair lock that serialises access to it.
package engine

import "github.com/kandev/ptyterm/internal/terminal/grid"

// Engine is the emulation state machine fed with PTY output.
// Implementations are not safe for concurrent use; guard them with a Handle.
type Engine interface {
	// Feed parses program output and reports side effects the caller must relay.
	Feed(data []byte) Effects
	// Resize re-flows the grid to cols x rows. Values below 1 are clamped to 1.
	Resize(cols, rows int)
	// Frame copies the renderable state, honouring the display offset.
	Frame() grid.Frame
	// Scroll moves the viewport through history.
	Scroll(s grid.Scroll)
	// Clear erases the screen or the scrollback history.
	Clear(mode grid.ClearMode)
	// SetSelection replaces the current selection. nil clears it.
	SetSelection(r *grid.Range)
	// Size returns the current grid size.
	Size() (cols, rows int)
}

// Effects are the side effects produced by one Feed call, in the order the
// session should relay them.
type Effects struct {
	// Replies are bytes that must be written back to the program (query answers).
	Replies [][]byte
	// Bells counts BEL characters outside of control strings.
	Bells int
	// Title is the window title after the feed; TitleChanged reports a change.
	Title        string
	TitleChanged bool
}

// Empty reports whether the feed produced no side effects.
func (e Effects) Empty() bool {
	return len(e.Replies) == 0 && e.Bells == 0 && !e.TitleChanged
}
