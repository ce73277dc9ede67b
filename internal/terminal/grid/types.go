// Package grid holds the value types shared by the terminal engine, the session
// and its consumers: geometry, cells, modes and immutable content snapshots.
package grid

import "fmt"

// Point is a position in viewport coordinates. Line 0 is the top visible line.
type Point struct {
	Line   int
	Column int
}

// Before reports whether p precedes o in row-major order.
func (p Point) Before(o Point) bool {
	if p.Line != o.Line {
		return p.Line < o.Line
	}
	return p.Column < o.Column
}

func (p Point) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Range is an inclusive span of cells in row-major order.
type Range struct {
	Start Point
	End   Point
}

// Contains reports whether p lies within the range.
func (r Range) Contains(p Point) bool {
	return !p.Before(r.Start) && !r.End.Before(p)
}

// Normalized returns the range with Start not after End.
func (r Range) Normalized() Range {
	if r.End.Before(r.Start) {
		return Range{Start: r.End, End: r.Start}
	}
	return r
}

// Color is a cell color: the terminal default, a 256-color palette index, or 24-bit RGB.
type Color uint32

const (
	colorKindShift = 24
	kindPalette    = 1
	kindRGB        = 2
)

// DefaultColor selects the terminal's default foreground or background.
const DefaultColor Color = 0

// PaletteColor returns a palette entry (0-255).
func PaletteColor(i uint8) Color {
	return Color(kindPalette<<colorKindShift | uint32(i))
}

// RGBColor returns a true-color value.
func RGBColor(r, g, b uint8) Color {
	return Color(kindRGB<<colorKindShift | uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

// IsDefault reports whether c is the default color.
func (c Color) IsDefault() bool { return c>>colorKindShift == 0 }

// Palette returns the palette index when c is a palette color.
func (c Color) Palette() (uint8, bool) {
	if c>>colorKindShift != kindPalette {
		return 0, false
	}
	return uint8(c), true
}

// RGB returns the components when c is a true-color value.
func (c Color) RGB() (r, g, b uint8, ok bool) {
	if c>>colorKindShift != kindRGB {
		return 0, 0, 0, false
	}
	return uint8(c >> 16), uint8(c >> 8), uint8(c), true
}

// Attr is a set of cell rendering flags.
type Attr uint16

const (
	AttrBold Attr = 1 << iota
	AttrItalic
	AttrUnderline
	AttrReverse
	AttrBlink
	// AttrWrapline marks the last cell of a row that soft-wraps into the next.
	AttrWrapline
)

// Has reports whether all bits of f are set.
func (a Attr) Has(f Attr) bool { return a&f == f }

// Cell is one grid cell with its position.
type Cell struct {
	Point
	Char  rune
	FG    Color
	BG    Color
	Attrs Attr
	// Link is the explicit hyperlink target attached by the program, if any.
	Link string
}

// Mode is the set of terminal modes relevant to input encoding and rendering.
type Mode uint32

const (
	ModeAppCursor Mode = 1 << iota
	ModeAltScreen
	ModeAppKeypad
	ModeShowCursor
	ModeLineWrap
	ModeInsert
	ModeMouseReport
	ModeSGRMouse
	ModeFocusReport
	ModeBracketedPaste
)

// Has reports whether all bits of m are set.
func (m Mode) Has(f Mode) bool { return m&f == f }

// CursorShape is how the cursor is drawn.
type CursorShape int

const (
	CursorBlock CursorShape = iota
	CursorUnderline
	CursorBeam
	CursorHidden
)

// Cursor is the cursor position and shape.
type Cursor struct {
	Point
	Shape CursorShape
}

// ScrollKind selects a viewport scroll operation.
type ScrollKind int

const (
	ScrollDelta ScrollKind = iota
	ScrollPageUp
	ScrollPageDown
	ScrollTop
	ScrollBottom
)

// Scroll is a viewport scroll request. For ScrollDelta, a positive
// Lines moves the viewport up into history.
type Scroll struct {
	Kind  ScrollKind
	Lines int
}

// ScrollLines returns a delta scroll request.
func ScrollLines(n int) Scroll { return Scroll{Kind: ScrollDelta, Lines: n} }

// ClearMode selects what a clear request erases.
type ClearMode int

const (
	ClearScreen ClearMode = iota
	ClearScrollback
)

// Frame is a full copy of the renderable engine state.
type Frame struct {
	// Cells holds Rows*Cols cells in row-major order.
	Cells         []Cell
	Cols          int
	Rows          int
	Cursor        Cursor
	CursorChar    rune
	Mode          Mode
	DisplayOffset int
	HistorySize   int
	Selection     *Range
}
