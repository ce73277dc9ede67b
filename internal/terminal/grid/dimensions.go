package grid

import "math"

// Bounds is a pixel rectangle.
type Bounds struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Dimensions describes the terminal viewport in pixels and cell metrics.
// Rows and columns are derived on every call.
type Dimensions struct {
	CellWidth  float64
	LineHeight float64
	Bounds     Bounds
}

// WindowSize is the size reported to the pseudo-terminal.
type WindowSize struct {
	Rows       uint16
	Cols       uint16
	CellWidth  uint16
	CellHeight uint16
}

// DefaultDimensions returns the initial geometry used before the UI reports a size.
func DefaultDimensions() Dimensions {
	return Dimensions{
		CellWidth:  7,
		LineHeight: 14,
		Bounds:     Bounds{Width: 500, Height: 300},
	}
}

// Rows is floor(height / line height), never negative.
func (d Dimensions) Rows() int {
	return cellsIn(d.Bounds.Height, d.LineHeight)
}

// Columns is floor(width / cell width), never negative.
func (d Dimensions) Columns() int {
	return cellsIn(d.Bounds.Width, d.CellWidth)
}

func cellsIn(extent, cell float64) int {
	if cell <= 0 || extent <= 0 || math.IsNaN(extent) || math.IsNaN(cell) {
		return 0
	}
	n := math.Floor(extent / cell)
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}

// WindowSize converts the geometry for the PTY. Rows and columns are at least 1.
func (d Dimensions) WindowSize() WindowSize {
	return WindowSize{
		Rows:       clampU16(d.Rows(), 1),
		Cols:       clampU16(d.Columns(), 1),
		CellWidth:  clampU16(int(d.CellWidth), 0),
		CellHeight: clampU16(int(d.LineHeight), 0),
	}
}

// PointAt maps a pixel position to the grid point under it, clamped into the grid.
func (d Dimensions) PointAt(x, y float64) Point {
	p := Point{}
	if d.LineHeight > 0 {
		p.Line = int(math.Floor((y - d.Bounds.Y) / d.LineHeight))
	}
	if d.CellWidth > 0 {
		p.Column = int(math.Floor((x - d.Bounds.X) / d.CellWidth))
	}
	p.Line = clampInt(p.Line, 0, max(d.Rows()-1, 0))
	p.Column = clampInt(p.Column, 0, max(d.Columns()-1, 0))
	return p
}

func clampU16(v, lo int) uint16 {
	if v < lo {
		v = lo
	}
	if v > math.MaxUint16 {
		v = math.MaxUint16
	}
	return uint16(v)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
