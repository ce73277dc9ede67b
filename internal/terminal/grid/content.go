package grid

import "strings"

// Content is an immutable, point-in-time snapshot of a terminal session.
// Consumers must not modify it; variants are built with the With* helpers.
type Content struct {
	Frame
	Dimensions  Dimensions
	HoveredLink *Range
	Title       string
}

// NewContent wraps a frame into a snapshot.
func NewContent(f Frame, dims Dimensions, title string) *Content {
	return &Content{Frame: f, Dimensions: dims, Title: title}
}

// WithHoveredLink returns a copy with the hovered link range replaced.
func (c *Content) WithHoveredLink(r *Range) *Content {
	cp := *c
	cp.HoveredLink = r
	return &cp
}

// InBounds reports whether p addresses a cell of the snapshot.
func (c *Content) InBounds(p Point) bool {
	return p.Line >= 0 && p.Line < c.Rows && p.Column >= 0 && p.Column < c.Cols
}

// CellAt returns the cell at p.
func (c *Content) CellAt(p Point) (Cell, bool) {
	if !c.InBounds(p) {
		return Cell{}, false
	}
	return c.Cells[p.Line*c.Cols+p.Column], true
}

// Row returns the cells of one line.
func (c *Content) Row(line int) []Cell {
	if line < 0 || line >= c.Rows {
		return nil
	}
	return c.Cells[line*c.Cols : (line+1)*c.Cols]
}

// IsWrapped reports whether line soft-wraps into the next line.
func (c *Content) IsWrapped(line int) bool {
	row := c.Row(line)
	if len(row) == 0 || line+1 >= c.Rows {
		return false
	}
	return row[len(row)-1].Attrs.Has(AttrWrapline)
}

// LineText returns the text of a line with trailing blanks trimmed.
func (c *Content) LineText(line int) string {
	row := c.Row(line)
	var b strings.Builder
	for _, cell := range row {
		ch := cell.Char
		if ch == 0 {
			ch = ' '
		}
		b.WriteRune(ch)
	}
	return strings.TrimRight(b.String(), " ")
}

// Lines returns the text of every visible line.
func (c *Content) Lines() []string {
	out := make([]string, c.Rows)
	for i := range out {
		out[i] = c.LineText(i)
	}
	return out
}

// Text returns the visible lines joined by newlines, trailing empty lines removed.
func (c *Content) Text() string {
	return strings.TrimRight(strings.Join(c.Lines(), "\n"), "\n")
}

// IsSelected reports whether p lies in the current selection.
func (c *Content) IsSelected(p Point) bool {
	return c.Selection != nil && c.Selection.Normalized().Contains(p)
}

// IsHovered reports whether p lies in the hovered hyperlink.
func (c *Content) IsHovered(p Point) bool {
	return c.HoveredLink != nil && c.HoveredLink.Contains(p)
}

// SelectedText returns the text covered by the selection, one line per row.
func (c *Content) SelectedText() string {
	if c.Selection == nil {
		return ""
	}
	r := c.Selection.Normalized()
	var lines []string
	for line := max(r.Start.Line, 0); line <= r.End.Line && line < c.Rows; line++ {
		row := c.Row(line)
		from, to := 0, c.Cols-1
		if line == r.Start.Line {
			from = r.Start.Column
		}
		if line == r.End.Line {
			to = r.End.Column
		}
		var b strings.Builder
		for col := max(from, 0); col <= to && col < c.Cols; col++ {
			ch := row[col].Char
			if ch == 0 {
				ch = ' '
			}
			b.WriteRune(ch)
		}
		text := strings.TrimRight(b.String(), " ")
		if len(lines) > 0 && c.IsWrapped(line-1) {
			lines[len(lines)-1] += text
			continue
		}
		lines = append(lines, text)
	}
	return strings.Join(lines, "\n")
}
