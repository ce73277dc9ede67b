package main

import (
	"github.com/gdamore/tcell/v2"

	"github.com/kandev/ptyterm/internal/terminal/grid"
)

func tcellColor(c grid.Color) tcell.Color {
	if i, ok := c.Palette(); ok {
		return tcell.PaletteColor(int(i))
	}
	if r, g, b, ok := c.RGB(); ok {
		return tcell.NewRGBColor(int32(r), int32(g), int32(b))
	}
	return tcell.ColorDefault
}

func cellStyle(c grid.Cell, hovered, selected bool) tcell.Style {
	a := c.Attrs
	return tcell.StyleDefault.
		Foreground(tcellColor(c.FG)).
		Background(tcellColor(c.BG)).
		Bold(a.Has(grid.AttrBold)).
		Italic(a.Has(grid.AttrItalic)).
		Underline(a.Has(grid.AttrUnderline) || hovered).
		Blink(a.Has(grid.AttrBlink)).
		Reverse(a.Has(grid.AttrReverse) != selected)
}

func cursorStyle(shape grid.CursorShape) tcell.CursorStyle {
	switch shape {
	case grid.CursorUnderline:
		return tcell.CursorStyleSteadyUnderline
	case grid.CursorBeam:
		return tcell.CursorStyleSteadyBar
	default:
		return tcell.CursorStyleSteadyBlock
	}
}

// draw paints a snapshot onto the screen.
func draw(screen tcell.Screen, snap *grid.Content) {
	screen.Clear()
	for _, c := range snap.Cells {
		ch := c.Char
		if ch == 0 {
			ch = ' '
		}
		screen.SetContent(c.Column, c.Line, ch, nil, cellStyle(c, snap.IsHovered(c.Point), snap.IsSelected(c.Point)))
	}
	if snap.Cursor.Shape == grid.CursorHidden {
		screen.HideCursor()
	} else {
		screen.SetCursorStyle(cursorStyle(snap.Cursor.Shape))
		screen.ShowCursor(snap.Cursor.Column, snap.Cursor.Line)
	}
	screen.Show()
}
