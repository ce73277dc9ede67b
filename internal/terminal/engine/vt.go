package engine

import (
	"fmt"

	"github.com/tuzig/vt10x"

	"github.com/kandev/ptyterm/internal/terminal/grid"
)

// Glyph attribute bits as laid out by vt10x.
const (
	glyphReverse   = 1 << 0
	glyphUnderline = 1 << 1
	glyphBold      = 1 << 2
	glyphItalic    = 1 << 4
	glyphBlink     = 1 << 5
	glyphWrap      = 1 << 6

	cursorWrapNext = 1 << 1
)

// DefaultScrollback is the number of history lines kept when none is configured.
const DefaultScrollback = 10000

var deviceAttributesReply = []byte("\x1b[?1;2c")

// VT is the vt10x-backed Engine. On top of the library it keeps scrollback
// history, OSC 8 hyperlinks, bell and title tracking, and answers cursor
// position and device attribute queries.
type VT struct {
	term       vt10x.Terminal
	cols, rows int

	// scroll region as set by DECSTBM, zero-based and inclusive
	top, bottom int

	hist      *history
	offset    int
	selection *grid.Range
	title     string
	// vt10x does not track DECSET 2004
	bracketedPaste bool

	scan    scanner
	pending []byte
	// wrapBudget counts the runes that fit before the cursor wraps. Zero
	// means unknown, so the cursor is read again before the next rune.
	wrapBudget int

	// link is the URI opened by the last OSC 8, empty when closed.
	link  string
	links map[grid.Point]string
}

// NewVT creates an engine of cols x rows keeping up to scrollback history lines.
func NewVT(cols, rows, scrollback int) *VT {
	cols, rows = max(cols, 1), max(rows, 1)
	if scrollback < 0 {
		scrollback = DefaultScrollback
	}
	return &VT{
		term:   vt10x.New(vt10x.WithSize(cols, rows)),
		cols:   cols,
		rows:   rows,
		bottom: rows - 1,
		hist:   newHistory(scrollback),
		links:  make(map[grid.Point]string),
	}
}

// Size implements Engine.
func (v *VT) Size() (int, int) {
	return v.cols, v.rows
}

// Feed implements Engine.
func (v *VT) Feed(data []byte) Effects {
	data = v.carry(data)

	var fx Effects
	seg := 0
	v.wrapBudget = 0
	for i := 0; i < len(data); i++ {
		b := data[i]
		switch v.scan.state {
		case stGround:
			if isRuneStart(b) {
				if v.wrapBudget == 0 {
					v.write(data[seg:i], v.trackingLinks())
					seg = i
					v.wrapBudget = v.beforePrint()
				}
				v.wrapBudget--
				continue
			}
			if b < 0x20 {
				v.wrapBudget = 0
			}
			switch b {
			case 0x1b:
				if v.trackingLinks() {
					v.write(data[seg:i], true)
					seg = i
				}
				v.scan.enter(stEsc)
			case 0x07:
				fx.Bells++
			case '\n', '\v', '\f':
				v.write(data[seg:i], v.trackingLinks())
				v.beforeLineFeed()
				v.write(data[i:i+1], false)
				seg = i + 1
			}

		case stEsc:
			switch {
			case b == '[':
				v.scan.enter(stCSI)
			case b == ']':
				v.scan.enter(stOSC)
			case b == 'P' || b == 'X' || b == '^' || b == '_':
				v.scan.enter(stString)
			case b == 0x1b:
			case b >= 0x20 && b <= 0x2f:
				// intermediate byte, the sequence continues
			default:
				v.scan.state = stGround
				seg = v.endControl(data, seg, i)
				if b == 'c' {
					v.top, v.bottom = 0, v.rows-1
					v.bracketedPaste = false
					v.link = ""
					clear(v.links)
				}
			}

		case stCSI:
			switch {
			case b >= 0x40 && b <= 0x7e:
				v.scan.state = stGround
				if b == 'n' {
					v.write(data[seg:i+1], false)
					seg = i + 1
				} else {
					seg = v.endControl(data, seg, i)
				}
				v.handleCSI(b, &fx)
			case b == 0x1b:
				v.scan.enter(stEsc)
			case b == 0x18 || b == 0x1a:
				v.scan.state = stGround
			default:
				v.scan.add(b)
			}

		case stOSC:
			switch b {
			case 0x07:
				v.scan.state = stGround
				seg = v.finishOSC(data, seg, i)
			case 0x1b:
				v.scan.state = stOSCEsc
			default:
				v.scan.add(b)
			}

		case stOSCEsc:
			v.scan.state = stGround
			seg = v.finishOSC(data, seg, i)

		case stString:
			switch b {
			case 0x07:
				v.scan.state = stGround
				seg = v.endControl(data, seg, i)
			case 0x1b:
				v.scan.state = stStringEsc
			}

		case stStringEsc:
			v.scan.state = stGround
			seg = v.endControl(data, seg, i)
		}
	}
	v.write(data[seg:], v.scan.state == stGround && v.trackingLinks())

	if t := v.term.Title(); t != v.title {
		v.title = t
		fx.TitleChanged = true
	}
	fx.Title = v.title
	return fx
}

// carry prepends a UTF-8 sequence split by the previous read and holds back
// one split by this read.
func (v *VT) carry(data []byte) []byte {
	if len(v.pending) > 0 {
		data = append(v.pending, data...)
		v.pending = nil
	}
	if n := incompleteUTF8Tail(data); n > 0 {
		v.pending = append([]byte(nil), data[len(data)-n:]...)
		data = data[:len(data)-n]
	}
	return data
}

func (v *VT) trackingLinks() bool {
	return v.link != "" || len(v.links) > 0
}

// endControl flushes a finished control sequence on its own when hyperlinks
// are tracked, so that text segments map cleanly to cursor movement.
func (v *VT) endControl(data []byte, seg, i int) int {
	if !v.trackingLinks() {
		return seg
	}
	v.write(data[seg:i+1], false)
	return i + 1
}

func (v *VT) finishOSC(data []byte, seg, i int) int {
	uri, ok := oscHyperlink(v.scan.buf)
	if !ok {
		return v.endControl(data, seg, i)
	}
	v.write(data[seg:i+1], false)
	v.link = uri
	return i + 1
}

func (v *VT) write(seg []byte, mark bool) {
	if len(seg) == 0 {
		return
	}
	var before vt10x.Cursor
	var scrolls bool
	if mark {
		before = v.term.Cursor()
		scrolls = isRuneStart(seg[0]) && v.wrapsOnBottom(before)
	}
	_, _ = v.term.Write(seg)
	if mark {
		v.annotate(before, v.term.Cursor(), scrolls)
	}
}

// wrapsOnBottom reports whether printing at cur scrolls the region first.
func (v *VT) wrapsOnBottom(cur vt10x.Cursor) bool {
	return cur.State&cursorWrapNext != 0 && cur.Y == v.bottom &&
		v.term.Mode()&vt10x.ModeWrap != 0
}

// annotate attaches the current hyperlink to the cells printed between two
// cursor positions, or detaches links from overwritten cells. scrolled means
// the first rune wrapped onto a freshly scrolled bottom row.
func (v *VT) annotate(before, after vt10x.Cursor, scrolled bool) {
	from := before.Y*v.cols + before.X
	switch {
	case scrolled:
		from = before.Y * v.cols
	case before.State&cursorWrapNext != 0:
		from++
	}
	to := after.Y*v.cols + after.X
	if after.State&cursorWrapNext != 0 {
		to++
	}
	to = min(to, v.cols*v.rows)
	for idx := from; idx < to; idx++ {
		p := grid.Point{Line: idx / v.cols, Column: idx % v.cols}
		if v.link == "" {
			delete(v.links, p)
		} else {
			v.links[p] = v.link
		}
	}
}

func (v *VT) handleCSI(final byte, fx *Effects) {
	private, args := csiArgs(v.scan.buf)
	switch final {
	case 'n':
		switch argOr(args, 0, 0) {
		case 5:
			if !private {
				fx.Replies = append(fx.Replies, []byte("\x1b[0n"))
			}
		case 6:
			cur := v.term.Cursor()
			fx.Replies = append(fx.Replies, fmt.Appendf(nil, "\x1b[%d;%dR", cur.Y+1, cur.X+1))
		}
	case 'c':
		if !private && argOr(args, 0, 0) == 0 && !hasPrefix(v.scan.buf, '>') && !hasPrefix(v.scan.buf, '=') {
			fx.Replies = append(fx.Replies, deviceAttributesReply)
		}
	case 'h', 'l':
		if !private {
			return
		}
		for _, a := range args {
			if a == 2004 {
				v.bracketedPaste = final == 'h'
			}
		}
	case 'r':
		if private {
			return
		}
		top := argOr(args, 0, 1) - 1
		bottom := argOr(args, 1, v.rows) - 1
		top = min(max(top, 0), v.rows-1)
		bottom = min(max(bottom, 0), v.rows-1)
		if top < bottom {
			v.top, v.bottom = top, bottom
		}
	}
}

func hasPrefix(b []byte, c byte) bool {
	return len(b) > 0 && b[0] == c
}

// isRuneStart reports a printable byte that begins a character.
func isRuneStart(b byte) bool {
	return b >= 0x20 && b != 0x7f && (b < 0x80 || b >= 0xc0)
}

// beforePrint runs before the library prints a rune with the cursor in an
// unknown state. A pending autowrap on the bottom margin scrolls like a line
// feed. It returns how many runes fit before the next wrap.
func (v *VT) beforePrint() int {
	cur := v.term.Cursor()
	if cur.State&cursorWrapNext == 0 {
		return max(v.cols-cur.X, 1)
	}
	if v.term.Mode()&vt10x.ModeWrap == 0 {
		return 1
	}
	if v.wrapsOnBottom(cur) {
		v.scrollOff()
	}
	return v.cols
}

// beforeLineFeed runs just before the library processes a line feed.
func (v *VT) beforeLineFeed() {
	if v.term.Cursor().Y == v.bottom {
		v.scrollOff()
	}
}

// scrollOff prepares for the region scrolling up one line. On a full-screen
// region the top row is about to scroll away, so it is copied into history.
func (v *VT) scrollOff() {
	if v.top == 0 && v.bottom == v.rows-1 && !v.altScreen() {
		v.pushHistory(v.liveRow(0))
	}
	v.shiftLinks(v.top, v.bottom)
}

func (v *VT) pushHistory(row []grid.Cell) {
	v.hist.push(row)
	// keep a scrolled-back viewport on the same content
	if v.offset > 0 {
		v.offset++
	}
	v.offset = min(v.offset, v.hist.len())
}

func (v *VT) shiftLinks(top, bottom int) {
	if len(v.links) == 0 {
		return
	}
	moved := make(map[grid.Point]string, len(v.links))
	for p, uri := range v.links {
		switch {
		case p.Line < top || p.Line > bottom:
			moved[p] = uri
		case p.Line > top:
			moved[grid.Point{Line: p.Line - 1, Column: p.Column}] = uri
		}
	}
	v.links = moved
}

func (v *VT) altScreen() bool {
	return v.term.Mode()&vt10x.ModeAltScreen != 0
}

func (v *VT) liveRow(y int) []grid.Cell {
	row := make([]grid.Cell, v.cols)
	for x := range row {
		row[x] = v.cellAt(x, y)
	}
	return row
}

func (v *VT) cellAt(x, y int) grid.Cell {
	g := v.term.Cell(x, y)
	c := grid.Cell{
		Char:  g.Char,
		FG:    convertColor(g.FG),
		BG:    convertColor(g.BG),
		Attrs: convertAttrs(g.Mode),
		Link:  v.links[grid.Point{Line: y, Column: x}],
	}
	if c.Char == 0 {
		c.Char = ' '
	}
	return c
}

// Resize implements Engine.
func (v *VT) Resize(cols, rows int) {
	cols, rows = max(cols, 1), max(rows, 1)
	if cols == v.cols && rows == v.rows {
		return
	}
	// vt10x drops the rows above the cursor when the screen shrinks past it
	if slide := v.term.Cursor().Y - rows + 1; slide > 0 && !v.altScreen() {
		for y := 0; y < slide; y++ {
			v.pushHistory(v.liveRow(y))
		}
	}
	v.term.Resize(cols, rows)
	v.cols, v.rows = cols, rows
	v.top, v.bottom = 0, rows-1
	clear(v.links)
	v.offset = min(v.offset, v.hist.len())
}

// Scroll implements Engine.
func (v *VT) Scroll(s grid.Scroll) {
	if v.altScreen() {
		v.offset = 0
		return
	}
	switch s.Kind {
	case grid.ScrollDelta:
		v.offset += s.Lines
	case grid.ScrollPageUp:
		v.offset += v.rows
	case grid.ScrollPageDown:
		v.offset -= v.rows
	case grid.ScrollTop:
		v.offset = v.hist.len()
	case grid.ScrollBottom:
		v.offset = 0
	}
	v.offset = min(max(v.offset, 0), v.hist.len())
}

// Clear implements Engine.
func (v *VT) Clear(mode grid.ClearMode) {
	switch mode {
	case grid.ClearScreen:
		_, _ = v.term.Write([]byte("\x1b[2J"))
		clear(v.links)
	case grid.ClearScrollback:
		v.hist.clear()
		v.offset = 0
	}
}

// SetSelection implements Engine.
func (v *VT) SetSelection(r *grid.Range) {
	if r == nil {
		v.selection = nil
		return
	}
	sel := r.Normalized()
	v.selection = &sel
}

// Frame implements Engine.
func (v *VT) Frame() grid.Frame {
	off := v.offset
	if v.altScreen() {
		off = 0
	}
	f := grid.Frame{
		Cols:          v.cols,
		Rows:          v.rows,
		Cells:         make([]grid.Cell, v.cols*v.rows),
		Mode:          v.mode(),
		DisplayOffset: off,
		HistorySize:   v.hist.len(),
	}

	histLen := v.hist.len()
	for y := 0; y < v.rows; y++ {
		src := y - off
		var old []grid.Cell
		if src < 0 {
			old = v.hist.at(histLen + src)
		}
		for x := 0; x < v.cols; x++ {
			var c grid.Cell
			switch {
			case src >= 0:
				c = v.cellAt(x, src)
			case x < len(old):
				c = old[x]
			default:
				c = grid.Cell{Char: ' '}
			}
			c.Point = grid.Point{Line: y, Column: x}
			f.Cells[y*v.cols+x] = c
		}
	}

	cur := v.term.Cursor()
	f.Cursor = grid.Cursor{Point: grid.Point{Line: cur.Y + off, Column: cur.X}}
	if !v.term.CursorVisible() || f.Cursor.Line >= v.rows {
		f.Cursor.Shape = grid.CursorHidden
	}
	if cur.X >= 0 && cur.X < v.cols && cur.Y >= 0 && cur.Y < v.rows {
		f.CursorChar = v.cellAt(cur.X, cur.Y).Char
	}
	if v.selection != nil {
		sel := *v.selection
		f.Selection = &sel
	}
	return f
}

func (v *VT) mode() grid.Mode {
	m := v.term.Mode()
	var out grid.Mode
	set := func(flag vt10x.ModeFlag, to grid.Mode) {
		if m&flag != 0 {
			out |= to
		}
	}
	set(vt10x.ModeAppCursor, grid.ModeAppCursor)
	set(vt10x.ModeAltScreen, grid.ModeAltScreen)
	set(vt10x.ModeAppKeypad, grid.ModeAppKeypad)
	set(vt10x.ModeWrap, grid.ModeLineWrap)
	set(vt10x.ModeInsert, grid.ModeInsert)
	set(vt10x.ModeMouseMask, grid.ModeMouseReport)
	set(vt10x.ModeMouseSgr, grid.ModeSGRMouse)
	set(vt10x.ModeFocus, grid.ModeFocusReport)
	if v.term.CursorVisible() {
		out |= grid.ModeShowCursor
	}
	if v.bracketedPaste {
		out |= grid.ModeBracketedPaste
	}
	return out
}

func convertColor(c vt10x.Color) grid.Color {
	if c >= vt10x.DefaultFG {
		return grid.DefaultColor
	}
	// vt10x resolves palette entries to RGB
	return grid.RGBColor(uint8(c>>16), uint8(c>>8), uint8(c))
}

func convertAttrs(mode int16) grid.Attr {
	var a grid.Attr
	if mode&glyphBold != 0 {
		a |= grid.AttrBold
	}
	if mode&glyphItalic != 0 {
		a |= grid.AttrItalic
	}
	if mode&glyphUnderline != 0 {
		a |= grid.AttrUnderline
	}
	if mode&glyphReverse != 0 {
		a |= grid.AttrReverse
	}
	if mode&glyphBlink != 0 {
		a |= grid.AttrBlink
	}
	if mode&glyphWrap != 0 {
		a |= grid.AttrWrapline
	}
	return a
}
