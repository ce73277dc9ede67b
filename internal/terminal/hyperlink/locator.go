// Package hyperlink finds URLs under a grid point, either from explicit OSC 8
// annotations or by scanning the visible text.
package hyperlink

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/kandev/ptyterm/internal/terminal/grid"
)

var urlPattern = regexp.MustCompile(
	"(ipfs:|ipns:|magnet:|mailto:|gemini://|gopher://|https://|http://|news:|file://|git://|ssh:|ftp://)" +
		"[^\\x{0000}-\\x{001F}\\x{007F}-\\x{009F}<>\"\\s{-}\\^⟨⟩`']+")

// Match is a URL and the inclusive grid range it occupies.
type Match struct {
	URL   string
	Range grid.Range
}

// FindAt returns the URL covering p in c. Explicit hyperlink annotations win
// over URLs recognised in the text.
func FindAt(c *grid.Content, p grid.Point) (Match, bool) {
	if c == nil {
		return Match{}, false
	}
	cell, ok := c.CellAt(p)
	if !ok {
		return Match{}, false
	}
	if cell.Link != "" {
		return expandLink(c, p, cell.Link), true
	}
	return scanLine(c, p)
}

func expandLink(c *grid.Content, p grid.Point, uri string) Match {
	idx := p.Line*c.Cols + p.Column
	start, end := idx, idx
	for start > 0 && c.Cells[start-1].Link == uri {
		start--
	}
	for end+1 < len(c.Cells) && c.Cells[end+1].Link == uri {
		end++
	}
	return Match{
		URL: uri,
		Range: grid.Range{
			Start: grid.Point{Line: start / c.Cols, Column: start % c.Cols},
			End:   grid.Point{Line: end / c.Cols, Column: end % c.Cols},
		},
	}
}

// logicalLine joins the soft-wrapped rows around line into one string and
// records the grid point of every rune.
type logicalLine struct {
	text   string
	points []grid.Point
	// runeAt maps a byte offset in text to the rune index starting there.
	runeAt map[int]int
}

func buildLogicalLine(c *grid.Content, line int) logicalLine {
	first, last := line, line
	for first > 0 && c.IsWrapped(first-1) {
		first--
	}
	for c.IsWrapped(last) {
		last++
	}

	var b strings.Builder
	ll := logicalLine{runeAt: make(map[int]int)}
	for l := first; l <= last; l++ {
		for col, cell := range c.Row(l) {
			ch := cell.Char
			if ch == 0 {
				ch = ' '
			}
			ll.runeAt[b.Len()] = len(ll.points)
			b.WriteRune(ch)
			ll.points = append(ll.points, grid.Point{Line: l, Column: col})
		}
	}
	ll.runeAt[b.Len()] = len(ll.points)
	ll.text = b.String()
	return ll
}

func scanLine(c *grid.Content, p grid.Point) (Match, bool) {
	ll := buildLogicalLine(c, p.Line)
	target := -1
	for i, pt := range ll.points {
		if pt == p {
			target = i
			break
		}
	}
	if target < 0 {
		return Match{}, false
	}

	for _, loc := range urlPattern.FindAllStringIndex(ll.text, -1) {
		from, to := ll.runeAt[loc[0]], ll.runeAt[loc[1]]
		if target < from || target >= to {
			continue
		}
		url, trimmed := sanitize(ll.text[loc[0]:loc[1]])
		last := to - 1 - trimmed
		if url == "" || last < from || target > last {
			return Match{}, false
		}
		return Match{
			URL:   url,
			Range: grid.Range{Start: ll.points[from], End: ll.points[last]},
		}, true
	}
	return Match{}, false
}

// sanitize drops trailing punctuation that usually belongs to the surrounding
// prose, including closing parentheses without a matching opener. It returns
// the trimmed URL and the number of runes removed.
func sanitize(url string) (string, int) {
	opens := strings.Count(url, "(")
	closes := strings.Count(url, ")")
	trimmed := 0
	for url != "" {
		r, size := utf8.DecodeLastRuneInString(url)
		switch {
		case r == '.' || r == ',' || r == ':' || r == ';' || r == '(':
		case r == ')' && closes > opens:
			closes--
		default:
			return url, trimmed
		}
		url = url[:len(url)-size]
		trimmed++
	}
	return url, trimmed
}
