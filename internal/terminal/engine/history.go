package engine

import "github.com/kandev/ptyterm/internal/terminal/grid"

// history is a bounded ring of rows scrolled off the top of the screen.
type history struct {
	rows  [][]grid.Cell
	start int
	limit int
}

func newHistory(limit int) *history {
	return &history{limit: max(limit, 0)}
}

func (h *history) push(row []grid.Cell) {
	if h.limit == 0 {
		return
	}
	if len(h.rows) < h.limit {
		h.rows = append(h.rows, row)
		return
	}
	h.rows[h.start] = row
	h.start = (h.start + 1) % h.limit
}

func (h *history) len() int { return len(h.rows) }

// at returns row i, where 0 is the oldest.
func (h *history) at(i int) []grid.Cell {
	return h.rows[(h.start+i)%len(h.rows)]
}

func (h *history) clear() {
	h.rows = nil
	h.start = 0
}
