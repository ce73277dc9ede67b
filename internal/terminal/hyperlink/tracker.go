package hyperlink

import (
	"github.com/kandev/ptyterm/internal/terminal/grid"
	"github.com/kandev/ptyterm/internal/terminal/keys"
)

// Tracker implements the modifier-click protocol for opening links: a press
// with the platform modifier arms a link, and releasing over the same link
// with the modifier still held opens it. It is not safe for concurrent use.
type Tracker struct {
	pressed *Match
	hovered *Match
}

// Press records the link under p when the platform modifier is held.
func (t *Tracker) Press(c *grid.Content, p grid.Point, mods keys.Modifiers) bool {
	t.pressed = nil
	if !mods.Platform {
		return false
	}
	m, ok := FindAt(c, p)
	if !ok {
		return false
	}
	t.pressed = &m
	return true
}

// Move recomputes the hovered link and reports whether it changed.
func (t *Tracker) Move(c *grid.Content, p grid.Point, mods keys.Modifiers) bool {
	var next *Match
	if mods.Platform {
		if m, ok := FindAt(c, p); ok {
			next = &m
		}
	}
	changed := !sameMatch(t.hovered, next)
	t.hovered = next
	return changed
}

// Release returns the URL to open, if the release completes a click on the
// link recorded by Press. The recorded press is always cleared.
func (t *Tracker) Release(c *grid.Content, p grid.Point, mods keys.Modifiers) (string, bool) {
	pressed := t.pressed
	t.pressed = nil
	if pressed == nil || !mods.Platform {
		return "", false
	}
	m, ok := FindAt(c, p)
	if !ok || !sameMatch(pressed, &m) {
		return "", false
	}
	return m.URL, true
}

// Hovered returns the range of the hovered link, or nil.
func (t *Tracker) Hovered() *grid.Range {
	if t.hovered == nil {
		return nil
	}
	r := t.hovered.Range
	return &r
}

func sameMatch(a, b *Match) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
