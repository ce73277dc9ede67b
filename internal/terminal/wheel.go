package terminal

import (
	"github.com/kandev/ptyterm/internal/terminal/grid"
	"github.com/kandev/ptyterm/internal/terminal/keys"
)

// WheelUnit tells how a wheel delta is measured.
type WheelUnit int

const (
	// WheelLines is a notched wheel, one unit per tick.
	WheelLines WheelUnit = iota
	// WheelPixels is a precise touchpad delta.
	WheelPixels
)

// WheelDelta is one scroll-wheel event. Positive Y scrolls towards history.
type WheelDelta struct {
	Y    float64
	Unit WheelUnit
}

// ScrollWheel scrolls the viewport by a wheel delta. Fractions of a line are
// accumulated across events. On the alternate screen, which has no history,
// the wheel is sent to the program as arrow keys instead.
func (s *Session) ScrollWheel(d WheelDelta) {
	lines := d.Y * float64(s.cfg.WheelLinesPerTick)
	if d.Unit == WheelPixels {
		lines = d.Y / s.cfg.PixelsPerLine
	}

	s.mu.Lock()
	s.wheelAccum += lines
	n := int(s.wheelAccum)
	s.wheelAccum -= float64(n)
	s.mu.Unlock()
	if n == 0 {
		return
	}

	mode := s.Snapshot().Mode
	if mode.Has(grid.ModeAltScreen) && !mode.Has(grid.ModeMouseReport) {
		key := "up"
		if n < 0 {
			key, n = "down", -n
		}
		seq, ok := keys.Encode(keys.KeyEvent{Key: key}, mode, s.altSendsEsc)
		if !ok {
			return
		}
		buf := make([]byte, 0, len(seq)*n)
		for i := 0; i < n; i++ {
			buf = append(buf, seq...)
		}
		s.host.Write(buf)
		return
	}
	s.ScrollLines(n)
}
