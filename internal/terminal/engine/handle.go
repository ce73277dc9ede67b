package engine

import "github.com/kandev/ptyterm/internal/terminal/grid"

// Handle pairs an Engine with the fair lock shared by the PTY reader and the
// session consumer. Every access to the engine goes through it.
type Handle struct {
	mu  FairMutex
	eng Engine
}

// NewHandle guards eng.
func NewHandle(eng Engine) *Handle {
	return &Handle{eng: eng}
}

// Feed parses data under the lock. It satisfies the PTY host's feeder contract.
func (h *Handle) Feed(data []byte) Effects {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.eng.Feed(data)
}

// With runs fn with exclusive access to the engine. fn must not retain it.
func (h *Handle) With(fn func(Engine)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(h.eng)
}

// Frame copies the engine state under the lock.
func (h *Handle) Frame() (f grid.Frame) {
	h.With(func(e Engine) { f = e.Frame() })
	return f
}
