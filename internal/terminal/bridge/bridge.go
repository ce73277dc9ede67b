package bridge

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/kandev/ptyterm/internal/common/logger"
)

// Handler processes one event on the consumer goroutine.
type Handler func(Event)

// Bridge connects a single producer to a single consumer.
type Bridge struct {
	queue  *Queue[Event]
	logger *logger.Logger
}

// New creates a bridge.
func New(log *logger.Logger) *Bridge {
	return &Bridge{
		queue:  NewQueue[Event](),
		logger: log.WithComponent("event-bridge"),
	}
}

// Send enqueues ev. It never blocks; events sent after Close are dropped.
func (b *Bridge) Send(ev Event) {
	if !b.queue.Push(ev) {
		b.logger.Debug("dropping event after close", zap.Stringer("kind", ev.Kind))
	}
}

// Close stops accepting events. Run drains what is queued, then returns.
func (b *Bridge) Close() {
	b.queue.Close()
}

// Pending returns the number of undelivered events.
func (b *Bridge) Pending() int {
	return b.queue.Len()
}

// Run dispatches events to h in order until CloseRequested has been handled,
// the bridge is closed and drained, or ctx is done. Nothing is delivered after
// CloseRequested; events still queued behind it are dropped.
func (b *Bridge) Run(ctx context.Context, h Handler) error {
	for {
		ev, err := b.queue.Pop(ctx)
		if err != nil {
			if errors.Is(err, ErrClosed) {
				return nil
			}
			return err
		}
		h(ev)
		if ev.Kind == CloseRequested {
			b.discard()
			return nil
		}
	}
}

// discard closes the queue and drops whatever is left in it.
func (b *Bridge) discard() {
	b.queue.Close()
	n := 0
	for {
		if _, ok := b.queue.TryPop(); !ok {
			break
		}
		n++
	}
	if n > 0 {
		b.logger.Debug("dropping events after close", zap.Int("count", n))
	}
}
