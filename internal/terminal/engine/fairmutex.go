package engine

import "sync"

// FairMutex is a ticket lock: waiters acquire it in arrival order, so a
// goroutine that locks in a tight loop cannot starve the others.
type FairMutex struct {
	mu      sync.Mutex
	cond    *sync.Cond
	next    uint64
	serving uint64
}

func (m *FairMutex) init() {
	if m.cond == nil {
		m.cond = sync.NewCond(&m.mu)
	}
}

// Lock blocks until every earlier caller has released the lock.
func (m *FairMutex) Lock() {
	m.mu.Lock()
	m.init()
	ticket := m.next
	m.next++
	for ticket != m.serving {
		m.cond.Wait()
	}
	m.mu.Unlock()
}

// Unlock hands the lock to the next ticket holder.
func (m *FairMutex) Unlock() {
	m.mu.Lock()
	m.init()
	if m.serving == m.next {
		m.mu.Unlock()
		panic("engine: unlock of unlocked FairMutex")
	}
	m.serving++
	m.cond.Broadcast()
	m.mu.Unlock()
}

// waiting returns the number of goroutines holding or queued for the lock.
func (m *FairMutex) waiting() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int(m.next - m.serving)
}
