package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, time.Millisecond)
}

func TestFairMutex_FIFOOrder(t *testing.T) {
	var m FairMutex
	m.Lock()

	const n = 8
	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			m.Lock()
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
			m.Unlock()
		}(i)
		// queue each goroutine before starting the next
		want := i + 2
		waitFor(t, func() bool { return m.waiting() == want })
	}

	m.Unlock()
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, order)
	assert.Zero(t, m.waiting())
}

func TestFairMutex_UnlockUnlockedPanics(t *testing.T) {
	var m FairMutex
	assert.Panics(t, func() { m.Unlock() })
}

func TestFairMutex_NoStarvation(t *testing.T) {
	var m FairMutex
	stop := make(chan struct{})
	var wg sync.WaitGroup

	// a hot loop re-acquiring the lock must not keep a second caller out
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			m.Lock()
			time.Sleep(50 * time.Microsecond)
			m.Unlock()
		}
	}()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			m.Lock()
			m.Unlock()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("waiter starved")
	}
	close(stop)
	wg.Wait()
}

func TestHandle_FramesAreNeverTorn(t *testing.T) {
	h := NewHandle(NewVT(16, 2, 0))
	rowA := []byte("\x1b[1;1HAAAAAAAAAAAAAAAA")
	rowB := []byte("\x1b[1;1HBBBBBBBBBBBBBBBB")

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			if i%2 == 0 {
				h.Feed(rowA)
			} else {
				h.Feed(rowB)
			}
		}
	}()

	for i := 0; i < 500; i++ {
		f := h.Frame()
		first := f.Cells[0].Char
		for col := 0; col < f.Cols; col++ {
			if f.Cells[col].Char != first {
				close(stop)
				wg.Wait()
				t.Fatalf("torn frame at iteration %d: column %d is %q, column 0 is %q", i, col, f.Cells[col].Char, first)
			}
		}
	}
	close(stop)
	wg.Wait()
}
