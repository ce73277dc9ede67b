package terminal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, *fakeSpawner) {
	t.Helper()
	m := NewManager(newTestLogger(t))
	sp := &fakeSpawner{}
	m.spawn = sp.spawn
	t.Cleanup(func() { _ = m.CloseAll(context.Background()) })
	return m, sp
}

func TestManager_CreateAssignsID(t *testing.T) {
	m, _ := newTestManager(t)

	s, err := m.Create(context.Background(), Config{Dimensions: testDimensions()})
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID())

	got, ok := m.Get(s.ID())
	require.True(t, ok)
	assert.Same(t, s, got)
}

func TestManager_DuplicateID(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Create(context.Background(), Config{ID: "one"})
	require.NoError(t, err)
	_, err = m.Create(context.Background(), Config{ID: "one"})
	assert.ErrorIs(t, err, ErrSessionExists)
}

func TestManager_ConcurrentCreateWithSameID(t *testing.T) {
	m, sp := newTestManager(t)
	sp.gate = make(chan struct{})

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := m.Create(context.Background(), Config{ID: "dup"})
			errs <- err
		}()
	}

	// the second caller is turned away while the first is still spawning
	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrSessionExists)
	case <-time.After(waitTimeout):
		t.Fatal("no Create returned while a spawn was pending")
	}
	_, ok := m.Get("dup")
	assert.False(t, ok, "a reserved id is not listed until it is running")
	assert.Empty(t, m.List())

	close(sp.gate)
	select {
	case err := <-errs:
		require.NoError(t, err)
	case <-time.After(waitTimeout):
		t.Fatal("spawn did not finish")
	}

	_, ok = m.Get("dup")
	assert.True(t, ok)
	sp.mu.Lock()
	assert.Len(t, sp.hosts, 1)
	sp.mu.Unlock()
}

func TestManager_FailedSpawnReleasesID(t *testing.T) {
	m, sp := newTestManager(t)
	sp.err = errors.New("no pty")

	_, err := m.Create(context.Background(), Config{ID: "retry"})
	require.Error(t, err)
	_, ok := m.Get("retry")
	assert.False(t, ok)

	sp.err = nil
	_, err = m.Create(context.Background(), Config{ID: "retry"})
	assert.NoError(t, err)
}

func TestManager_ListIsSorted(t *testing.T) {
	m, _ := newTestManager(t)
	for _, id := range []string{"c", "a", "b"} {
		_, err := m.Create(context.Background(), Config{ID: id})
		require.NoError(t, err)
	}

	var ids []string
	for _, s := range m.List() {
		ids = append(ids, s.ID())
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestManager_ForgetsExitedSessions(t *testing.T) {
	m, sp := newTestManager(t)

	s, err := m.Create(context.Background(), Config{ID: "short"})
	require.NoError(t, err)

	sp.last().exit(0)
	nextEvent(t, s, EventCloseRequested)

	require.Eventually(t, func() bool {
		_, ok := m.Get("short")
		return !ok
	}, waitTimeout, 5*time.Millisecond)
}

func TestManager_Close(t *testing.T) {
	m, sp := newTestManager(t)

	_, err := m.Create(context.Background(), Config{ID: "x"})
	require.NoError(t, err)

	require.NoError(t, m.Close(context.Background(), "x"))
	assert.True(t, sp.last().isClosed())

	err = m.Close(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_CloseAll(t *testing.T) {
	m, sp := newTestManager(t)
	for _, id := range []string{"a", "b", "c"} {
		_, err := m.Create(context.Background(), Config{ID: id})
		require.NoError(t, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	require.NoError(t, m.CloseAll(ctx))

	for _, h := range sp.hosts {
		assert.True(t, h.isClosed())
	}
	require.Eventually(t, func() bool { return len(m.List()) == 0 }, waitTimeout, 5*time.Millisecond)
}

func TestManager_SessionOutlivesCreateContext(t *testing.T) {
	m, sp := newTestManager(t)

	ctx, cancel := context.WithCancel(context.Background())
	s, err := m.Create(ctx, Config{ID: "long"})
	require.NoError(t, err)
	cancel()

	select {
	case <-s.Done():
		t.Fatal("session stopped with its create context")
	case <-time.After(50 * time.Millisecond):
	}
	assert.False(t, sp.last().isClosed())
}
