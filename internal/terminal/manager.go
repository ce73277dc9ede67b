package terminal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kandev/ptyterm/internal/common/logger"
)

var (
	// ErrSessionNotFound is returned for an unknown session id.
	ErrSessionNotFound = errors.New("terminal session not found")
	// ErrSessionExists is returned when Create is given an id already in use.
	ErrSessionExists = errors.New("terminal session already exists")
)

// Manager tracks live sessions by id. A session is forgotten once its child
// exits or it is closed.
type Manager struct {
	logger *logger.Logger
	spawn  spawnFunc

	ctx    context.Context
	cancel context.CancelFunc

	mu sync.RWMutex
	// a nil entry reserves an id while its session is spawning
	sessions map[string]*Session
}

// NewManager creates an empty manager.
func NewManager(log *logger.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		logger:   log.WithComponent("terminal-manager"),
		spawn:    startProcess,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Session),
	}
}

// Create starts a session. The id in cfg is replaced by a fresh UUID when
// empty. Sessions outlive ctx; it only scopes the spawn.
func (m *Manager) Create(ctx context.Context, cfg Config) (*Session, error) {
	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}

	m.mu.Lock()
	if _, exists := m.sessions[cfg.ID]; exists {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrSessionExists, cfg.ID)
	}
	m.sessions[cfg.ID] = nil
	m.mu.Unlock()

	// Keep values such as the trace span, drop the caller's deadline.
	sctx, stop := context.WithCancel(context.WithoutCancel(ctx))
	go func() {
		select {
		case <-m.ctx.Done():
			stop()
		case <-sctx.Done():
		}
	}()

	s, err := newSession(sctx, cfg, m.logger, m.spawn)
	if err != nil {
		stop()
		m.mu.Lock()
		delete(m.sessions, cfg.ID)
		m.mu.Unlock()
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	go func() {
		<-s.Done()
		stop()
		m.mu.Lock()
		if m.sessions[s.ID()] == s {
			delete(m.sessions, s.ID())
		}
		m.mu.Unlock()
		m.logger.Debug("terminal session removed", zap.String("session_id", s.ID()))
	}()

	return s, nil
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.sessions[id]
	return s, s != nil
}

// List returns the live sessions ordered by id.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		if s != nil {
			out = append(out, s)
		}
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Close closes one session and waits until it has stopped.
func (m *Manager) Close(ctx context.Context, id string) error {
	s, ok := m.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return closeAndWait(ctx, s)
}

func closeAndWait(ctx context.Context, s *Session) error {
	s.Close()
	select {
	case <-s.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for terminal session %s: %w", s.ID(), ctx.Err())
	}
}

// CloseAll closes every session in parallel and waits for them to stop.
func (m *Manager) CloseAll(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, s := range m.List() {
		s := s
		g.Go(func() error {
			return closeAndWait(gctx, s)
		})
	}
	err := g.Wait()
	m.cancel()
	return err
}
