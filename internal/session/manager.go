package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager serialises updates per session on top of a Store and owns the
// per-session broadcasters.
type Manager struct {
	store Store

	mu    sync.Mutex
	locks map[uuid.UUID]*refLock
	hubs  map[uuid.UUID]*Broadcaster
}

type refLock struct {
	sync.Mutex
	refs int
}

// NewManager wraps store.
func NewManager(store Store) *Manager {
	return &Manager{
		store: store,
		locks: make(map[uuid.UUID]*refLock),
		hubs:  make(map[uuid.UUID]*Broadcaster),
	}
}

func (m *Manager) lock(id uuid.UUID) func() {
	m.mu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &refLock{}
		m.locks[id] = l
	}
	l.refs++
	m.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, id)
		}
		m.mu.Unlock()
	}
}

// Create stores a new session for lang.
func (m *Manager) Create(ctx context.Context, lang string) (*Session, error) {
	s := New(lang)
	if err := m.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	log.Printf("[Session] created %s (lang=%s)", s.ID, lang)
	return s, nil
}

// Get loads a session.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	return m.store.Get(ctx, id)
}

// Update loads the session, applies fn and saves the result while holding the
// session's lock. Nothing is saved when fn fails.
func (m *Manager) Update(ctx context.Context, id uuid.UUID, fn func(*Session) error) (*Session, error) {
	unlock := m.lock(id)
	defer unlock()

	s, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(s); err != nil {
		return nil, err
	}
	s.UpdatedAt = time.Now().UTC()
	if err := m.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("save session %s: %w", id, err)
	}
	return s, nil
}

// Delete removes the session and disconnects its subscribers.
func (m *Manager) Delete(ctx context.Context, id uuid.UUID) error {
	unlock := m.lock(id)
	defer unlock()

	if _, err := m.store.Get(ctx, id); err != nil {
		return err
	}
	if err := m.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	m.mu.Lock()
	hub, ok := m.hubs[id]
	delete(m.hubs, id)
	m.mu.Unlock()
	if ok {
		hub.Close()
	}
	log.Printf("[Session] deleted %s", id)
	return nil
}

// Broadcaster returns the session's broadcaster, creating it on first use.
func (m *Manager) Broadcaster(id uuid.UUID) *Broadcaster {
	m.mu.Lock()
	defer m.mu.Unlock()
	hub, ok := m.hubs[id]
	if !ok {
		hub = NewBroadcaster()
		m.hubs[id] = hub
	}
	return hub
}

// Publish sends e to the session's subscribers, if any.
func (m *Manager) Publish(id uuid.UUID, e Event) {
	m.mu.Lock()
	hub, ok := m.hubs[id]
	m.mu.Unlock()
	if ok {
		hub.Publish(e)
	}
}

// Release drops the broadcaster once its last subscriber has left.
func (m *Manager) Release(id uuid.UUID, ch chan Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	hub, ok := m.hubs[id]
	if !ok {
		return
	}
	hub.Unsubscribe(ch)
	if hub.Len() == 0 {
		delete(m.hubs, id)
	}
}
