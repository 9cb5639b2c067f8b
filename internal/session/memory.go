// ABOUTME: In-memory session Store for tests and single-process deployments
// ABOUTME: Mirrors the SQLite store's lazy-expiry semantics without I/O

package session

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore implements Store with a mutex-guarded map.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time

	// FailWrites makes Create/Put/Delete return ErrUnavailable, for
	// exercising backend-failure paths in tests.
	FailWrites bool
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// SetClock replaces the store's clock, for expiry tests.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

// Create inserts a new session record and returns its id.
func (m *MemoryStore) Create(_ context.Context, payload json.RawMessage, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites {
		return "", ErrUnavailable
	}

	if payload == nil {
		payload = json.RawMessage("{}")
	}
	now := m.now().UTC()
	id := uuid.New().String()
	m.sessions[id] = &Session{
		ID:        id,
		Payload:   append(json.RawMessage(nil), payload...),
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	return id, nil
}

// Get returns the live session for id, hiding expired records.
func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[id]
	if !ok || sess.Expired(m.now()) {
		return nil, ErrNotFound
	}
	cp := *sess
	cp.Payload = append(json.RawMessage(nil), sess.Payload...)
	return &cp, nil
}

// Put overwrites the payload and extends expiry for a live record.
func (m *MemoryStore) Put(_ context.Context, id string, payload json.RawMessage, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites {
		return ErrUnavailable
	}

	now := m.now().UTC()
	sess, ok := m.sessions[id]
	if !ok || sess.Expired(now) {
		return ErrNotFound
	}
	if payload == nil {
		payload = json.RawMessage("{}")
	}
	sess.Payload = append(json.RawMessage(nil), payload...)
	sess.UpdatedAt = now
	sess.ExpiresAt = now.Add(ttl)
	return nil
}

// Delete removes the session if present.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites {
		return ErrUnavailable
	}

	delete(m.sessions, id)
	return nil
}

// List returns all live sessions, most recently updated first.
func (m *MemoryStore) List(_ context.Context) ([]*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	var sessions []*Session
	for _, sess := range m.sessions {
		if sess.Expired(now) {
			continue
		}
		cp := *sess
		cp.Payload = append(json.RawMessage(nil), sess.Payload...)
		sessions = append(sessions, &cp)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

// Close is a no-op for the memory store.
func (m *MemoryStore) Close() error { return nil }
