package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"webcal/internal/model"
)

// Memory keeps events in a slice guarded by a RWMutex. Ids are random UUIDs.
type Memory struct {
	mu     sync.RWMutex
	events []model.Event
	now    func() time.Time
	newID  func() string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
}

// List returns a copy of every event in insertion order.
func (m *Memory) List(_ context.Context) ([]model.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Event, len(m.events))
	copy(out, m.events)
	return out, nil
}

// ListRange returns events overlapping [start, end].
func (m *Memory) ListRange(_ context.Context, start, end time.Time) ([]model.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Event, 0)
	for _, e := range m.events {
		if overlaps(e.Start, e.End, start, end) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Get returns the event with id or ErrNotFound.
func (m *Memory) Get(_ context.Context, id string) (model.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := m.indexOf(id)
	if i < 0 {
		return model.Event{}, ErrNotFound
	}
	return m.events[i], nil
}

// Create assigns an id and creation time, then appends e.
func (m *Memory) Create(_ context.Context, e model.Event) (model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = m.newID()
	e.CreatedAt = m.now()
	e.ApplyDefaults()
	m.events = append(m.events, e)
	return e, nil
}

// Update merges p into the stored event and re-applies defaults.
func (m *Memory) Update(_ context.Context, id string, p model.Patch) (model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(id)
	if i < 0 {
		return model.Event{}, ErrNotFound
	}
	merged := p.Apply(m.events[i])
	merged.ApplyDefaults()
	m.events[i] = merged
	return merged, nil
}

// Delete removes the event with id or returns ErrNotFound.
func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	m.events = append(m.events[:i], m.events[i+1:]...)
	return nil
}

// Close is a no-op.
func (m *Memory) Close(_ context.Context) error {
	return nil
}

// indexOf must be called with mu held.
func (m *Memory) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, e := range m.events {
		if e.ID == id {
			return i
		}
	}
	return -1
}
