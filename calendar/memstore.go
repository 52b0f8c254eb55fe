package calendar

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemStore is an in-process Store used by tests and by callers that need no
// persistence.
type MemStore struct {
	mu     sync.RWMutex
	events map[string]Event
}

func NewMemStore() *MemStore {
	return &MemStore{events: make(map[string]Event)}
}

func (m *MemStore) CreateEvent(_ context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[e.ID]; ok {
		return fmt.Errorf("event %s already exists", e.ID)
	}
	m.events[e.ID] = e
	return nil
}

func (m *MemStore) GetEvent(_ context.Context, id string) (Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.events[id]
	if !ok {
		return Event{}, ErrEventNotFound
	}
	return e, nil
}

func (m *MemStore) UpdateEvent(_ context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[e.ID]; !ok {
		return ErrEventNotFound
	}
	m.events[e.ID] = e
	return nil
}

func (m *MemStore) DeleteEvent(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[id]; !ok {
		return ErrEventNotFound
	}
	delete(m.events, id)
	return nil
}

func (m *MemStore) ListEvents(_ context.Context, min, max time.Time) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Event{}
	for _, e := range m.events {
		if e.Overlaps(min, max) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].ID < out[j].ID
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out, nil
}
