package memory

import "sync"

// DefaultRecentWindow is the number of items RecentContext returns at most.
const DefaultRecentWindow = 5

// Item is an arbitrary record added to short-term memory.
type Item map[string]any

// Memory is a two-partition buffer. Short-term items are kept in insertion
// order with no eviction; reads truncate to a trailing window.
type Memory struct {
	mu        sync.RWMutex
	shortTerm []Item
	longTerm  map[string]any
}

func NewMemory() *Memory {
	return &Memory{longTerm: make(map[string]any)}
}

// Add appends item to short-term memory. No validation, no capacity bound.
func (m *Memory) Add(item Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shortTerm = append(m.shortTerm, item)
}

// RecentContext returns up to the last DefaultRecentWindow items, oldest first.
func (m *Memory) RecentContext() []Item {
	return m.RecentContextN(DefaultRecentWindow)
}

// RecentContextN returns up to the last n items, oldest first.
// The result is a fresh slice; n <= 0 yields an empty slice.
func (m *Memory) RecentContextN(n int) []Item {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n <= 0 {
		return []Item{}
	}
	start := len(m.shortTerm) - n
	if start < 0 {
		start = 0
	}
	out := make([]Item, len(m.shortTerm)-start)
	copy(out, m.shortTerm[start:])
	return out
}

// Len reports how many items were ever added.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.shortTerm)
}

// LongTermSize reports the number of long-term keys. Nothing writes the
// long-term partition yet, so this is zero for every Memory.
func (m *Memory) LongTermSize() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.longTerm)
}
