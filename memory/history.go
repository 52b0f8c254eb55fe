package memory

import (
	"sync"
	"time"
)

// Role tags who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Turn is a single chat message.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// History is an unbounded, append-only transcript in chronological order.
type History struct {
	mu    sync.RWMutex
	turns []Turn
	now   func() time.Time
}

// NewHistory returns a History seeded with a copy of prior turns.
func NewHistory(prior []Turn) *History {
	h := &History{now: time.Now}
	if len(prior) > 0 {
		h.turns = append([]Turn(nil), prior...)
	}
	return h
}

// Append records a turn stamped with the current time and returns it.
func (h *History) Append(role Role, content string) Turn {
	h.mu.Lock()
	defer h.mu.Unlock()
	t := Turn{Role: role, Content: content, Timestamp: h.now().UTC()}
	h.turns = append(h.turns, t)
	return t
}

// Turns returns a copy of the transcript.
func (h *History) Turns() []Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Turn(nil), h.turns...)
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.turns)
}
