package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Role tags who authored a turn. The values match the persisted type tags.
type Role string

const (
	RoleHuman Role = "human"
	RoleAI    Role = "ai"
)

// Turn is one user-authored or model-authored message.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Transcript is the ordered conversation history for one user. It is shared
// by every pipeline run for that user, so all access is synchronized.
type Transcript struct {
	mu    sync.RWMutex
	turns []Turn
}

func NewTranscript(turns ...Turn) *Transcript {
	t := &Transcript{}
	t.turns = append(t.turns, turns...)
	return t
}

// Turns returns a copy of the history in order.
func (t *Transcript) Turns() []Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.turns)
}

// Append adds turns at the end. Turns are never removed or rewritten.
func (t *Transcript) Append(turns ...Turn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.turns = append(t.turns, turns...)
}

// Record is the persisted form of a transcript: the opaque memory_data blob
// keyed by user id.
type Record struct {
	UserID    string          `json:"user_id"`
	Data      json.RawMessage `json:"memory_data"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Store persists one memory record per user.
type Store interface {
	// Load returns the stored record; found is false when the user has none.
	Load(ctx context.Context, userID string) (rec Record, found bool, err error)
	// Save replaces the record for rec.UserID, creating it when absent.
	Save(ctx context.Context, rec Record) error
	Ping(ctx context.Context) error
	Backend() string
	Close() error
}
