package facts

import (
	"context"
	"strings"
	"sync"
)

// InMemoryStore keeps facts in a slice. Useful for local runs and tests.
type InMemoryStore struct {
	mu    sync.RWMutex
	facts []string
}

func NewInMemoryStore(facts ...string) *InMemoryStore {
	return &InMemoryStore{facts: append([]string(nil), facts...)}
}

func (s *InMemoryStore) Search(_ context.Context, keywords []string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, limit)
	for _, f := range s.facts {
		if len(out) >= limit {
			break
		}
		if len(keywords) == 0 || containsAny(strings.ToLower(f), keywords) {
			out = append(out, f)
		}
	}
	return out, nil
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

func (s *InMemoryStore) Insert(_ context.Context, facts []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.facts = append(s.facts, facts...)
	return nil
}

func (s *InMemoryStore) Exists(_ context.Context, text string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.facts {
		if strings.Contains(f, text) {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.facts), nil
}

func (s *InMemoryStore) Backend() string { return "memory" }

func (s *InMemoryStore) Close() error { return nil }
