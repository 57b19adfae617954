package conversation

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-memory fallback store. Safe for concurrent use;
// snapshots are cloned on the way in and out so callers never share state
// with the store. A ttl of zero disables expiry.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]*State
	ttl  time.Duration
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store with the given retention
// window.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		data: make(map[string]*State),
		ttl:  ttl,
	}
}

func (s *MemoryStore) SaveConversation(ctx context.Context, state *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[state.ID] = state.Clone()
	return nil
}

func (s *MemoryStore) GetConversation(ctx context.Context, id string) (*State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.data[id]
	if !ok {
		return nil, nil
	}
	return state.Clone(), nil
}

func (s *MemoryStore) DeleteConversation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

func (s *MemoryStore) CleanupExpiredConversations(ctx context.Context) (int, error) {
	if s.ttl <= 0 {
		return 0, nil
	}

	cutoff := time.Now().Add(-s.ttl)
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, state := range s.data {
		if state.ContextMetadata.LastActivity.Before(cutoff) {
			delete(s.data, id)
			removed++
		}
	}
	return removed, nil
}

// Len reports how many conversations are currently held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
