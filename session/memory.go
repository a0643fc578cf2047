package session

import (
	"context"
	"sync"
)

// memoryStore is the default single-process store: a mutex-guarded map from
// session ID to turns.
type memoryStore struct {
	mu       sync.Mutex
	maxTurns int
	sessions map[string][]Turn
}

// NewMemoryStore returns an in-memory store trimming each session to
// maxTurns. maxTurns <= 0 uses DefaultMaxTurns.
func NewMemoryStore(maxTurns int) Store {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &memoryStore{
		maxTurns: maxTurns,
		sessions: make(map[string][]Turn),
	}
}

func (s *memoryStore) Get(ctx context.Context, id string) ([]Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.sessions[id]
	if len(stored) == 0 {
		return nil, nil
	}
	// Copy so callers never alias the stored slice.
	out := make([]Turn, len(stored))
	copy(out, stored)
	return out, nil
}

func (s *memoryStore) Append(ctx context.Context, id string, user, assistant Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.sessions[id], user, assistant)
	s.sessions[id] = trim(history, s.maxTurns)
	return nil
}

func (s *memoryStore) Clear(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

func (s *memoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = nil
	return nil
}
