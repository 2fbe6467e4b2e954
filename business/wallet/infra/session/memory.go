package session

import "sync"

// MemoryStore keeps the flag for the life of the process only.
type MemoryStore struct {
	mu        sync.Mutex
	connected bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) WasConnected() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected, nil
}

func (s *MemoryStore) SetConnected(connected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = connected
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
