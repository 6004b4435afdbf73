package profiles

import (
	"context"
	"sync"
)

// InMemoryStore implements Store for tests and local development.
type InMemoryStore struct {
	mu       sync.RWMutex
	messages map[string]string
}

// NewInMemoryStore returns an empty in-memory profile store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{messages: make(map[string]string)}
}

// GetSecretMessage returns a copy of the stored message, or nil.
func (s *InMemoryStore) GetSecretMessage(_ context.Context, userID string) (*string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	message, ok := s.messages[userID]
	if !ok {
		return nil, nil
	}
	return &message, nil
}

// SetSecretMessage stores message for userID.
func (s *InMemoryStore) SetSecretMessage(_ context.Context, userID, message string) error {
	s.mu.Lock()
	s.messages[userID] = message
	s.mu.Unlock()
	return nil
}

// DeleteProfile forgets userID's message.
func (s *InMemoryStore) DeleteProfile(_ context.Context, userID string) error {
	s.mu.Lock()
	delete(s.messages, userID)
	s.mu.Unlock()
	return nil
}
