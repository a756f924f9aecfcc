// In-memory conversation storage for tests and ephemeral sessions.
//
// Information Hiding:
// - Map storage structure hidden from users
// - Thread-safe access via RWMutex hidden behind interface

package storage

import (
	"context"
	"sync"

	"github.com/richinex/argus/conversation"
)

// InMemoryStorage implements ConversationStorage using a map. Data is
// lost when the process terminates.
type InMemoryStorage struct {
	mu       sync.RWMutex
	sessions map[string][]conversation.Turn
}

// NewInMemoryStorage creates a new in-memory storage.
func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{
		sessions: make(map[string][]conversation.Turn),
	}
}

// Save replaces the stored history for a session.
func (s *InMemoryStorage) Save(ctx context.Context, sessionID string, turns []conversation.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]conversation.Turn, len(turns))
	copy(copied, turns)
	s.sessions[sessionID] = copied
	return nil
}

// Load returns the stored history, empty slice if the session is unknown.
func (s *InMemoryStorage) Load(ctx context.Context, sessionID string) ([]conversation.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns, ok := s.sessions[sessionID]
	if !ok {
		return []conversation.Turn{}, nil
	}
	copied := make([]conversation.Turn, len(turns))
	copy(copied, turns)
	return copied, nil
}

// Delete removes a session.
func (s *InMemoryStorage) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

// ListSessions lists all stored session IDs.
func (s *InMemoryStorage) ListSessions(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.sessions))
	for sessionID := range s.sessions {
		sessions = append(sessions, sessionID)
	}
	return sessions, nil
}

// Exists reports whether a session has stored history.
func (s *InMemoryStorage) Exists(ctx context.Context, sessionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.sessions[sessionID]
	return ok, nil
}

// Verify InMemoryStorage implements ConversationStorage
var _ ConversationStorage = (*InMemoryStorage)(nil)
