// Package inmemory provides a map-backed storage driver. History is lost when
// the process exits.
package inmemory

import (
	"context"
	"sync"

	"github.com/papercomputeco/lincode/pkg/llm"
	"github.com/papercomputeco/lincode/pkg/storage"
)

// Driver implements storage.Driver using an in-memory map.
type Driver struct {
	// mu is a read write sync mutex for locking the mapping of sessions
	mu sync.RWMutex

	// sessions maps a session id to its messages, oldest first
	sessions map[string][]llm.Message
}

// NewDriver creates a new in-memory storer.
func NewDriver() *Driver {
	return &Driver{
		sessions: make(map[string][]llm.Message),
	}
}

func (s *Driver) Append(_ context.Context, sessionID string, msg llm.Message) error {
	if sessionID == "" {
		return storage.ErrEmptySessionID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sessionID] = append(s.sessions[sessionID], msg)
	return nil
}

func (s *Driver) History(_ context.Context, sessionID string) ([]llm.Message, error) {
	if sessionID == "" {
		return nil, storage.ErrEmptySessionID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	// Copy so callers can't mutate the stored history
	history := s.sessions[sessionID]
	out := make([]llm.Message, len(history))
	copy(out, history)
	return out, nil
}

func (s *Driver) PopLast(_ context.Context, sessionID, role string) (bool, error) {
	if sessionID == "" {
		return false, storage.ErrEmptySessionID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.sessions[sessionID]
	if len(history) == 0 || history[len(history)-1].Role != role {
		return false, nil
	}

	s.sessions[sessionID] = history[:len(history)-1]
	return true, nil
}

func (s *Driver) Delete(_ context.Context, sessionID string) error {
	if sessionID == "" {
		return storage.ErrEmptySessionID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

// Close is a no-op for the in-memory storer.
func (s *Driver) Close() error {
	return nil
}
