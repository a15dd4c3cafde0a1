package session

import (
	"context"
	"sync"
	"time"
)

// memoryStore implements Service with an in-process concurrent map. Each
// session carries its own mutex so concurrent requests for the same session
// are serialized without blocking other sessions.
type memoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memoryEntry
}

type memoryEntry struct {
	mu    sync.Mutex
	state State
}

// NewMemoryStore creates an in-memory session store for single-instance
// deployments.
func NewMemoryStore() Service {
	return &memoryStore{
		sessions: make(map[string]*memoryEntry),
	}
}

func (s *memoryStore) Get(_ context.Context, sessionID string) (*State, error) {
	e := s.entry(sessionID)
	e.mu.Lock()
	defer e.mu.Unlock()
	state := cloneState(&e.state)
	return &state, nil
}

func (s *memoryStore) AppendExchange(_ context.Context, sessionID, userMsg, botMsg string) error {
	e := s.entry(sessionID)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.RecentMessages = append(e.state.RecentMessages, "User: "+userMsg, "Bot: "+botMsg)
	e.state.RecentMessages = trimRecent(e.state.RecentMessages)
	e.state.UpdatedAt = time.Now().Unix()
	return nil
}

func (s *memoryStore) RememberName(_ context.Context, sessionID, name string) error {
	e := s.entry(sessionID)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.RememberedName = name
	e.state.UpdatedAt = time.Now().Unix()
	return nil
}

func (s *memoryStore) RecallName(_ context.Context, sessionID string) (string, error) {
	e := s.entry(sessionID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.RememberedName, nil
}

func (s *memoryStore) SetStage(_ context.Context, sessionID, stage string) error {
	e := s.entry(sessionID)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Stage = stage
	e.state.UpdatedAt = time.Now().Unix()
	return nil
}

func (s *memoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *memoryStore) CleanupExpired(_ context.Context, ttl time.Duration) (int64, error) {
	cutoff := time.Now().Add(-ttl).Unix()

	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, e := range s.sessions {
		e.mu.Lock()
		stale := e.state.UpdatedAt < cutoff
		e.mu.Unlock()
		if stale {
			delete(s.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}

// entry returns the session entry, creating it lazily on first access.
func (s *memoryStore) entry(sessionID string) *memoryEntry {
	s.mu.RLock()
	e, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.sessions[sessionID]; ok {
		return e
	}
	now := time.Now().Unix()
	e = &memoryEntry{state: State{
		SessionID: sessionID,
		CreatedAt: now,
		UpdatedAt: now,
	}}
	s.sessions[sessionID] = e
	return e
}

// trimRecent evicts the oldest entries once the log exceeds the cap.
func trimRecent(messages []string) []string {
	if len(messages) > MaxRecentMessages {
		trimmed := make([]string, MaxRecentMessages)
		copy(trimmed, messages[len(messages)-MaxRecentMessages:])
		return trimmed
	}
	return messages
}

func cloneState(in *State) State {
	out := *in
	out.RecentMessages = append([]string(nil), in.RecentMessages...)
	return out
}

// Ensure memoryStore implements Service
var _ Service = (*memoryStore)(nil)
