package session

import (
	"context"
	"sync"
	"time"

	apperrors "secdash/internal/errors"
)

// MemoryStore holds sessions in process memory. Sessions are lost on restart
// and are not shared between processes.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*memorySession
}

type memorySession struct {
	data      Data
	expiresAt time.Time
}

// NewMemoryStore creates a store whose sessions expire after ttl of inactivity.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: map[string]*memorySession{},
	}
}

func (s *MemoryStore) Get(_ context.Context, id string) (Data, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return sess.data.clone(), nil
}

func (s *MemoryStore) Set(_ context.Context, id string, data Data) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[id] = &memorySession{data: data.clone(), expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

func (s *MemoryStore) Touch(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookup(id)
	if err != nil {
		return err
	}
	sess.expiresAt = s.now().Add(s.ttl)
	return nil
}

// lookup must be called with mu held. Expired entries are removed.
func (s *MemoryStore) lookup(id string) (*memorySession, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, apperrors.ErrNoSession
	}
	if s.now().After(sess.expiresAt) {
		delete(s.sessions, id)
		return nil, apperrors.ErrSessionExpired
	}
	return sess, nil
}

// Sweep drops every expired session and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if now.After(sess.expiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// RunJanitor sweeps every interval until ctx is done.
func (s *MemoryStore) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
