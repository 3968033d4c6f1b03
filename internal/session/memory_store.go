package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process store for development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore builds an in-memory store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryStore{sessions: make(map[string]Session), ttl: ttl, now: time.Now}
}

func (s *MemoryStore) Create(_ context.Context, credential string) (Session, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return Session{}, ErrEmptyCredential
	}
	now := s.now().UTC()
	sess := Session{
		ID:         uuid.NewString(),
		Credential: credential,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.ttl),
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[strings.TrimSpace(id)]
	s.mu.RUnlock()
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if !s.now().Before(sess.ExpiresAt) {
		s.mu.Lock()
		delete(s.sessions, sess.ID)
		s.mu.Unlock()
		return Session{}, ErrSessionNotFound
	}
	return sess, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, strings.TrimSpace(id))
	s.mu.Unlock()
	return nil
}
