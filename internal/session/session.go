// Package session provides storage backends for admin console sessions.
package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrNotFound = errors.New("session not found")

// Record is what gets stored per session token hash.
type Record struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the session backend. Redis when REDIS_URL is set, an
// in-process map otherwise.
type Store interface {
	Save(ctx context.Context, tokenHash string, rec Record, ttl time.Duration) error
	Lookup(ctx context.Context, tokenHash string) (Record, error)
	Revoke(ctx context.Context, tokenHash string) error
	Ping(ctx context.Context) error
	Close() error
}

// MemoryStore keeps sessions in process memory. Expiry is checked on
// lookup rather than swept in the background.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]memorySession
}

type memorySession struct {
	rec       Record
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]memorySession)}
}

func (s *MemoryStore) Save(ctx context.Context, tokenHash string, rec Record, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[tokenHash] = memorySession{rec: rec, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Lookup(ctx context.Context, tokenHash string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[tokenHash]
	if !ok {
		return Record{}, ErrNotFound
	}
	if time.Now().After(sess.expiresAt) {
		delete(s.sessions, tokenHash)
		return Record{}, ErrNotFound
	}
	return sess.rec, nil
}

func (s *MemoryStore) Revoke(ctx context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, tokenHash)
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
