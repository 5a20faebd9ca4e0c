package identity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests and local development.
// It enforces the same email uniqueness invariant as the Postgres schema.
type MemoryStore struct {
	mu      sync.Mutex
	byID    map[string]User
	byEmail map[string]string
	clock   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    map[string]User{},
		byEmail: map[string]string{},
		clock:   time.Now,
	}
}

func (s *MemoryStore) Create(ctx context.Context, u User) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[u.Email]; ok {
		return User{}, ErrAlreadyExists
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := s.clock().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	s.byID[u.ID] = u
	s.byEmail[u.Email] = u.ID
	return u, nil
}

func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[email]
	if !ok {
		return User{}, ErrNotFound
	}
	return s.byID[id], nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

// Len reports the number of stored users.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}
