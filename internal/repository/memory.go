package repository

import (
	"context"
	"sync"
	"time"

	"github.com/avelat/melodex/internal/model"
)

// MemoryUserStore is an in-memory implementation of the user store used
// in tests and for running the service without a database. Writes are
// upserts keyed on spotify id, mirroring UserRepo semantics.
type MemoryUserStore struct {
	mu     sync.RWMutex
	users  map[string]*model.User
	nextID uint64
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]*model.User), nextID: 1}
}

func (s *MemoryUserStore) Upsert(_ context.Context, u *model.User) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if prev, ok := s.users[u.SpotifyID]; ok {
		cp := *u
		cp.ID = prev.ID
		cp.CreatedAt = prev.CreatedAt
		cp.UpdatedAt = now
		s.users[u.SpotifyID] = &cp
		return cp.ID, nil
	}
	cp := *u
	cp.ID = s.nextID
	s.nextID++
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.users[u.SpotifyID] = &cp
	return cp.ID, nil
}

func (s *MemoryUserStore) GetBySpotifyID(_ context.Context, spotifyID string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[spotifyID]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryUserStore) Delete(_ context.Context, spotifyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, spotifyID)
	return nil
}
