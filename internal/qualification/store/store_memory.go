package store

import (
	"context"
	"sync"

	"qara/internal/qualification/models"
	"qara/pkg/platform/sentinel"
)

// InMemoryStore keeps one profile per user.
type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]models.Profile
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{profiles: make(map[string]models.Profile)}
}

func (s *InMemoryStore) FindByUser(_ context.Context, userID string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	snap := p.Snapshot()
	return &snap, nil
}

func (s *InMemoryStore) Save(_ context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p.Snapshot()
	return nil
}
