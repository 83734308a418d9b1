package store

import (
	"context"
	"slices"
	"sync"

	"qara/internal/audit/models"
	"qara/pkg/domain"
	"qara/pkg/platform/sentinel"
)

// InMemoryStore keeps audits in a map. Returned audits are copies.
type InMemoryStore struct {
	mu     sync.RWMutex
	audits map[domain.AuditID]*models.Audit
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{audits: make(map[domain.AuditID]*models.Audit)}
}

func (s *InMemoryStore) Create(_ context.Context, a *models.Audit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.audits[a.ID]; exists {
		return sentinel.ErrConflict
	}
	s.audits[a.ID] = a.Clone()
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.AuditID) (*models.Audit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.audits[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return a.Clone(), nil
}

func (s *InMemoryStore) Update(_ context.Context, a *models.Audit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.audits[a.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.audits[a.ID] = a.Clone()
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, id domain.AuditID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.audits[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.audits, id)
	return nil
}

// List returns every audit ordered by creation time, then id.
func (s *InMemoryStore) List(_ context.Context) ([]*models.Audit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Audit, 0, len(s.audits))
	for _, a := range s.audits {
		out = append(out, a.Clone())
	}
	slices.SortFunc(out, func(a, b *models.Audit) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return slices.Compare(a.ID[:], b.ID[:])
	})
	return out, nil
}
