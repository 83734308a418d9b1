package store

import (
	"context"
	"slices"
	"sync"

	"qara/internal/actions/models"
	"qara/pkg/domain"
	"qara/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	actions map[domain.ActionID]models.Action
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{actions: make(map[domain.ActionID]models.Action)}
}

func (s *InMemoryStore) Create(_ context.Context, a *models.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.actions[a.ID]; ok {
		return sentinel.ErrConflict
	}
	s.actions[a.ID] = *a
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.ActionID) (*models.Action, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.actions[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &a, nil
}

func (s *InMemoryStore) Update(_ context.Context, a *models.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.actions[a.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.actions[a.ID] = *a
	return nil
}

func (s *InMemoryStore) ListByAudit(ctx context.Context, auditID domain.AuditID) ([]*models.Action, error) {
	all, _ := s.List(ctx)
	out := all[:0]
	for _, a := range all {
		if a.AuditID == auditID {
			out = append(out, a)
		}
	}
	return out, nil
}

// List returns every action ordered by creation time, then id.
func (s *InMemoryStore) List(_ context.Context) ([]*models.Action, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Action, 0, len(s.actions))
	for _, a := range s.actions {
		out = append(out, &a)
	}
	slices.SortFunc(out, func(a, b *models.Action) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return slices.Compare(a.ID[:], b.ID[:])
	})
	return out, nil
}

// DeleteAudit drops every action of the audit.
func (s *InMemoryStore) DeleteAudit(_ context.Context, auditID domain.AuditID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, a := range s.actions {
		if a.AuditID == auditID {
			delete(s.actions, id)
		}
	}
	return nil
}
