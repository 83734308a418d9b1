package remote

import (
	"context"
	"slices"
	"sync"

	"qara/internal/responses/models"
	"qara/pkg/domain"
	"qara/pkg/platform/sentinel"
)

type key struct {
	audit    domain.AuditID
	question string
}

// InMemoryStore is the remote store used without a database.
type InMemoryStore struct {
	mu   sync.RWMutex
	rows map[key]models.Response
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{rows: make(map[key]models.Response)}
}

func (s *InMemoryStore) Get(_ context.Context, auditID domain.AuditID, questionKey string) (*models.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rows[key{auditID, questionKey}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	r.EvidenceFiles = slices.Clone(r.EvidenceFiles)
	return &r, nil
}

// List returns the audit's responses ordered by question key.
func (s *InMemoryStore) List(_ context.Context, auditID domain.AuditID) ([]models.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Response
	for k, r := range s.rows {
		if k.audit == auditID {
			r.EvidenceFiles = slices.Clone(r.EvidenceFiles)
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b models.Response) int {
		if a.QuestionKey < b.QuestionKey {
			return -1
		}
		if a.QuestionKey > b.QuestionKey {
			return 1
		}
		return 0
	})
	return out, nil
}

// ListAll returns every stored response.
func (s *InMemoryStore) ListAll(_ context.Context) ([]models.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Response, 0, len(s.rows))
	for _, r := range s.rows {
		r.EvidenceFiles = slices.Clone(r.EvidenceFiles)
		out = append(out, r)
	}
	return out, nil
}

// Upsert writes r unless a row with a newer UpdatedAt exists, in which case
// it returns sentinel.ErrStale and leaves the row untouched.
func (s *InMemoryStore) Upsert(_ context.Context, r models.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{r.AuditID, r.QuestionKey}
	if existing, ok := s.rows[k]; ok && existing.UpdatedAt.After(r.UpdatedAt) {
		return sentinel.ErrStale
	}
	r.EvidenceFiles = slices.Clone(r.EvidenceFiles)
	s.rows[k] = r
	return nil
}

func (s *InMemoryStore) DeleteAudit(_ context.Context, auditID domain.AuditID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.rows {
		if k.audit == auditID {
			delete(s.rows, k)
		}
	}
	return nil
}
