package local

import (
	"context"
	"sync"

	"qara/internal/responses/models"
	"qara/pkg/domain"
)

// MemoryCache is the session-only fallback used when no cache directory is
// configured or the on-disk cache fails.
type MemoryCache struct {
	mu     sync.Mutex
	audits map[domain.AuditID]map[string]models.Draft
}

func NewMemory() *MemoryCache {
	return &MemoryCache{audits: make(map[domain.AuditID]map[string]models.Draft)}
}

func (c *MemoryCache) Load(_ context.Context, auditID domain.AuditID) (map[string]models.Draft, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]models.Draft, len(c.audits[auditID]))
	for k, d := range c.audits[auditID] {
		out[k] = d.Clone()
	}
	return out, nil
}

func (c *MemoryCache) Save(_ context.Context, auditID domain.AuditID, questionKey string, draft models.Draft) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	drafts, ok := c.audits[auditID]
	if !ok {
		drafts = map[string]models.Draft{}
		c.audits[auditID] = drafts
	}
	drafts[questionKey] = draft.Clone()
	return nil
}

func (c *MemoryCache) Remove(_ context.Context, auditID domain.AuditID, questionKey string, acked models.Draft) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	drafts := c.audits[auditID]
	current, ok := drafts[questionKey]
	if !ok || !matches(current, acked) {
		return false, nil
	}
	delete(drafts, questionKey)
	if len(drafts) == 0 {
		delete(c.audits, auditID)
	}
	return true, nil
}

func (c *MemoryCache) DeleteAudit(_ context.Context, auditID domain.AuditID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.audits, auditID)
	return nil
}

func (c *MemoryCache) Audits(_ context.Context) ([]domain.AuditID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]domain.AuditID, 0, len(c.audits))
	for id := range c.audits {
		ids = append(ids, id)
	}
	return ids, nil
}
