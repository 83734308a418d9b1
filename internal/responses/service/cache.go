package service

import (
	"context"
	"log/slog"
	"sync/atomic"

	"qara/internal/responses/metrics"
	"qara/internal/responses/models"
	"qara/internal/responses/store/local"
	"qara/pkg/domain"
)

// LocalCache is the audit-scoped write-ahead draft buffer.
type LocalCache interface {
	Load(ctx context.Context, auditID domain.AuditID) (map[string]models.Draft, error)
	Save(ctx context.Context, auditID domain.AuditID, questionKey string, draft models.Draft) error
	Remove(ctx context.Context, auditID domain.AuditID, questionKey string, acked models.Draft) (bool, error)
	DeleteAudit(ctx context.Context, auditID domain.AuditID) error
	Audits(ctx context.Context) ([]domain.AuditID, error)
}

// degradingCache fronts the configured cache with a session memory cache.
// After the first failed write it stops writing to the primary; reads merge
// both so drafts cached before the failure stay recoverable.
type degradingCache struct {
	primary  LocalCache
	memory   *local.MemoryCache
	degraded atomic.Bool
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func newDegradingCache(primary LocalCache, logger *slog.Logger, m *metrics.Metrics) *degradingCache {
	return &degradingCache{primary: primary, memory: local.NewMemory(), logger: logger, metrics: m}
}

func (c *degradingCache) Degraded() bool { return c.degraded.Load() }

func (c *degradingCache) Load(ctx context.Context, auditID domain.AuditID) map[string]models.Draft {
	drafts, err := c.primary.Load(ctx, auditID)
	if err != nil {
		c.logger.WarnContext(ctx, "draft cache read failed", "audit_id", auditID, "error", err)
		drafts = map[string]models.Draft{}
	}
	mem, _ := c.memory.Load(ctx, auditID)
	for k, d := range mem {
		if cur, ok := drafts[k]; !ok || d.UpdatedAt.After(cur.UpdatedAt) {
			drafts[k] = d
		}
	}
	return drafts
}

func (c *degradingCache) Save(ctx context.Context, auditID domain.AuditID, questionKey string, draft models.Draft) {
	if !c.degraded.Load() {
		err := c.primary.Save(ctx, auditID, questionKey, draft)
		if err == nil {
			return
		}
		if c.degraded.CompareAndSwap(false, true) {
			c.logger.ErrorContext(ctx, "draft cache write failed, keeping drafts in memory for this session",
				"audit_id", auditID, "question_key", questionKey, "error", err)
		}
	}
	c.metrics.IncCacheFallback()
	_ = c.memory.Save(ctx, auditID, questionKey, draft)
}

func (c *degradingCache) Remove(ctx context.Context, auditID domain.AuditID, questionKey string, acked models.Draft) {
	if _, err := c.primary.Remove(ctx, auditID, questionKey, acked); err != nil {
		c.logger.WarnContext(ctx, "draft cache reconcile failed", "audit_id", auditID, "question_key", questionKey, "error", err)
	}
	_, _ = c.memory.Remove(ctx, auditID, questionKey, acked)
}

func (c *degradingCache) DeleteAudit(ctx context.Context, auditID domain.AuditID) error {
	_ = c.memory.DeleteAudit(ctx, auditID)
	return c.primary.DeleteAudit(ctx, auditID)
}

func (c *degradingCache) Audits(ctx context.Context) []domain.AuditID {
	seen := map[domain.AuditID]struct{}{}
	var out []domain.AuditID
	primary, err := c.primary.Audits(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "draft cache scan failed", "error", err)
	}
	mem, _ := c.memory.Audits(ctx)
	for _, id := range append(primary, mem...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
