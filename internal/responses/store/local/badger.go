package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"qara/internal/responses/models"
	"qara/pkg/domain"
)

// BadgerCache stores each audit's drafts as one JSON map value under
// audit:{id}:responses, so drafts survive a process restart.
type BadgerCache struct {
	db *badger.DB
}

// OpenBadger opens (or creates) the cache directory.
func OpenBadger(dir string, logger *slog.Logger) (*BadgerCache, error) {
	opts := badger.DefaultOptions(dir).
		WithLogger(nil).
		WithSyncWrites(true)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open draft cache %s: %w", dir, err)
	}
	if logger != nil {
		logger.Info("draft cache opened", "dir", dir)
	}
	return &BadgerCache{db: db}, nil
}

// OpenBadgerInMemory opens a non-persistent instance.
func OpenBadgerInMemory() (*BadgerCache, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, err
	}
	return &BadgerCache{db: db}, nil
}

func (c *BadgerCache) Close() error {
	return c.db.Close()
}

func (c *BadgerCache) Load(_ context.Context, auditID domain.AuditID) (map[string]models.Draft, error) {
	var drafts map[string]models.Draft
	err := c.db.View(func(txn *badger.Txn) error {
		var err error
		drafts, err = read(txn, Key(auditID))
		return err
	})
	if err != nil {
		return nil, err
	}
	return drafts, nil
}

func (c *BadgerCache) Save(_ context.Context, auditID domain.AuditID, questionKey string, draft models.Draft) error {
	return c.update(auditID, func(drafts map[string]models.Draft) bool {
		drafts[questionKey] = draft.Clone()
		return true
	})
}

// Remove deletes the entry only if it still holds the acknowledged draft.
func (c *BadgerCache) Remove(_ context.Context, auditID domain.AuditID, questionKey string, acked models.Draft) (bool, error) {
	removed := false
	err := c.update(auditID, func(drafts map[string]models.Draft) bool {
		current, ok := drafts[questionKey]
		if !ok || !matches(current, acked) {
			return false
		}
		delete(drafts, questionKey)
		removed = true
		return true
	})
	return removed, err
}

func (c *BadgerCache) DeleteAudit(_ context.Context, auditID domain.AuditID) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(Key(auditID)))
	})
}

// Audits lists every audit with at least one cached draft.
func (c *BadgerCache) Audits(_ context.Context) ([]domain.AuditID, error) {
	var ids []domain.AuditID
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			id, err := ParseKey(string(it.Item().Key()))
			if err != nil {
				continue
			}
			ids = append(ids, id)
		}
		return nil
	})
	return ids, err
}

// update runs a read-modify-write of one audit's map, retrying on
// transaction conflicts with concurrent writers.
func (c *BadgerCache) update(auditID domain.AuditID, mutate func(map[string]models.Draft) bool) error {
	key := Key(auditID)
	for attempt := 0; ; attempt++ {
		err := c.db.Update(func(txn *badger.Txn) error {
			drafts, err := read(txn, key)
			if err != nil {
				return err
			}
			if !mutate(drafts) {
				return nil
			}
			if len(drafts) == 0 {
				return txn.Delete([]byte(key))
			}
			raw, err := json.Marshal(drafts)
			if err != nil {
				return err
			}
			return txn.Set([]byte(key), raw)
		})
		if errors.Is(err, badger.ErrConflict) && attempt < 5 {
			time.Sleep(time.Duration(attempt+1) * time.Millisecond)
			continue
		}
		return err
	}
}

func read(txn *badger.Txn, key string) (map[string]models.Draft, error) {
	drafts := map[string]models.Draft{}
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return drafts, nil
	}
	if err != nil {
		return nil, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &drafts)
	})
	if err != nil {
		return nil, fmt.Errorf("decode drafts for %s: %w", key, err)
	}
	return drafts, nil
}

func matches(current, acked models.Draft) bool {
	return current.UpdatedAt.Equal(acked.UpdatedAt) && current.SameContent(acked)
}
