package catalog

import (
	"fmt"
	"slices"
	"sync"

	dErrors "qara/pkg/domain-errors"
)

// Catalog is the in-memory set of published questions. Reads return copies so
// callers can treat them as immutable snapshots.
type Catalog struct {
	mu        sync.RWMutex
	questions []Question
	byKey     map[string]Question
	version   int
}

// New validates the questions and builds a catalog.
func New(questions []Question) (*Catalog, error) {
	byKey, err := index(questions)
	if err != nil {
		return nil, err
	}
	return &Catalog{
		questions: slices.Clone(questions),
		byKey:     byKey,
		version:   1,
	}, nil
}

func index(questions []Question) (map[string]Question, error) {
	byKey := make(map[string]Question, len(questions))
	for _, q := range questions {
		if err := q.Validate(); err != nil {
			return nil, err
		}
		if _, dup := byKey[q.Key]; dup {
			return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("duplicate question key %s", q.Key))
		}
		byKey[q.Key] = q
	}
	return byKey, nil
}

// Questions returns a snapshot of every published question.
func (c *Catalog) Questions() []Question {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.questions)
}

// Get returns a question by key.
func (c *Catalog) Get(key string) (Question, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.byKey[key]
	return q, ok
}

// Lookup returns the questions for keys in the given order. Keys no longer in
// the catalog are reported as not found.
func (c *Catalog) Lookup(keys []string) ([]Question, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Question, 0, len(keys))
	for _, k := range keys {
		q, ok := c.byKey[k]
		if !ok {
			return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("question %s not in catalog", k))
		}
		out = append(out, q)
	}
	return out, nil
}

// Version increases on every accepted publish.
func (c *Catalog) Version() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Publish replaces the catalog contents. New keys may be added; every
// already-published question must be present and unchanged.
func (c *Catalog) Publish(questions []Question) error {
	byKey, err := index(questions)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for key, existing := range c.byKey {
		next, ok := byKey[key]
		if !ok {
			return dErrors.New(dErrors.CodeConflict, fmt.Sprintf("published question %s cannot be removed", key))
		}
		if !existing.sameContent(next) {
			return dErrors.New(dErrors.CodeConflict, fmt.Sprintf("published question %s cannot change", key))
		}
	}
	c.questions = slices.Clone(questions)
	c.byKey = byKey
	c.version++
	return nil
}
