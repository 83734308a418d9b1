package service

import (
	"sync"

	"qara/pkg/domain"
)

type lockKey struct {
	audit    domain.AuditID
	question string
}

type refLock struct {
	mu   sync.Mutex
	refs int
}

// keyLocks hands out one mutex per (audit, question) and frees it when the
// last holder releases.
type keyLocks struct {
	mu    sync.Mutex
	locks map[lockKey]*refLock
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[lockKey]*refLock)}
}

func (k *keyLocks) lock(auditID domain.AuditID, questionKey string) func() {
	key := lockKey{auditID, questionKey}
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
