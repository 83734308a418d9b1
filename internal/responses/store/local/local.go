// Package local holds undelivered response drafts per audit. It is a
// write-ahead buffer in front of the remote store: entries are added before a
// remote write and removed only once that exact write is acknowledged.
package local

import (
	"fmt"
	"strings"

	"qara/pkg/domain"
)

const (
	keyPrefix = "audit:"
	keySuffix = ":responses"
)

// Key is the cache key of an audit's draft map.
func Key(id domain.AuditID) string {
	return keyPrefix + id.String() + keySuffix
}

// ParseKey extracts the audit id from a cache key.
func ParseKey(key string) (domain.AuditID, error) {
	if !strings.HasPrefix(key, keyPrefix) || !strings.HasSuffix(key, keySuffix) {
		return domain.AuditID{}, fmt.Errorf("not a draft cache key: %q", key)
	}
	return domain.ParseAuditID(strings.TrimSuffix(strings.TrimPrefix(key, keyPrefix), keySuffix))
}
