// Package cache holds TTL caches: settled rounds in front of the ledger and
// recently accepted request signatures.
package cache

import "time"

// Cache is a TTL key/value cache.
type Cache interface {
	// Get returns (value, true) on a hit.
	Get(key string) (interface{}, bool)

	// Set stores value with a TTL. It may drop the write under pressure.
	Set(key string, value interface{}, ttl time.Duration) bool

	Delete(key string)
	Clear()
	Close()
}
