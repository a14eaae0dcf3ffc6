package signer

import "sync"

// derivedKey represents a cached derived key.
type derivedKey struct {
	dateStamp string
	key       []byte
}

// derivedKeyCache caches derived keys. It is safe for concurrent use.
// Entries from a previous day are replaced on the next set for the same scope
// and purged on every day change so stale keys do not accumulate.
// Reference: AWS SDK v4 signer internal/v4/cache.go derivedKeyCache
type derivedKeyCache struct {
	mu      sync.RWMutex
	current string
	values  map[string]derivedKey
}

func newDerivedKeyCache() *derivedKeyCache {
	return &derivedKeyCache{
		values: make(map[string]derivedKey),
	}
}

// get retrieves a cached key if it exists for the same date stamp.
func (c *derivedKeyCache) get(key, dateStamp string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.values[key]
	if !ok || entry.dateStamp != dateStamp {
		return nil, false
	}
	return entry.key, true
}

// set stores a derived key in the cache.
func (c *derivedKeyCache) set(key, dateStamp string, k []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if dateStamp > c.current {
		c.current = dateStamp
		for name, entry := range c.values {
			if entry.dateStamp != dateStamp {
				delete(c.values, name)
			}
		}
	}
	c.values[key] = derivedKey{
		dateStamp: dateStamp,
		key:       k,
	}
}

func (c *derivedKeyCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}
