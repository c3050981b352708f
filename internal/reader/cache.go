package reader

import "sync"

// LocalCache buffers reading positions on the device running the reader.
// It is the fast path for position resolution and the write buffer for
// positions that have not yet been flushed to the progress store.
//
// Entries are keyed by (user, book): on a shared device two accounts must
// never see each other's positions. Implementations are failure-silent —
// a cache that cannot persist degrades to misses and the session keeps
// working against the remote store alone.
type LocalCache interface {
	Get(userID, bookID string) (location string, ok bool)
	Set(userID, bookID, location string)
	Clear(userID, bookID string)
}

// MemoryCache is a process-local LocalCache. It is the default when no
// cache file is configured, and the fake of choice in tests.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]string)}
}

func cacheKey(userID, bookID string) string {
	return userID + "/" + bookID
}

func (c *MemoryCache) Get(userID, bookID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	location, ok := c.entries[cacheKey(userID, bookID)]
	return location, ok
}

func (c *MemoryCache) Set(userID, bookID, location string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(userID, bookID)] = location
}

func (c *MemoryCache) Clear(userID, bookID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, cacheKey(userID, bookID))
}

// Len reports the number of cached entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
