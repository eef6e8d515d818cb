package requestcache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Cache suppresses duplicate requests for a short window. The engine itself
// does not guarantee idempotent memory appends, so the HTTP layer keys each
// request and replays the cached answer when the same one arrives again
// within the TTL.
type Cache struct {
	ttl     time.Duration
	entries map[string]entry
	mtx     sync.Mutex
	now     func() time.Time
}

type entry struct {
	value     any
	expiresAt time.Time
}

// Key derives a stable cache key from the request's identifying parts.
func Key(parts ...string) string {
	h := sha256.New()
	for _, part := range parts {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cache) Get(key string) (any, bool) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}

	return e.value, true
}

func (c *Cache) Set(key string, value any) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	// Opportunistic sweep keeps the map from growing unbounded
	for k, e := range c.entries {
		if c.now().After(e.expiresAt) {
			delete(c.entries, k)
		}
	}

	c.entries[key] = entry{
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	}
}

func New(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: map[string]entry{},
		now:     time.Now,
	}
}
