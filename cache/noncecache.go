// Package cache holds the gateway's in-memory replay state.
package cache

import "sync"

// DefaultCapacity is sized generously relative to the fleet's expected
// request rate so a nonce normally outlives its freshness window before
// eviction.
const DefaultCapacity = 1000

// NonceCache is a bounded set of recently accepted nonces. Eviction is
// oldest-inserted-first once full (a ring over insertion order, not LRU).
// The bound is by count rather than by the freshness window: under a burst
// large enough to cycle the whole ring inside the window, an evicted nonce
// could in theory be replayed. That tradeoff keeps worst-case memory fixed.
type NonceCache struct {
	mu       sync.Mutex
	seen     map[string]struct{}
	ring     []string
	next     int
	capacity int
}

func NewNonceCache(capacity int) *NonceCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &NonceCache{
		seen:     make(map[string]struct{}, capacity),
		ring:     make([]string, 0, capacity),
		capacity: capacity,
	}
}

// CheckAndRecord atomically tests membership and, only if the nonce is
// absent, records it and returns true. A present nonce returns false without
// mutating the set, so two concurrent requests carrying the same nonce can
// never both pass.
func (c *NonceCache) CheckAndRecord(nonce string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, dup := c.seen[nonce]; dup {
		return false
	}

	if len(c.ring) < c.capacity {
		c.ring = append(c.ring, nonce)
	} else {
		delete(c.seen, c.ring[c.next])
		c.ring[c.next] = nonce
		c.next = (c.next + 1) % c.capacity
	}
	c.seen[nonce] = struct{}{}
	return true
}

// Len returns the number of nonces currently held.
func (c *NonceCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}
