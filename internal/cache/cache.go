package cache

import (
	"sync"
	"time"
)

// entry holds a cached value with its expiry deadline.
type entry struct {
	value     string
	expiresAt time.Time
}

// TTL is a string-keyed cache with per-entry time-to-live and a scheduled
// sweep. Expired entries are still rejected at read time, but reclaiming
// their memory is the sweep's job.
type TTL struct {
	mu       sync.RWMutex
	entries  map[string]entry
	ttl      time.Duration
	stopOnce sync.Once
	stop     chan struct{}

	// now is replaceable in tests.
	now func() time.Time
}

// NewTTL creates a cache whose entries live for ttl and starts a sweep
// every sweepInterval. Call Stop when the cache is no longer needed.
func NewTTL(ttl, sweepInterval time.Duration) *TTL {
	c := &TTL{
		entries: make(map[string]entry),
		ttl:     ttl,
		stop:    make(chan struct{}),
		now:     time.Now,
	}
	go c.sweepLoop(sweepInterval)
	return c
}

// Get returns the cached value for key if it exists and has not expired.
func (c *TTL) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || c.now().After(e.expiresAt) {
		return "", false
	}
	return e.value, true
}

// Set stores value under key with the cache's TTL.
func (c *TTL) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, expiresAt: c.now().Add(c.ttl)}
}

// Len returns the number of entries, including any not yet swept.
func (c *TTL) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stop halts the background sweep.
func (c *TTL) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *TTL) sweepLoop(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stop:
			return
		}
	}
}

// sweep removes all expired entries.
func (c *TTL) sweep() {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}
