package domain

import (
	"sync"
	"time"
)

// KeyClock hands out confirmed-product keys. Keys are milliseconds since the
// epoch, bumped past the last issued key so two confirmations in the same
// millisecond still get distinct, increasing keys.
type KeyClock struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewKeyClock creates a clock reading the wall time
func NewKeyClock() *KeyClock {
	return &KeyClock{now: time.Now}
}

// NewKeyClockAt creates a clock with an injected time source
func NewKeyClockAt(now func() time.Time) *KeyClock {
	return &KeyClock{now: now}
}

// Next returns a key strictly greater than every key issued or observed
func (c *KeyClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts := c.now().UnixMilli()
	if ts <= c.last {
		ts = c.last + 1
	}
	c.last = ts
	return ts
}

// Observe records a key already in the store, typically on startup
func (c *KeyClock) Observe(ts int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ts > c.last {
		c.last = ts
	}
}
