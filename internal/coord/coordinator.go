// Package coord gates access to the pending queue between the sync engine
// and the foreground session. A drain pass may not start while a session is
// active; once a session starts, a running pass finishes its current item
// and claims no further ones.
package coord

import (
	"errors"
	"sync"
)

var (
	// ErrSessionActive is returned when a pass tries to claim an item while a session runs
	ErrSessionActive = errors.New("foreground session is active")

	// ErrClaimed is returned when an item is already claimed
	ErrClaimed = errors.New("item is already claimed")
)

// Owner identifies who holds a claim
type Owner string

const (
	OwnerSync    Owner = "sync"
	OwnerSession Owner = "session"
)

// Coordinator holds the session flag, the pass flag and per-item claims
type Coordinator struct {
	mu          sync.Mutex
	session     bool
	passRunning bool
	claims      map[int64]Owner
}

// New creates an open coordinator
func New() *Coordinator {
	return &Coordinator{claims: make(map[int64]Owner)}
}

// BeginSession marks a foreground session active. It reports false if one
// already was.
func (c *Coordinator) BeginSession() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session {
		return false
	}
	c.session = true
	return true
}

// EndSession marks the session finished
func (c *Coordinator) EndSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = false
}

// SessionActive reports whether a session is active
func (c *Coordinator) SessionActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// TryBeginPass starts a drain pass. It fails when a pass is already running
// or a session is active; the caller drops the trigger.
func (c *Coordinator) TryBeginPass() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.passRunning || c.session {
		return false
	}
	c.passRunning = true
	return true
}

// EndPass marks the pass finished
func (c *Coordinator) EndPass() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.passRunning = false
}

// PassRunning reports whether a pass is in flight
func (c *Coordinator) PassRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.passRunning
}

// ClaimForPass claims a queue item for the sync engine. It returns
// ErrSessionActive once a session has begun, and ErrClaimed if the session
// already holds the item.
func (c *Coordinator) ClaimForPass(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session {
		return ErrSessionActive
	}
	if _, held := c.claims[id]; held {
		return ErrClaimed
	}
	c.claims[id] = OwnerSync
	return nil
}

// ClaimForSession claims a queue item for the foreground session
func (c *Coordinator) ClaimForSession(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, held := c.claims[id]; held {
		return ErrClaimed
	}
	c.claims[id] = OwnerSession
	return nil
}

// Release drops a claim. Releasing an unclaimed id is a no-op.
func (c *Coordinator) Release(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.claims, id)
}

// Claimed reports who holds id, if anyone
func (c *Coordinator) Claimed(id int64) (Owner, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	owner, ok := c.claims[id]
	return owner, ok
}
