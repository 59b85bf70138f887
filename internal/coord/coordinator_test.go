package coord

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPassGate(t *testing.T) {
	c := New()

	assert.True(t, c.TryBeginPass())
	assert.False(t, c.TryBeginPass(), "redundant trigger is dropped")
	c.EndPass()
	assert.True(t, c.TryBeginPass())
	c.EndPass()

	assert.True(t, c.BeginSession())
	assert.False(t, c.BeginSession())
	assert.False(t, c.TryBeginPass(), "no pass while a session is active")
	c.EndSession()
	assert.True(t, c.TryBeginPass())
}

func TestClaims(t *testing.T) {
	c := New()

	assert.NoError(t, c.ClaimForPass(1))
	assert.ErrorIs(t, c.ClaimForSession(1), ErrClaimed)

	owner, ok := c.Claimed(1)
	assert.True(t, ok)
	assert.Equal(t, OwnerSync, owner)

	c.Release(1)
	c.Release(1)
	assert.NoError(t, c.ClaimForSession(1))
	assert.ErrorIs(t, c.ClaimForPass(1), ErrClaimed)
}

func TestSessionClosesGateMidPass(t *testing.T) {
	c := New()
	assert.True(t, c.TryBeginPass())
	assert.NoError(t, c.ClaimForPass(1))

	// a session may start while the pass is finishing item 1
	assert.True(t, c.BeginSession())
	assert.ErrorIs(t, c.ClaimForPass(2), ErrSessionActive)
}

func TestConcurrentTriggersStartOnePass(t *testing.T) {
	c := New()

	var wg sync.WaitGroup
	var mu sync.Mutex
	started := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.TryBeginPass() {
				mu.Lock()
				started++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, started)
}
