package connectivity

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestMonitor_Transitions(t *testing.T) {
	m := NewMonitor(false)

	var seen []bool
	unsubscribe := m.Subscribe(func(online bool) { seen = append(seen, online) })

	assert.False(t, m.Set(false), "no transition")
	assert.True(t, m.Set(true))
	assert.True(t, m.Online())
	assert.False(t, m.Set(true))
	assert.True(t, m.Set(false))

	assert.Equal(t, []bool{true, false}, seen)

	unsubscribe()
	m.Set(true)
	assert.Len(t, seen, 2)
}

func TestChecker_Check(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skip("cannot listen:", err)
	}
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()

	m := NewMonitor(false)
	p := NewChecker(m, ln.Addr().String(), time.Second, zerolog.Nop())

	assert.True(t, p.Check(context.Background()))
	assert.True(t, m.Online())
}

func TestChecker_CheckFailure(t *testing.T) {
	m := NewMonitor(true)
	p := NewChecker(m, "unused:1", time.Second, zerolog.Nop())
	p.dial = func(context.Context, string, string) (net.Conn, error) {
		return nil, errors.New("unreachable")
	}

	assert.False(t, p.Check(context.Background()))
	assert.False(t, m.Online())
}

func TestChecker_CancelledCheckKeepsState(t *testing.T) {
	m := NewMonitor(true)
	var transitions int
	m.Subscribe(func(bool) { transitions++ })

	ctx, cancel := context.WithCancel(context.Background())
	p := NewChecker(m, "unused:1", time.Second, zerolog.Nop())
	p.dial = func(ctx context.Context, _, _ string) (net.Conn, error) {
		cancel()
		return nil, ctx.Err()
	}

	assert.True(t, p.Check(ctx))
	assert.True(t, m.Online())
	assert.Zero(t, transitions)
}
