package connectivity

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Monitor is the online/offline signal. Subscribers are called on every
// transition, never for a repeated value.
type Monitor struct {
	mu     sync.Mutex
	online bool
	nextID int
	subs   map[int]func(online bool)
}

// NewMonitor creates a monitor with an initial state
func NewMonitor(online bool) *Monitor {
	return &Monitor{
		online: online,
		subs:   make(map[int]func(bool)),
	}
}

// Online reports the current state
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Set updates the state and notifies subscribers if it changed. It reports
// whether a transition happened.
func (m *Monitor) Set(online bool) bool {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return false
	}
	m.online = online
	subs := make([]func(bool), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(online)
	}
	return true
}

// Subscribe registers fn for transitions. The returned function removes it.
func (m *Monitor) Subscribe(fn func(online bool)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.subs[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// Checker derives connectivity from whether a TCP address can be dialled
type Checker struct {
	monitor  *Monitor
	addr     string
	interval time.Duration
	timeout  time.Duration
	logger   zerolog.Logger
	dial     func(ctx context.Context, network, addr string) (net.Conn, error)
}

// NewChecker creates a checker feeding monitor
func NewChecker(monitor *Monitor, addr string, interval time.Duration, logger zerolog.Logger) *Checker {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	d := &net.Dialer{}
	return &Checker{
		monitor:  monitor,
		addr:     addr,
		interval: interval,
		timeout:  5 * time.Second,
		logger:   logger.With().Str("component", "connectivity").Logger(),
		dial:     d.DialContext,
	}
}

// Check dials once and updates the monitor. A check cut short by ctx
// leaves the monitor unchanged.
func (c *Checker) Check(ctx context.Context) bool {
	dialCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	online := false
	conn, err := c.dial(dialCtx, "tcp", c.addr)
	if err == nil {
		conn.Close()
		online = true
	}
	if !online && ctx.Err() != nil {
		return c.monitor.Online()
	}

	if c.monitor.Set(online) {
		c.logger.Info().Bool("online", online).Str("addr", c.addr).Msg("connectivity changed")
	}
	return online
}

// Run checks on every tick until ctx is done
func (c *Checker) Run(ctx context.Context) {
	c.Check(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}
