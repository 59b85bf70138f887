// Package notify carries user-visible messages out of the core. Delivery is
// fire-and-forget: nothing in the core waits on or reads back a notification.
package notify

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Severity classifies a notification
type Severity string

const (
	Success Severity = "success"
	Error   Severity = "error"
	Info    Severity = "info"
)

// Sink receives notifications
type Sink interface {
	Notify(message string, severity Severity)
}

// Notification is one delivered message
type Notification struct {
	ID       uint64    `json:"id"`
	Message  string    `json:"message"`
	Severity Severity  `json:"severity"`
	At       time.Time `json:"at"`
}

// Feed keeps the most recent notifications so clients can poll them
type Feed struct {
	mu     sync.Mutex
	buf    []Notification
	limit  int
	nextID uint64
}

// NewFeed creates a feed holding at most limit notifications
func NewFeed(limit int) *Feed {
	if limit <= 0 {
		limit = 100
	}
	return &Feed{limit: limit}
}

func (f *Feed) Notify(message string, severity Severity) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	f.buf = append(f.buf, Notification{
		ID:       f.nextID,
		Message:  message,
		Severity: severity,
		At:       time.Now().UTC(),
	})
	if len(f.buf) > f.limit {
		f.buf = append([]Notification(nil), f.buf[len(f.buf)-f.limit:]...)
	}
}

// Since returns notifications with an id greater than after, oldest first
func (f *Feed) Since(after uint64) []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := []Notification{}
	for _, n := range f.buf {
		if n.ID > after {
			out = append(out, n)
		}
	}
	return out
}

// Messages returns the retained message texts, oldest first
func (f *Feed) Messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, 0, len(f.buf))
	for _, n := range f.buf {
		out = append(out, n.Message)
	}
	return out
}

// LogSink writes notifications to a logger
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a sink on logger
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger.With().Str("component", "notify").Logger()}
}

func (s *LogSink) Notify(message string, severity Severity) {
	var ev *zerolog.Event
	switch severity {
	case Error:
		ev = s.logger.Warn()
	default:
		ev = s.logger.Info()
	}
	ev.Str("severity", string(severity)).Msg(message)
}

type multi []Sink

func (m multi) Notify(message string, severity Severity) {
	for _, s := range m {
		s.Notify(message, severity)
	}
}

// Multi fans a notification out to every sink
func Multi(sinks ...Sink) Sink {
	return multi(sinks)
}

// Discard drops every notification
var Discard Sink = multi(nil)
