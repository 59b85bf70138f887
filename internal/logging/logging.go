// Package logging builds the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New returns a logger writing to stderr and installs it as the global
// zerolog logger. format is "json" or "pretty"; level is a zerolog level name.
func New(format, level string) zerolog.Logger {
	logger := NewWithWriter(os.Stderr, format, level)
	log.Logger = logger
	zerolog.DefaultContextLogger = &log.Logger
	return logger
}

// NewWithWriter builds a logger on w without touching global state
func NewWithWriter(w io.Writer, format, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	if strings.EqualFold(format, "pretty") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Str("service", "labellens").Logger()
}
