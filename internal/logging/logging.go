// Package logging centralizes the zerolog console-writer setup used by
// every package in this service, so each one only has to name itself.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a zerolog.Logger writing to stderr in the same console
// format every component of this service uses, tagged with component.
func New(component string) zerolog.Logger {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(out).With().Timestamp().Str("component", component).Logger()
}

// SetGlobalLevel adjusts the zerolog global level, e.g. from config.
func SetGlobalLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
