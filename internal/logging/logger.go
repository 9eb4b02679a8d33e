// Package logging configures the zerolog logger used for diagnostic output.
package logging

import (
	"io"

	"github.com/rs/zerolog"
)

// New creates a console logger writing to w. Debug output is enabled when debug is set,
// otherwise only warnings and errors are written.
func New(w io.Writer, debug bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if debug {
		level = zerolog.DebugLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
		NoColor:    true,
	}).
		Level(level).
		With().
		Timestamp().
		Logger()
}
