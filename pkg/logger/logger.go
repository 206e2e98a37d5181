package logger

import (
	"log"
	"log/slog"
)

// New returns a stdlib logger that forwards into base at error level,
// tagged with component. Useful for APIs that only accept *log.Logger.
func New(component string, base *slog.Logger) *log.Logger {
	if base == nil {
		base = slog.Default()
	}
	return slog.NewLogLogger(base.With("component", component).Handler(), slog.LevelError)
}
