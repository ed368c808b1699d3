package trace

import (
	"context"
	"log/slog"
)

// SlogAdapter writes traffic events to an slog.Logger.
// Useful for development when you want to watch SCPI traffic in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger. Errors log at Warn level,
// everything else at Debug.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("session", event.SessionID),
		slog.String("address", event.Address),
		slog.String("direction", event.Direction.String()),
		slog.String("category", event.Category.String()),
	}

	if event.Command != "" {
		attrs = append(attrs, slog.String("command", event.Command))
	}
	if event.Response != "" {
		attrs = append(attrs, slog.String("response", event.Response))
	}
	if event.Size > 0 {
		attrs = append(attrs, slog.Int("size", event.Size))
	}
	if event.Attempts > 1 {
		attrs = append(attrs, slog.Int("attempts", event.Attempts))
	}
	if event.Elapsed > 0 {
		attrs = append(attrs, slog.Duration("elapsed", event.Elapsed))
	}

	level := slog.LevelDebug
	if event.Err != "" {
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("error", event.Err))
	}

	a.logger.LogAttrs(context.Background(), level, "scpi", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
