package logging

import (
	"io"
	"log/slog"
	"os"
)

// Init installs the process-wide slog handler. The CLI calls it once after
// config resolution, before any store or server code runs. Output goes to
// os.Stderr unless a writer is given — stdout stays reserved for the MCP
// transport. Any format other than "json" means text.
func Init(level slog.Level, format string, w ...io.Writer) {
	var writer io.Writer = os.Stderr
	if len(w) > 0 && w[0] != nil {
		writer = w[0]
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(writer, opts)
	default:
		handler = slog.NewTextHandler(writer, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// New derives a logger tagged with the owning subsystem ("store", "serve",
// "collect"), so lines from concurrent operations stay attributable.
func New(component string) *slog.Logger {
	return slog.Default().With(slog.String("component", component))
}

// ParseLevel maps the config's log_level string to a slog.Level, falling
// back to Info for anything unrecognized rather than failing startup.
func ParseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
