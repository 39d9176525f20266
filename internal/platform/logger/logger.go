package logger

import (
	"log/slog"
	"os"
)

// New returns the process logger. FORMFLOW_LOG_FORMAT=json switches to the
// JSON handler for log shippers; the default text handler is for humans.
func New() *slog.Logger {
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level()}
	if os.Getenv("FORMFLOW_LOG_FORMAT") == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func level() slog.Level {
	switch os.Getenv("FORMFLOW_LOG_LEVEL") {
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
