package logger

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"clinic-api/internal/config"
)

// New picks a handler by environment: pretty colored output locally, JSON
// elsewhere. When cfg.Log.File is set the same records also go to a rotating
// file.
func New(cfg *config.Config) *slog.Logger {
	var w io.Writer = os.Stdout
	if cfg.Log.File != "" {
		w = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAgeDays,
			Compress:   true,
		})
	}
	return slog.New(handlerFor(cfg.Env, w)).With(slog.String("env", cfg.Env))
}

func handlerFor(env string, w io.Writer) slog.Handler {
	switch env {
	case config.EnvLocal:
		return NewPrettyHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	case config.EnvDev:
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	default:
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
}

func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// Discard is used by tests that need a logger but not its output.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
