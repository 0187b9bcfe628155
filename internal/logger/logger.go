package logger

import (
	"io"
	"log/slog"
	"os"

	"go.uber.org/fx/fxevent"

	"github.com/polkiloo/bitlend/internal/config"
)

// New creates a preconfigured JSON slog.Logger writing to stdout.
func New(level slog.Leveler) *slog.Logger {
	return newLogger(os.Stdout, level)
}

func newLogger(w io.Writer, level slog.Leveler) *slog.Logger {
	if level == nil {
		level = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("service", "bitlend"))
}

func fromConfig(cfg *config.Config) *slog.Logger {
	return New(cfg.LogLevel)
}

// FxLogger routes fx lifecycle events through the application logger.
func FxLogger(log *slog.Logger) fxevent.Logger {
	return &fxevent.SlogLogger{Logger: log}
}
