package logger

import (
	"log/slog"
	"os"
)

// newStdHandler — человекочитаемый текстовый вывод для dev.
func newStdHandler(cfg Config) slog.Handler {
	return slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     resolveLevel(cfg),
		AddSource: cfg.AddSource,
	})
}

// resolveLevel: Debug без явного Level опускает порог до Debug.
func resolveLevel(cfg Config) slog.Level {
	if cfg.Debug && cfg.Level == 0 {
		return slog.LevelDebug
	}
	return cfg.Level
}
