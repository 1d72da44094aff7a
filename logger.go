package main

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

func initLogger(level, path string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if path == "" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		l := slog.New(slog.NewTextHandler(os.Stdout, opts))
		l.Error("failed to open log file", "path", path, "err", err)
		return l
	}
	l := slog.New(slog.NewTextHandler(io.MultiWriter(os.Stdout, f), opts))
	l.Info("logger initialized", "file", path)
	return l
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
