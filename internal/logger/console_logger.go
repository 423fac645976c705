package logger

import (
	"io"
	"log/slog"
)

// NewConsoleLogger creates a text logger writing to w.
func NewConsoleLogger(level string, w io.Writer) Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(level)})
	return &slogLogger{logger: slog.New(handler)}
}
