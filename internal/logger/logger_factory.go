package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"keybridge/internal/config"
)

// New builds a Logger from settings.
func New(settings *config.LoggerSettings) (Logger, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	switch settings.Type {
	case config.LogTypeConsole:
		return NewConsoleLogger(settings.Level, os.Stderr), nil
	case config.LogTypeFile:
		return NewFileLogger(settings.Level, settings.FilePath, settings.MaxSize, settings.MaxBackups, settings.MaxAge), nil
	default:
		return nil, fmt.Errorf("unsupported log type: %s", settings.Type)
	}
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return &slogLogger{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

type slogLogger struct {
	logger *slog.Logger
}

func (l *slogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *slogLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *slogLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *slogLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{logger: l.logger.With(args...)}
}

func parseLevel(level string) slog.Level {
	switch level {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelInfo:
		return slog.LevelInfo
	case config.LogLevelWarning:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
