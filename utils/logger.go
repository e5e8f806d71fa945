package utils

import (
	"log/slog"
	"os"
)

// Logger is the logging surface the engine writes to. It is the
// leveled subset of slog's API, kept as an interface so embedders can
// route engine logs into their own logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type DefaultLogger struct {
	logger *slog.Logger
}

// NewDefaultLogger logs to stderr at the given level.
func NewDefaultLogger(level slog.Level) *DefaultLogger {
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return NewLogger(h)
}

// NewLogger wraps an arbitrary slog handler.
func NewLogger(h slog.Handler) *DefaultLogger {
	return &DefaultLogger{logger: slog.New(h)}
}

const prefix = "[rod] "

func (d *DefaultLogger) Debug(msg string, args ...any) {
	d.logger.Debug(prefix+msg, args...)
}

func (d *DefaultLogger) Info(msg string, args ...any) {
	d.logger.Info(prefix+msg, args...)
}

func (d *DefaultLogger) Warn(msg string, args ...any) {
	d.logger.Warn(prefix+msg, args...)
}

func (d *DefaultLogger) Error(msg string, args ...any) {
	d.logger.Error(prefix+msg, args...)
}
