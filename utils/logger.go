package utils

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// Logger provides leveled logging throughout the application.
type Logger struct {
	base *log.Logger
}

// NewLogger creates a Logger writing to stderr at info level.
func NewLogger() *Logger {
	return NewLoggerTo(os.Stderr, "info")
}

// NewLoggerTo creates a Logger writing to w. Unknown levels fall back to info.
func NewLoggerTo(w io.Writer, level string) *Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	return &Logger{
		base: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      time.DateTime,
			Level:           lvl,
		}),
	}
}

// Discard returns a Logger that drops everything. Handy in tests.
func Discard() *Logger {
	return NewLoggerTo(io.Discard, "error")
}

// WithPrefix returns a child Logger whose lines start with prefix.
func (l *Logger) WithPrefix(prefix string) *Logger {
	return &Logger{base: l.base.WithPrefix(prefix)}
}

func (l *Logger) Info(format string, args ...any) {
	l.base.Infof(format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.base.Warnf(format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.base.Errorf(format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.base.Debugf(format, args...)
}
