package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

// Level is a log severity.
type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Logger is a slog.Logger whose level can change after creation and whose
// children share that level.
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
}

// Config selects level, destination and format.
type Config struct {
	Level      Level
	Output     io.Writer
	JSON       bool
	TimeFormat string
}

// DefaultConfig logs info and above to stderr in console format.
func DefaultConfig() Config {
	return Config{
		Level:      LevelInfo,
		Output:     os.Stderr,
		TimeFormat: time.RFC3339,
	}
}

// ParseLevel accepts debug, info, warn/warning and error. Empty is info.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// New builds a Logger from cfg. A nil Output means stderr.
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	lv := new(slog.LevelVar)
	lv.Set(cfg.Level)
	opts := &slog.HandlerOptions{Level: lv}

	var h slog.Handler = NewConsoleHandler(out, opts, cfg.TimeFormat)
	if cfg.JSON {
		h = slog.NewJSONHandler(out, opts)
	}
	return &Logger{Logger: slog.New(h), level: lv}
}

var std atomic.Pointer[Logger]

// Default returns the process logger, creating a DefaultConfig one on first
// use.
func Default() *Logger {
	if l := std.Load(); l != nil {
		return l
	}
	std.CompareAndSwap(nil, New(DefaultConfig()))
	return std.Load()
}

// SetDefault replaces the process logger.
func SetDefault(l *Logger) {
	std.Store(l)
}

// SetLevel changes the level of l and every logger derived from it.
func (l *Logger) SetLevel(level Level) {
	l.level.Set(level)
}

// Level returns the current level.
func (l *Logger) Level() Level {
	return l.level.Level()
}

// WithComponent tags records with the pipeline stage that emitted them.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{Logger: l.Logger.With("component", name), level: l.level}
}

// WithComponent derives a component logger from Default.
func WithComponent(name string) *Logger {
	return Default().WithComponent(name)
}
