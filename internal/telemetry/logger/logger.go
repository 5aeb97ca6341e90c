package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Logger is the logging surface used across kvault. Args are alternating
// key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	WithContext(ctx context.Context) Logger
}

// Backend names.
const (
	BackendSlog = "slog"
	BackendZap  = "zap"
)

// Config selects level, encoding and backend.
type Config struct {
	Level     string    // debug, info, warn, error
	Format    string    // json, text (console is an alias of text)
	Backend   string    // slog (default) or zap
	Output    io.Writer // os.Stderr when nil
	AddSource bool
}

// DefaultConfig logs info and above as JSON to stderr.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "json", Backend: BackendSlog, Output: os.Stderr}
}

func (c Config) output() io.Writer {
	if c.Output == nil {
		return os.Stderr
	}
	return c.Output
}

func (c Config) text() bool {
	f := strings.ToLower(c.Format)
	return f == "text" || f == "console"
}

// level is shared by every logger built by New, so SetLevel takes effect
// on loggers already handed out.
var level = new(slog.LevelVar)

// ParseLevel maps a level name onto slog. "warning" is accepted for warn
// and the empty string means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

func levelOrInfo(s string) slog.Level {
	l, _ := ParseLevel(s)
	return l
}

// New builds a Logger and resets the shared level to cfg.Level.
func New(cfg Config) (Logger, error) {
	if strings.EqualFold(cfg.Backend, BackendZap) {
		return newZap(cfg)
	}
	SetLevel(cfg.Level)

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			return redactSensitive(a)
		},
	}
	var h slog.Handler = slog.NewJSONHandler(cfg.output(), opts)
	if cfg.text() {
		h = slog.NewTextHandler(cfg.output(), opts)
	}
	return &slogLogger{l: slog.New(h), ctx: context.Background()}, nil
}

// SetLevel changes the level of every logger, both backends. Unknown names
// fall back to info.
func SetLevel(name string) {
	l := levelOrInfo(name)
	level.Set(l)
	zapLevel.SetLevel(toZapLevel(l))
}

// GetLevel returns the current level name.
func GetLevel() string {
	return strings.ToLower(level.Level().String())
}

type slogLogger struct {
	l   *slog.Logger
	ctx context.Context
}

func (s *slogLogger) Debug(msg string, args ...any) { s.l.Log(s.ctx, slog.LevelDebug, msg, args...) }
func (s *slogLogger) Info(msg string, args ...any)  { s.l.Log(s.ctx, slog.LevelInfo, msg, args...) }
func (s *slogLogger) Warn(msg string, args ...any)  { s.l.Log(s.ctx, slog.LevelWarn, msg, args...) }
func (s *slogLogger) Error(msg string, args ...any) { s.l.Log(s.ctx, slog.LevelError, msg, args...) }

func (s *slogLogger) With(args ...any) Logger {
	return &slogLogger{l: s.l.With(args...), ctx: s.ctx}
}

func (s *slogLogger) WithContext(ctx context.Context) Logger {
	return &slogLogger{l: s.l, ctx: ctx}
}

type nopLogger struct{}

// Nop returns a Logger that drops everything.
func Nop() Logger { return nopLogger{} }

func (nopLogger) Debug(string, ...any)                 {}
func (nopLogger) Info(string, ...any)                  {}
func (nopLogger) Warn(string, ...any)                  {}
func (nopLogger) Error(string, ...any)                 {}
func (n nopLogger) With(...any) Logger                 { return n }
func (n nopLogger) WithContext(context.Context) Logger { return n }

// box lets atomic.Pointer hold an interface.
type box struct{ Logger }

var std atomic.Pointer[box]

func init() {
	l, _ := New(DefaultConfig())
	std.Store(&box{l})
}

// SetDefault replaces the process-wide logger. Nil is ignored.
func SetDefault(l Logger) {
	if l != nil {
		std.Store(&box{l})
	}
}

// Default returns the process-wide logger.
func Default() Logger { return std.Load().Logger }

func Debug(msg string, args ...any) { Default().Debug(msg, args...) }
func Info(msg string, args ...any)  { Default().Info(msg, args...) }
func Warn(msg string, args ...any)  { Default().Warn(msg, args...) }
func Error(msg string, args ...any) { Default().Error(msg, args...) }
