package logger

import (
	"context"
	"log/slog"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// zapLevel mirrors level for the zap backend.
var zapLevel = zap.NewAtomicLevel()

type zapLogger struct {
	sugar *zap.SugaredLogger
	ctx   context.Context
}

func newZap(cfg Config) (Logger, error) {
	SetLevel(cfg.Level)

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.MessageKey = "msg"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	enc := zapcore.NewJSONEncoder(encCfg)
	if cfg.text() {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	opts := []zap.Option{}
	if cfg.AddSource {
		opts = append(opts, zap.AddCaller(), zap.AddCallerSkip(1))
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(cfg.output()), zapLevel)
	return &zapLogger{
		sugar: zap.New(core, opts...).Sugar(),
		ctx:   context.Background(),
	}, nil
}

func toZapLevel(l slog.Level) zapcore.Level {
	switch {
	case l <= slog.LevelDebug:
		return zapcore.DebugLevel
	case l >= slog.LevelError:
		return zapcore.ErrorLevel
	case l >= slog.LevelWarn:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}

// redactArgs applies the slog redaction rules to alternating key/value args.
func redactArgs(args []any) []any {
	out := make([]any, len(args))
	copy(out, args)
	for i := 0; i+1 < len(out); i += 2 {
		key, ok := out[i].(string)
		if !ok {
			continue
		}
		if s, ok := out[i+1].(string); ok {
			out[i+1] = redactField(key, s)
		}
	}
	return out
}

func (l *zapLogger) Debug(msg string, args ...any) {
	l.sugar.Debugw(msg, redactArgs(args)...)
}

func (l *zapLogger) Info(msg string, args ...any) {
	l.sugar.Infow(msg, redactArgs(args)...)
}

func (l *zapLogger) Warn(msg string, args ...any) {
	l.sugar.Warnw(msg, redactArgs(args)...)
}

func (l *zapLogger) Error(msg string, args ...any) {
	l.sugar.Errorw(msg, redactArgs(args)...)
}

func (l *zapLogger) With(args ...any) Logger {
	return &zapLogger{
		sugar: l.sugar.With(redactArgs(args)...),
		ctx:   l.ctx,
	}
}

func (l *zapLogger) WithContext(ctx context.Context) Logger {
	return &zapLogger{sugar: l.sugar, ctx: ctx}
}

// Sync flushes any buffered zap output. It is a no-op for other backends.
func Sync(l Logger) error {
	if z, ok := l.(*zapLogger); ok {
		return z.sugar.Sync()
	}
	return nil
}
