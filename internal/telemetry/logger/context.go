package logger

import "context"

type contextKey string

const (
	loggerKey    contextKey = "keyvault.logger"
	requestIDKey contextKey = "keyvault.request_id"
	remoteKey    contextKey = "keyvault.remote"
)

// WithLogger attaches l to ctx.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the attached logger, or the default logger.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey).(Logger); ok {
		return l
	}
	return Default()
}

// WithRequestID tags ctx with an HTTP request ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request ID, or "".
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// WithRemote tags ctx with the peer address of a RESP connection.
func WithRemote(ctx context.Context, remote string) context.Context {
	return context.WithValue(ctx, remoteKey, remote)
}

// RemoteFromContext returns the peer address, or "".
func RemoteFromContext(ctx context.Context) string {
	if r, ok := ctx.Value(remoteKey).(string); ok {
		return r
	}
	return ""
}

// L returns the context's logger with request_id and remote attached
// when present.
func L(ctx context.Context) Logger {
	l := FromContext(ctx)
	if id := RequestIDFromContext(ctx); id != "" {
		l = l.With("request_id", id)
	}
	if r := RemoteFromContext(ctx); r != "" {
		l = l.With("remote", r)
	}
	return l
}
