package httpserver

import (
	"crypto/rand"
	"encoding/json"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/keyvault-go/internal/core/service"
	"github.com/yndnr/keyvault-go/internal/telemetry/logger"
)

// maxRequestIDLen bounds client-supplied X-Request-ID values.
const maxRequestIDLen = 64

// Middleware wraps an http.Handler with additional functionality.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares so that the first one is the outermost.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// RequestID tags each request with an ID, echoed in X-Request-ID. A client
// value is kept only when it is short and printable ASCII.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if !validRequestID(id) {
				id = "req-" + newRequestID()
			}
			w.Header().Set("X-Request-ID", id)
			next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
		})
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}

func newRequestID() string {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "unknown"
	}
	return strings.ToLower(id.String())
}

// RateLimit limits requests per second per peer address.
func RateLimit(requestsPerSecond int) Middleware {
	limiters := service.NewRateLimiterRegistry()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiters.GetOrCreate(peerHost(r), requestsPerSecond).Allow() {
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "KV-AUTH-4290", "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Audit logs one line per completed request. Successful requests log at
// debug so probes stay quiet.
func Audit(log logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			l := log.With(
				"request_id", logger.RequestIDFromContext(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", rw.statusCode,
				"bytes", rw.written,
				"duration_ms", time.Since(start).Milliseconds(),
				"peer", peerHost(r),
			)
			switch {
			case rw.statusCode >= 500:
				l.Error("request completed with error")
			case rw.statusCode >= 400:
				l.Warn("request completed with client error")
			default:
				l.Debug("request completed")
			}
		})
	}
}

// Recover turns a handler panic into a 500 response.
func Recover(log logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error("panic recovered",
						"request_id", logger.RequestIDFromContext(r.Context()),
						"error", err,
						"path", r.URL.Path,
					)
					writeError(w, http.StatusInternalServerError, "KV-SYS-5000", "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// ParseAllowList parses IPs and CIDRs. A bare IP becomes a single-address
// prefix. Invalid entries are returned separately.
func ParseAllowList(entries []string) (prefixes []netip.Prefix, invalid []string) {
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if strings.Contains(e, "/") {
			p, err := netip.ParsePrefix(e)
			if err != nil {
				invalid = append(invalid, e)
				continue
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(e)
		if err != nil {
			invalid = append(invalid, e)
			continue
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, invalid
}

// AdminACL admits only peers inside allowList. Forwarding headers are
// ignored: the check is on the TCP peer. An empty list admits everyone.
func AdminACL(allowList []string, log logger.Logger) Middleware {
	if log == nil {
		log = logger.Nop()
	}
	prefixes, invalid := ParseAllowList(allowList)
	for _, e := range invalid {
		log.Warn("invalid admin allowlist entry ignored", "entry", e)
	}
	open := len(allowList) == 0

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if open {
				next.ServeHTTP(w, r)
				return
			}

			addr, err := netip.ParseAddr(peerHost(r))
			if err != nil {
				writeError(w, http.StatusForbidden, "KV-AUTH-4031", "invalid client IP")
				return
			}
			addr = addr.Unmap()
			for _, p := range prefixes {
				if p.Contains(addr) {
					next.ServeHTTP(w, r)
					return
				}
			}

			log.Warn("request denied by admin allowlist", "peer", addr.String(), "path", r.URL.Path)
			writeError(w, http.StatusForbidden, "KV-AUTH-4031", "IP not in allowlist")
		})
	}
}

// responseWriter records the status code and body size.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int
}

func (w *responseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.written += n
	return n, err
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"code":    code,
		"message": message,
	})
}

// peerHost returns the host part of RemoteAddr, or RemoteAddr as is.
func peerHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
