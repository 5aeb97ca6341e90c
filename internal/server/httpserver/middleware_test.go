package httpserver

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/keyvault-go/internal/telemetry/logger"
)

func testLogger(t *testing.T, buf *bytes.Buffer) logger.Logger {
	t.Helper()
	prev := logger.GetLevel()
	t.Cleanup(func() { logger.SetLevel(prev) })

	l, err := logger.New(logger.Config{Level: "debug", Format: "text", Output: buf})
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return l
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if remote != "" {
		req.RemoteAddr = remote
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRequestID(t *testing.T) {
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if logger.RequestIDFromContext(r.Context()) == "" {
			t.Error("expected request ID in context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("generates request ID when not provided", func(t *testing.T) {
		rec := serve(handler, "")

		requestID := rec.Header().Get("X-Request-ID")
		if !strings.HasPrefix(requestID, "req-") {
			t.Errorf("expected request ID to start with 'req-', got %s", requestID)
		}
		// req- plus a 26 character ULID.
		if len(requestID) != 30 {
			t.Errorf("expected 30 character request ID, got %q", requestID)
		}
	})

	t.Run("generated IDs are unique", func(t *testing.T) {
		a := serve(handler, "").Header().Get("X-Request-ID")
		b := serve(handler, "").Header().Get("X-Request-ID")
		if a == b {
			t.Errorf("expected distinct request IDs, got %s twice", a)
		}
	})

	t.Run("preserves existing request ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-Request-ID", "existing-id-123")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if got := rec.Header().Get("X-Request-ID"); got != "existing-id-123" {
			t.Errorf("expected 'existing-id-123', got %s", got)
		}
	})

	t.Run("replaces unusable client IDs", func(t *testing.T) {
		for _, id := range []string{"has space", "tab\tid", strings.Repeat("a", maxRequestIDLen+1)} {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set("X-Request-ID", id)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if got := rec.Header().Get("X-Request-ID"); got == id || !strings.HasPrefix(got, "req-") {
				t.Errorf("client ID %q: got %q, want a generated ID", id, got)
			}
		}
	})
}

func TestChain(t *testing.T) {
	var order []int
	mark := func(n int) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, n)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := Chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		order = append(order, 4)
		w.WriteHeader(http.StatusOK)
	}), mark(1), mark(2), mark(3))

	serve(handler, "")

	expected := []int{1, 2, 3, 4}
	if len(order) != len(expected) {
		t.Fatalf("expected %d calls, got %d", len(expected), len(order))
	}
	for i, v := range expected {
		if order[i] != v {
			t.Errorf("expected order[%d] = %d, got %d", i, v, order[i])
		}
	}
}

func TestAdminACL(t *testing.T) {
	tests := []struct {
		name      string
		allowList []string
		remote    string
		want      int
	}{
		{"allows all when allowlist is empty", nil, "192.168.1.100:12345", http.StatusOK},
		{"allows matching single IP", []string{"192.168.1.100"}, "192.168.1.100:12345", http.StatusOK},
		{"allows matching CIDR", []string{"10.0.0.0/8"}, "10.1.2.3:12345", http.StatusOK},
		{"denies non-matching IP", []string{"192.168.1.0/24"}, "10.0.0.1:12345", http.StatusForbidden},
		{"supports IPv6", []string{"2001:db8::/32"}, "[2001:db8::1]:12345", http.StatusOK},
		{"skips invalid entries", []string{"not-an-ip", "10.0.0.0/99", "10.0.0.1"}, "10.0.0.1:1", http.StatusOK},
		{"denies unparseable client", []string{"10.0.0.1"}, "garbage", http.StatusForbidden},
		{"unmaps IPv4-mapped peers", []string{"127.0.0.1"}, "[::ffff:127.0.0.1]:9000", http.StatusOK},
		{"denies all when every entry is invalid", []string{"bogus", "300.0.0.1"}, "127.0.0.1:1", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := AdminACL(tt.allowList, nil)(okHandler())
			rec := serve(handler, tt.remote)
			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, rec.Code)
			}
			if tt.want == http.StatusForbidden && rec.Header().Get("X-Error-Code") != "KV-AUTH-4031" {
				t.Errorf("expected X-Error-Code KV-AUTH-4031, got %q", rec.Header().Get("X-Error-Code"))
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	t.Run("limits requests from same IP", func(t *testing.T) {
		handler := RateLimit(2)(okHandler())

		for i := 0; i < 2; i++ {
			if rec := serve(handler, "10.0.0.99:12345"); rec.Code != http.StatusOK {
				t.Errorf("request %d: expected status 200, got %d", i+1, rec.Code)
			}
		}

		rec := serve(handler, "10.0.0.99:12345")
		if rec.Code != http.StatusTooManyRequests {
			t.Errorf("expected status 429, got %d", rec.Code)
		}
		if rec.Header().Get("Retry-After") == "" {
			t.Error("expected Retry-After header")
		}
	})

	t.Run("different IPs have separate limits", func(t *testing.T) {
		handler := RateLimit(1)(okHandler())

		if rec := serve(handler, "192.168.100.1:12345"); rec.Code != http.StatusOK {
			t.Errorf("first IP: expected status 200, got %d", rec.Code)
		}
		if rec := serve(handler, "192.168.100.2:12345"); rec.Code != http.StatusOK {
			t.Errorf("second IP: expected status 200, got %d", rec.Code)
		}
	})

	t.Run("tokens refill over time", func(t *testing.T) {
		handler := RateLimit(10)(okHandler())

		for i := 0; i < 10; i++ {
			serve(handler, "10.0.0.88:12345")
		}
		if rec := serve(handler, "10.0.0.88:12345"); rec.Code != http.StatusTooManyRequests {
			t.Errorf("expected status 429, got %d", rec.Code)
		}

		time.Sleep(200 * time.Millisecond)

		if rec := serve(handler, "10.0.0.88:12345"); rec.Code != http.StatusOK {
			t.Errorf("after refill: expected status 200, got %d", rec.Code)
		}
	})
}

func TestRateLimitConcurrency(t *testing.T) {
	handler := RateLimit(100)(okHandler())

	var (
		wg                      sync.WaitGroup
		mu                      sync.Mutex
		successCount, failCount int
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := serve(handler, "192.168.1.1:12345")

			mu.Lock()
			defer mu.Unlock()
			if rec.Code == http.StatusOK {
				successCount++
			} else {
				failCount++
			}
		}()
	}
	wg.Wait()

	if successCount == 0 {
		t.Error("expected some successful requests")
	}
	if failCount == 0 {
		t.Error("expected some rate-limited requests")
	}
}

func TestRecover(t *testing.T) {
	var buf bytes.Buffer
	log := testLogger(t, &buf)

	t.Run("recovers from panic", func(t *testing.T) {
		handler := Recover(log)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("test panic")
		}))

		rec := serve(handler, "")

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", rec.Code)
		}
		if got := rec.Header().Get("X-Error-Code"); got != "KV-SYS-5000" {
			t.Errorf("expected X-Error-Code KV-SYS-5000, got %q", got)
		}
		if !strings.Contains(buf.String(), "panic recovered") {
			t.Errorf("expected panic log, got: %s", buf.String())
		}
	})

	t.Run("passes through normal requests", func(t *testing.T) {
		if rec := serve(Recover(log)(okHandler()), ""); rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
	})
}

func TestAdminACL_IgnoresForwardingHeaders(t *testing.T) {
	handler := AdminACL([]string{"10.0.0.1"}, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = "203.0.113.9:4444"
	req.Header.Set("X-Forwarded-For", "10.0.0.1")
	req.Header.Set("X-Real-IP", "10.0.0.1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", rec.Code)
	}
}

func TestAdminACL_LogsInvalidEntries(t *testing.T) {
	var buf bytes.Buffer
	AdminACL([]string{"10.0.0.1", "nope"}, testLogger(t, &buf))

	if !strings.Contains(buf.String(), "entry=nope") {
		t.Errorf("expected invalid entry warning, got: %s", buf.String())
	}
}

func TestParseAllowList(t *testing.T) {
	prefixes, invalid := ParseAllowList([]string{" 10.0.0.1 ", "192.168.1.7/24", "::ffff:10.0.0.2", "fd00::/8", "x", "1.2.3.4/40"})

	want := []string{"10.0.0.1/32", "192.168.1.0/24", "10.0.0.2/32", "fd00::/8"}
	if len(prefixes) != len(want) {
		t.Fatalf("prefixes = %v, want %v", prefixes, want)
	}
	for i, p := range prefixes {
		if p.String() != want[i] {
			t.Errorf("prefixes[%d] = %s, want %s", i, p, want[i])
		}
	}
	if len(invalid) != 2 || invalid[0] != "x" || invalid[1] != "1.2.3.4/40" {
		t.Errorf("invalid = %v", invalid)
	}
}

func TestPeerHost(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		want   string
	}{
		{"strips port", "192.168.1.1:12345", "192.168.1.1"},
		{"handles IPv6", "[::1]:8080", "::1"},
		{"returns RemoteAddr without port", "192.168.1.1", "192.168.1.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set("X-Forwarded-For", "10.9.9.9")
			req.RemoteAddr = tt.remote
			if got := peerHost(req); got != tt.want {
				t.Errorf("expected '%s', got '%s'", tt.want, got)
			}
		})
	}
}

func TestAudit(t *testing.T) {
	var buf bytes.Buffer
	log := testLogger(t, &buf)

	tests := []struct {
		status int
		want   string
	}{
		{http.StatusOK, "request completed"},
		{http.StatusBadRequest, "request completed with client error"},
		{http.StatusInternalServerError, "request completed with error"},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			buf.Reset()
			handler := Chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}), RequestID(), Audit(log))

			serve(handler, "")

			out := buf.String()
			if !strings.Contains(out, tt.want) {
				t.Errorf("expected %q in log, got: %s", tt.want, out)
			}
			if !strings.Contains(out, "request_id=req-") {
				t.Errorf("expected request_id in log, got: %s", out)
			}
		})
	}
}

func TestResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	wrapped := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}

	wrapped.WriteHeader(http.StatusCreated)
	if _, err := wrapped.Write([]byte("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if wrapped.written != 5 {
		t.Errorf("expected 5 bytes written, got %d", wrapped.written)
	}
	if wrapped.statusCode != http.StatusCreated {
		t.Errorf("expected status 201, got %d", wrapped.statusCode)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected underlying status 201, got %d", rec.Code)
	}
}
