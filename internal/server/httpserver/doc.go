// Package httpserver provides the operational HTTP server for kvault-server.
//
// Endpoints:
//
//   - Health endpoints: /health, /ready
//   - Metrics endpoint: /metrics (Prometheus exposition)
//   - Admin endpoints: /admin/v1/status/summary, /admin/v1/users/{user}/stats
//
// Vault values are not exposed over HTTP. Admin and metrics endpoints can
// be restricted with a network allowlist.
//
// Middleware chain: Recover, RequestID, RateLimit, Audit.
package httpserver
