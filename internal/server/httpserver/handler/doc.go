// Package handler provides HTTP request handlers for kvault-server.
//
// The HTTP surface is operational only. Vault values are never served
// over HTTP; they are only reachable through the authenticated RESP
// transport.
//
//   - health.go: liveness and readiness checks
//   - admin.go: status summary and per-user counters
//
// All JSON responses share the Response envelope.
package handler
