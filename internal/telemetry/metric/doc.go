// Package metric provides Prometheus metrics for KeyVault.
//
//   - prometheus.go: registry, device operation counters and latency
//     histogram, /metrics handler
//   - collector.go: a custom collector reading per-user counters from the
//     device at scrape time
//
// Metrics are exposed at /metrics by the HTTP server.
package metric
