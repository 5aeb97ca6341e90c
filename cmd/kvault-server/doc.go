// Package main provides the entry point for kvault-server.
//
// kvault-server holds a per-user, multi-valued key vault in memory and
// serves it over:
//
//   - a Redis-compatible RESP listener (TCP and/or unix socket) for vault sessions
//   - a local unix socket for administration without credentials
//   - an HTTP listener for health, readiness, admin counters and /metrics
//
// Usage:
//
//	kvault-server [flags]
//	kvault-server --config /etc/kvault-server/config.yaml --users 64
//
// Configuration layers, lowest priority first: built-in defaults, the
// YAML file, KVAULT_* environment variables, then flags. log.level and
// identity.principals are reloaded when the file changes; everything
// else needs a restart. Vault contents live only in memory and are lost
// at exit.
package main
