// Package logger provides structured logging for KeyVault.
//
// Two backends sit behind the Logger interface:
//
//   - logger.go: log/slog, JSON or text (default)
//   - zap.go: go.uber.org/zap, selected with Backend "zap"
//   - context.go: context-aware logging with request and session IDs
//   - redact.go: sensitive data redaction shared by both backends
//
// Vault values and principal secrets never reach the output: attributes
// whose key names them are replaced before encoding.
package logger
