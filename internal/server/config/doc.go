// Package config provides server configuration for kvault-server.
//
// This package defines the server configuration structure and validation:
//
//   - spec.go: ServerConfig struct definition
//   - default.go: Default configuration values
//   - verify.go: Business validation (capacities, principals, endpoints)
//   - sanitize.go: Log sanitization (hide secret hashes)
//   - load.go: Layered loading through internal/infra/confloader
//
// Sources, lowest priority first: defaults, YAML file, KVAULT_ environment
// variables, command-line flags.
package config
