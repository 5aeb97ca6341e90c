// Package config holds kvault-cli settings stored in ~/.kvault/cli.yaml.
//
// The file names connection profiles and selects one as current. Flags
// and KVAULT_* environment variables override whatever the current
// profile sets. Secrets are never written to the file.
package config
